package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearOAuthEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OAUTH_CLIENT_ID", "OAUTH_CLIENT_SECRET", "OAUTH_TOKEN_ENDPOINT"} {
		orig, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, orig)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearOAuthEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.ProxyPort)
	assert.Equal(t, "https://api.openai.com/v1", cfg.TargetEndpoint)
	assert.False(t, cfg.UsePlaceholder)
	assert.NotEmpty(t, cfg.ProxyAccessToken)
	assert.NotEmpty(t, cfg.DashboardToken)
}

func TestValidate_PartialOAuthRejected(t *testing.T) {
	clearOAuthEnv(t)
	os.Setenv("OAUTH_CLIENT_ID", "client")
	defer os.Unsetenv("OAUTH_CLIENT_ID")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_FullOAuthAccepted(t *testing.T) {
	clearOAuthEnv(t)
	os.Setenv("OAUTH_CLIENT_ID", "client")
	os.Setenv("OAUTH_CLIENT_SECRET", "secret")
	os.Setenv("OAUTH_TOKEN_ENDPOINT", "https://example.com/token")
	defer os.Unsetenv("OAUTH_CLIENT_ID")
	defer os.Unsetenv("OAUTH_CLIENT_SECRET")
	defer os.Unsetenv("OAUTH_TOKEN_ENDPOINT")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsOAuthConfigured())
}

func TestPricingFamily(t *testing.T) {
	assert.Equal(t, "opus", PricingFamily("claude-3-opus-20240229"))
	assert.Equal(t, "haiku", PricingFamily("claude-3-haiku-20240307"))
	assert.Equal(t, "sonnet", PricingFamily("claude-3-5-sonnet-20241022"))
	assert.Equal(t, "sonnet", PricingFamily("gpt-4o"))
}

func TestCalculateCost(t *testing.T) {
	clearOAuthEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	cost := cfg.CalculateCost("claude-3-opus-20240229", 1_000_000, 1_000_000)
	assert.InDelta(t, 90.0, cost, 0.0001)
}

func TestParseModelMapping(t *testing.T) {
	mapping := parseModelMapping("claude-3-opus=gpt-4-turbo, claude-3-haiku = gpt-4o-mini")
	assert.Equal(t, "gpt-4-turbo", mapping["claude-3-opus"])
	assert.Equal(t, "gpt-4o-mini", mapping["claude-3-haiku"])
}
