// Package config loads cc-launcher's runtime configuration from the
// environment. Unlike the multi-provider config store this package used to
// manage, there is nothing to persist: every field comes from an env var or
// a documented default, and a fresh Config is built once at startup.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds every tunable of the running proxy. Fields are immutable
// after Load returns; callers share a single *Config by pointer.
type Config struct {
	ProxyPort         int
	ProxyAccessToken  string
	TargetEndpoint    string
	TargetAPIKey      string
	UsePlaceholder    bool
	ModelMapping      map[string]string
	ModelMappingFile  string
	DefaultMaxTokens  int64
	TokenPricing      map[string]ModelPricing
	OAuthTokenURL     string
	OAuthClientID     string
	OAuthClientSecret string
	OAuthScope        string
	OAuthRefreshMins  int
	DevMode           bool
	SkipSSLVerify     bool
	AutoOpenBrowser   bool
	DashboardEnabled  bool
	DashboardToken    string
	UsageBufferSize   int
}

// ModelPricing is the per-million-token cost used for usage-tracker
// estimates. Roles mirror the Anthropic "model family" buckets.
type ModelPricing struct {
	PromptCostPerMTK     float64
	CompletionCostPerMTK float64
}

// defaultPricing matches the original proxy's built-in table; each value is
// independently overridable via env vars of the form
// "<FAMILY>_PROMPT_COST_PER_MTK" / "<FAMILY>_COMPLETION_COST_PER_MTK".
var defaultPricing = map[string]ModelPricing{
	"opus":   {PromptCostPerMTK: 15, CompletionCostPerMTK: 75},
	"sonnet": {PromptCostPerMTK: 3, CompletionCostPerMTK: 15},
	"haiku":  {PromptCostPerMTK: 0.25, CompletionCostPerMTK: 1.25},
}

// Load reads the process environment into a Config. It never touches disk;
// USE_PLACEHOLDER_MODE and the OAuth/API-key variables determine how
// requests are authorized against the target later, not here.
func Load() (*Config, error) {
	cfg := &Config{
		ProxyPort:        envInt("PROXY_PORT", 5000),
		TargetEndpoint:   envString("TARGET_ENDPOINT", "https://api.openai.com/v1"),
		UsePlaceholder:   envBool("USE_PLACEHOLDER_MODE", false),
		DefaultMaxTokens: int64(envInt("DEFAULT_MAX_TOKENS", 16384)),
		OAuthTokenURL:    envString("OAUTH_TOKEN_ENDPOINT", ""),
		OAuthClientID:    envString("OAUTH_CLIENT_ID", ""),
		OAuthScope:       envString("OAUTH_SCOPE", ""),
		OAuthRefreshMins: envInt("OAUTH_REFRESH_BUFFER_MINUTES", 5),
		DevMode:          envBool("DEV_MODE", false),
		SkipSSLVerify:    envBool("SKIP_SSL_VERIFY", false),
		AutoOpenBrowser:  envBool("AUTO_OPEN_BROWSER", true),
		DashboardEnabled: envBool("DASHBOARD_ENABLED", true),
		UsageBufferSize:  envInt("USAGE_BUFFER_SIZE", 200),
		ModelMappingFile: envString("MODEL_MAPPING_FILE", ""),
	}

	cfg.OAuthClientSecret = os.Getenv("OAUTH_CLIENT_SECRET")

	cfg.TargetAPIKey = os.Getenv("TARGET_API_KEY")
	if cfg.TargetAPIKey == "" {
		cfg.TargetAPIKey = os.Getenv("OPENAI_API_KEY")
	}

	token := os.Getenv("PROXY_ACCESS_TOKEN")
	if token == "" {
		generated, err := generateToken("cc-launcher")
		if err != nil {
			return nil, fmt.Errorf("generate proxy access token: %w", err)
		}
		token = generated
	}
	cfg.ProxyAccessToken = token

	if cfg.DashboardEnabled {
		dashToken := os.Getenv("DASHBOARD_TOKEN")
		if dashToken == "" {
			generated, err := generateToken("cc-dashboard")
			if err != nil {
				return nil, fmt.Errorf("generate dashboard token: %w", err)
			}
			dashToken = generated
		}
		cfg.DashboardToken = dashToken
	}

	cfg.ModelMapping = parseModelMapping(os.Getenv("MODEL_MAPPING"))

	cfg.TokenPricing = make(map[string]ModelPricing, len(defaultPricing))
	for family, def := range defaultPricing {
		prompt := envFloat(strings.ToUpper(family)+"_PROMPT_COST_PER_MTK", def.PromptCostPerMTK)
		completion := envFloat(strings.ToUpper(family)+"_COMPLETION_COST_PER_MTK", def.CompletionCostPerMTK)
		cfg.TokenPricing[family] = ModelPricing{PromptCostPerMTK: prompt, CompletionCostPerMTK: completion}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	hasClientID := c.OAuthClientID != ""
	hasClientSecret := c.OAuthClientSecret != ""
	hasTokenURL := c.OAuthTokenURL != ""
	if hasClientID || hasClientSecret || hasTokenURL {
		if !(hasClientID && hasClientSecret && hasTokenURL) {
			return fmt.Errorf("OAUTH_CLIENT_ID, OAUTH_CLIENT_SECRET and OAUTH_TOKEN_ENDPOINT must all be set together")
		}
	}
	return nil
}

// IsOAuthConfigured reports whether all three OAuth client-credentials
// fields are present.
func (c *Config) IsOAuthConfigured() bool {
	return c.OAuthClientID != "" && c.OAuthClientSecret != "" && c.OAuthTokenURL != ""
}

// IsAPIKeyConfigured reports whether a static bearer key is available for
// the target endpoint.
func (c *Config) IsAPIKeyConfigured() bool {
	return c.TargetAPIKey != ""
}

// PricingFamily picks the token-pricing tier for a model name: opus and
// haiku are matched by substring, everything else (including "sonnet")
// defaults to the sonnet tier.
func PricingFamily(model string) string {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "opus"):
		return "opus"
	case strings.Contains(lower, "haiku"):
		return "haiku"
	default:
		return "sonnet"
	}
}

// CalculateCost estimates USD cost for a call against model using this
// Config's pricing table.
func (c *Config) CalculateCost(model string, inputTokens, outputTokens int64) float64 {
	pricing, ok := c.TokenPricing[PricingFamily(model)]
	if !ok {
		return 0
	}
	return float64(inputTokens)/1_000_000*pricing.PromptCostPerMTK + float64(outputTokens)/1_000_000*pricing.CompletionCostPerMTK
}

func parseModelMapping(raw string) map[string]string {
	mapping := make(map[string]string)
	if raw == "" {
		return mapping
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		if key == "" || val == "" {
			continue
		}
		mapping[key] = val
	}
	return mapping
}

func generateToken(prefix string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", prefix, hex.EncodeToString(buf)), nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return parsed
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return parsed
}
