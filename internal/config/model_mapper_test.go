package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelMapper_ExactMatch(t *testing.T) {
	m, err := NewModelMapper(map[string]string{"claude-3-opus-20240229": "gpt-4-turbo"}, "")
	require.NoError(t, err)

	mapped, matched := m.Map("claude-3-opus-20240229")
	assert.True(t, matched)
	assert.Equal(t, "gpt-4-turbo", mapped)
}

func TestModelMapper_GlobMatch(t *testing.T) {
	m, err := NewModelMapper(map[string]string{"claude-3-opus-*": "gpt-4-turbo"}, "")
	require.NoError(t, err)

	mapped, matched := m.Map("claude-3-opus-20240229")
	assert.True(t, matched)
	assert.Equal(t, "gpt-4-turbo", mapped)
}

func TestModelMapper_ExactBeatsGlob(t *testing.T) {
	m, err := NewModelMapper(map[string]string{
		"claude-3-opus-*":        "gpt-4-turbo",
		"claude-3-opus-20240229": "gpt-4o",
	}, "")
	require.NoError(t, err)

	mapped, matched := m.Map("claude-3-opus-20240229")
	assert.True(t, matched)
	assert.Equal(t, "gpt-4o", mapped)
}

func TestModelMapper_NormalizedSubstring(t *testing.T) {
	m, err := NewModelMapper(map[string]string{"claude-3.5-sonnet": "gpt-4o"}, "")
	require.NoError(t, err)

	mapped, matched := m.Map("claude-3-5-sonnet-20241022")
	assert.True(t, matched)
	assert.Equal(t, "gpt-4o", mapped)
}

func TestModelMapper_FamilyFallback(t *testing.T) {
	m, err := NewModelMapper(map[string]string{"some-haiku-alias": "gpt-4o-mini"}, "")
	require.NoError(t, err)

	mapped, matched := m.Map("claude-3-haiku-20240307")
	assert.True(t, matched)
	assert.Equal(t, "gpt-4o-mini", mapped)
}

func TestModelMapper_Passthrough(t *testing.T) {
	m, err := NewModelMapper(map[string]string{}, "")
	require.NoError(t, err)

	mapped, matched := m.Map("some-unmapped-model")
	assert.False(t, matched)
	assert.Equal(t, "some-unmapped-model", mapped)
}

func TestModelMapper_OverlayOverridesEnv(t *testing.T) {
	dir := t.TempDir()
	overlayPath := filepath.Join(dir, "mapping.yaml")
	require.NoError(t, os.WriteFile(overlayPath, []byte("model_mapping:\n  claude-3-opus: from-overlay\n"), 0644))

	m, err := NewModelMapper(map[string]string{"claude-3-opus": "from-env"}, overlayPath)
	require.NoError(t, err)

	mapped, matched := m.Map("claude-3-opus")
	assert.True(t, matched)
	assert.Equal(t, "from-overlay", mapped)
}

func TestModelMapper_ReloadPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	overlayPath := filepath.Join(dir, "mapping.yaml")
	require.NoError(t, os.WriteFile(overlayPath, []byte("model_mapping:\n  claude-3-opus: first\n"), 0644))

	m, err := NewModelMapper(nil, overlayPath)
	require.NoError(t, err)

	mapped, _ := m.Map("claude-3-opus")
	assert.Equal(t, "first", mapped)

	require.NoError(t, os.WriteFile(overlayPath, []byte("model_mapping:\n  claude-3-opus: second\n"), 0644))
	require.NoError(t, m.Reload(nil, overlayPath))

	mapped, _ = m.Map("claude-3-opus")
	assert.Equal(t, "second", mapped)
}

func TestMappingWatcher_DebouncedReload(t *testing.T) {
	dir := t.TempDir()
	overlayPath := filepath.Join(dir, "mapping.yaml")
	require.NoError(t, os.WriteFile(overlayPath, []byte("model_mapping:\n  claude-3-opus: first\n"), 0644))

	m, err := NewModelMapper(nil, overlayPath)
	require.NoError(t, err)

	watcher, err := NewMappingWatcher(m, nil, overlayPath)
	require.NoError(t, err)
	require.NoError(t, watcher.Start())
	defer watcher.Stop()

	require.NoError(t, os.WriteFile(overlayPath, []byte("model_mapping:\n  claude-3-opus: second\n"), 0644))

	require.Eventually(t, func() bool {
		mapped, _ := m.Map("claude-3-opus")
		return mapped == "second"
	}, 2*time.Second, 50*time.Millisecond)
}
