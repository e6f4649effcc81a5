package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "ForumKit", cfg.Name)
	assert.Equal(t, 2000, cfg.Realtime.DedupCacheSize)
	assert.True(t, cfg.Guard.Enabled)
	assert.False(t, cfg.Logging.DebugMode)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  base_url: https://forum.campus.test
realtime:
  dedup_cache_size: 500
ui:
  theme: dark
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://forum.campus.test", cfg.Server.BaseURL)
	assert.Equal(t, 500, cfg.Realtime.DedupCacheSize)
	assert.Equal(t, "dark", cfg.UI.Theme)
	// Untouched sections keep defaults
	assert.Equal(t, "25s", cfg.Realtime.PingInterval)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.UI.PageSize = 50
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, loaded.UI.PageSize)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("base url", func(t *testing.T) {
		t.Setenv("FORUMKIT_BASE_URL", "https://override.test")

		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "https://override.test", cfg.Server.BaseURL)
	})

	t.Run("guard opt-out", func(t *testing.T) {
		t.Setenv("FORUMKIT_NO_GUARD", "1")

		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		assert.False(t, cfg.Guard.Enabled)
	})

	t.Run("log level enables debug mode", func(t *testing.T) {
		t.Setenv("FORUMKIT_LOG_LEVEL", "debug")

		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.True(t, cfg.Logging.DebugMode)
	})
}

func TestLoggingCategoryFilter(t *testing.T) {
	lc := LoggingConfig{DebugMode: true, Categories: map[string]bool{"guard": false}}
	assert.False(t, lc.IsCategoryEnabled("guard"))
	assert.True(t, lc.IsCategoryEnabled("api"))

	lc.DebugMode = false
	assert.False(t, lc.IsCategoryEnabled("api"))
}
