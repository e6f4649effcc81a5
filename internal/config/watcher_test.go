package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherDeliversReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, DefaultConfig().Save(path))

	var got atomic.Value
	w, err := NewWatcher(path, func(cfg *Config) {
		got.Store(cfg.UI.Theme)
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	cfg := DefaultConfig()
	cfg.UI.Theme = "dark"
	require.NoError(t, cfg.Save(path))

	assert.Eventually(t, func() bool {
		v, ok := got.Load().(string)
		return ok && v == "dark"
	}, 3*time.Second, 50*time.Millisecond)
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, DefaultConfig().Save(path))

	var fired atomic.Bool
	w, err := NewWatcher(path, func(*Config) { fired.Store(true) })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	time.Sleep(600 * time.Millisecond)
	assert.False(t, fired.Load())
}
