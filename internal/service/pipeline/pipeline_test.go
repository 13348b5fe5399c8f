package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/webtvmux/bundler/internal/config"
)

// testConfig returns a minimal validated config rooted in a temp directory.
func testConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		AppName:     "WebTvMux",
		BundleID:    "com.webtvmux.app",
		ArtifactDir: filepath.Join(dir, "build"),
		OutputDir:   filepath.Join(dir, "dist"),
	}
	require.NoError(t, config.Validate(cfg))

	return cfg
}

// TestIsTruthy covers the environment switch sentinels.
func TestIsTruthy(t *testing.T) {
	t.Parallel()

	for _, v := range []string{"1", "true", "TRUE", "yes", "on", " on "} {
		require.True(t, isTruthy(v), v)
	}

	for _, v := range []string{"", "0", "false", "off", "nope"} {
		require.False(t, isTruthy(v), v)
	}
}

// TestAcquireLock_SecondRunFailsFast rejects a concurrent run holding a
// fresh marker.
func TestAcquireLock_SecondRunFailsFast(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	ctx := context.Background()

	first := &pipeline{cfg: cfg}
	require.NoError(t, first.acquireLock(ctx))

	second := &pipeline{cfg: cfg}
	err := second.acquireLock(ctx)
	require.ErrorIs(t, err, errBundlerRunning)

	first.releaseLock(ctx)

	_, err = os.Stat(first.lockPath)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestAcquireLock_ReclaimsStaleMarker recovers a marker older than its
// lifetime when no live bundler process is found.
func TestAcquireLock_ReclaimsStaleMarker(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	ctx := context.Background()

	stale := &pipeline{cfg: cfg}
	require.NoError(t, stale.acquireLock(ctx))

	old := time.Now().Add(-2 * markerLifetime)
	require.NoError(t, os.Chtimes(stale.lockPath, old, old))

	fresh := &pipeline{cfg: cfg}
	require.NoError(t, fresh.acquireLock(ctx))

	fresh.releaseLock(ctx)
}

// TestCleanStale removes the previous bundle and staging leftovers.
func TestCleanStale(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	staleBundle := filepath.Join(cfg.OutputDir, cfg.BundleName())
	require.NoError(t, os.MkdirAll(filepath.Join(staleBundle, "Contents"), 0o755))
	require.NoError(t, os.MkdirAll(cfg.StagingDir, 0o755))

	p := &pipeline{cfg: cfg}
	require.NoError(t, p.cleanStale(context.Background()))

	for _, path := range []string{staleBundle, cfg.StagingDir} {
		_, err := os.Stat(path)
		require.ErrorIs(t, err, os.ErrNotExist)
	}
}
