package assembler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/webtvmux/bundler/internal/service/collector"
)

// TestNew_CreatesAreasIdempotently creates the tree twice without error.
func TestNew_CreatesAreasIdempotently(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "WebTvMux.app")

	tree, err := New(root)
	require.NoError(t, err)

	for _, dir := range []string{tree.ExecutableDir, tree.ResourcesDir} {
		info, statErr := os.Stat(dir)
		require.NoError(t, statErr)
		require.True(t, info.IsDir())
	}

	_, err = New(root)
	require.NoError(t, err)
}

// TestNew_FileAtAreaPathIsAnError rejects a regular file occupying an area path.
func TestNew_FileAtAreaPathIsAnError(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "WebTvMux.app")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Contents"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Contents", "MacOS"), []byte("x"), 0o644))

	_, err := New(root)
	require.Error(t, err)
}

// TestInstallArtifact copies the whole upstream output tree.
func TestInstallArtifact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	artifact := filepath.Join(dir, "build")
	require.NoError(t, os.MkdirAll(filepath.Join(artifact, "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(artifact, "webtvmux"), []byte("exe"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(artifact, "lib", "dep.dylib"), []byte("lib"), 0o644))

	tree, err := New(filepath.Join(dir, "WebTvMux.app"))
	require.NoError(t, err)

	require.NoError(t, tree.InstallArtifact(context.Background(), artifact))

	contents, err := os.ReadFile(filepath.Join(tree.ExecutableDir, "webtvmux"))
	require.NoError(t, err)
	require.Equal(t, "exe", string(contents))

	_, err = os.Stat(filepath.Join(tree.ExecutableDir, "lib", "dep.dylib"))
	require.NoError(t, err)
}

// TestInstallArtifact_MissingSourceFails surfaces the mandatory-artifact failure.
func TestInstallArtifact_MissingSourceFails(t *testing.T) {
	t.Parallel()

	tree, err := New(filepath.Join(t.TempDir(), "WebTvMux.app"))
	require.NoError(t, err)

	err = tree.InstallArtifact(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

// TestInstallResources copies entries with intermediate directories and
// keeps going past a failing entry.
func TestInstallResources(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(source, []byte("{}"), 0o644))

	tree, err := New(filepath.Join(dir, "WebTvMux.app"))
	require.NoError(t, err)

	entries := []collector.Entry{
		{SourcePath: filepath.Join(dir, "missing.bin"), DestinationRelPath: "bin/missing", Kind: collector.KindFile},
		{SourcePath: source, DestinationRelPath: filepath.Join("config", "settings.json"), Kind: collector.KindFile},
		{SourcePath: dir, DestinationRelPath: "empty", Kind: collector.KindDirectory},
	}

	installed := tree.InstallResources(context.Background(), entries)
	require.Equal(t, 2, installed)

	contents, err := os.ReadFile(filepath.Join(tree.ResourcesDir, "config", "settings.json"))
	require.NoError(t, err)
	require.Equal(t, "{}", string(contents))

	info, err := os.Stat(filepath.Join(tree.ResourcesDir, "empty"))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
