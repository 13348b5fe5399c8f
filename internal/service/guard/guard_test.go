package guard

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/webtvmux/bundler/internal/config"
	"github.com/webtvmux/bundler/internal/service/collector"
)

// TestFilter_DropsEntriesUnderOutputAndStaging removes sources that resolve
// inside either pipeline-owned root.
func TestFilter_DropsEntriesUnderOutputAndStaging(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	output := filepath.Join(dir, "dist")
	staging := filepath.Join(dir, "dist", ".staging")

	entries := []collector.Entry{
		{SourcePath: filepath.Join(dir, "bin", "tool-a"), DestinationRelPath: filepath.Join("bin", "tool-a")},
		{SourcePath: filepath.Join(output, "WebTvMux.app", "old"), DestinationRelPath: "old"},
		{SourcePath: filepath.Join(staging, "tmp"), DestinationRelPath: "tmp"},
	}

	kept := Filter(context.Background(), entries, output, staging, "WebTvMux.app")
	require.Len(t, kept, 1)
	require.Equal(t, filepath.Join(dir, "bin", "tool-a"), kept[0].SourcePath)
}

// TestFilter_DropsDestinationNamedAfterBundle rejects destinations whose
// name equals the bundle's top-level output name.
func TestFilter_DropsDestinationNamedAfterBundle(t *testing.T) {
	t.Parallel()

	entries := []collector.Entry{
		{SourcePath: "/src/WebTvMux.app", DestinationRelPath: "WebTvMux.app"},
		{SourcePath: "/src/readme.txt", DestinationRelPath: "readme.txt"},
	}

	kept := Filter(context.Background(), entries, "/out", "/out/.staging", "WebTvMux.app")
	require.Len(t, kept, 1)
	require.Equal(t, "readme.txt", kept[0].DestinationRelPath)
}

// TestFilter_SiblingPrefixNotConfused ensures "dist-extra" is not treated
// as lying under "dist".
func TestFilter_SiblingPrefixNotConfused(t *testing.T) {
	t.Parallel()

	entries := []collector.Entry{
		{SourcePath: "/work/dist-extra/data.bin", DestinationRelPath: "data.bin"},
	}

	kept := Filter(context.Background(), entries, "/work/dist", "/work/dist/.staging", "X.app")
	require.Len(t, kept, 1)
}

// TestRecursionSafety_StaleOutputYieldsNothing re-runs collection over a
// staging root already holding a previous bundle and expects the guard to
// drop every contribution from inside it.
func TestRecursionSafety_StaleOutputYieldsNothing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	staleBundle := filepath.Join(dir, "WebTvMux.app", "Contents", "Resources")
	require.NoError(t, os.MkdirAll(staleBundle, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(staleBundle, "leftover.bin"), []byte("x"), 0o644))

	cfg := &config.Config{
		ProjectRoot: dir,
		Resources: []config.ResourceMapping{
			{Source: ".", Destination: "payload"},
		},
	}

	entries := collector.Collect(context.Background(), cfg, collector.NewExclusionSet(nil))
	require.NotEmpty(t, entries)

	kept := Filter(context.Background(), entries, dir, filepath.Join(dir, ".staging"), "WebTvMux.app")
	require.Empty(t, kept)
}
