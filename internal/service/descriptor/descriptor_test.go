package descriptor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/webtvmux/bundler/internal/config"
)

func bundleConfig() *config.Config {
	return &config.Config{
		AppName:               "WebTvMux",
		BundleID:              "com.webtvmux.app",
		VersionNumber:         "2.3.1",
		ShortVersion:          "2.3",
		HighResolutionCapable: true,
	}
}

// TestForBundle_RequiredKeys checks the descriptor carries identity,
// version strings, and the high-resolution flag.
func TestForBundle_RequiredKeys(t *testing.T) {
	t.Parallel()

	rendered := string(ForBundle(bundleConfig(), "webtvmux").Render())

	require.Contains(t, rendered, "<key>CFBundleDisplayName</key>")
	require.Contains(t, rendered, "<string>WebTvMux</string>")
	require.Contains(t, rendered, "<string>com.webtvmux.app</string>")
	require.Contains(t, rendered, "<string>2.3.1</string>")
	require.Contains(t, rendered, "<string>2.3</string>")
	require.Contains(t, rendered, "<string>webtvmux</string>")
	require.Contains(t, rendered, "<key>NSHighResolutionCapable</key>")
	require.Contains(t, rendered, "<true/>")
}

// TestRender_Deterministic renders twice and expects identical bytes.
func TestRender_Deterministic(t *testing.T) {
	t.Parallel()

	first := ForBundle(bundleConfig(), "webtvmux").Render()
	second := ForBundle(bundleConfig(), "webtvmux").Render()

	require.Equal(t, first, second)
}

// TestRender_EscapesMarkup keeps XML-special characters intact.
func TestRender_EscapesMarkup(t *testing.T) {
	t.Parallel()

	d := New()
	d.Set("CFBundleName", "Tools & <Toys>")

	rendered := string(d.Render())
	require.Contains(t, rendered, "Tools &amp; &lt;Toys&gt;")
}

// TestWrite_OverwritesExistingDescriptor writes to the fixed bundle path.
func TestWrite_OverwritesExistingDescriptor(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Contents"), 0o755))

	path := filepath.Join(root, "Contents", "Info.plist")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	d := ForBundle(bundleConfig(), "webtvmux")
	require.NoError(t, d.Write(context.Background(), root))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, d.Render(), contents)
}

// TestForBundle_VersionFallback fills version strings when the config omits them.
func TestForBundle_VersionFallback(t *testing.T) {
	t.Parallel()

	cfg := bundleConfig()
	cfg.VersionNumber = ""
	cfg.ShortVersion = ""

	rendered := string(ForBundle(cfg, "webtvmux").Render())
	require.Contains(t, rendered, "<key>CFBundleVersion</key>")
	require.NotContains(t, rendered, "<string></string>")
}
