package descriptor

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/webtvmux/bundler/internal/config"
	"github.com/webtvmux/bundler/internal/logger"
	"github.com/webtvmux/bundler/internal/version"
)

const (
	// Subpath is where the descriptor lives inside the bundle root.
	Subpath = "Contents/Info.plist"

	// fileMode keeps the descriptor world-readable like the rest of the bundle.
	fileMode os.FileMode = 0o644
)

// value is one descriptor value; exactly one representation is used per key.
type value struct {
	text   string
	truthy bool
	isBool bool
}

// Descriptor is an order-stable mapping of descriptor keys to values.
// Equal inputs render byte-identical output across runs.
type Descriptor struct {
	keys   []string
	values map[string]value
}

// New returns an empty descriptor.
func New() *Descriptor {
	return &Descriptor{
		values: make(map[string]value),
	}
}

// Set stores a string value, keeping first-insertion key order.
func (d *Descriptor) Set(key, text string) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}

	d.values[key] = value{text: text}
}

// SetBool stores a boolean value, keeping first-insertion key order.
func (d *Descriptor) SetBool(key string, truthy bool) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}

	d.values[key] = value{truthy: truthy, isBool: true}
}

// ForBundle builds the descriptor the host OS shell expects for the bundle.
// Version strings fall back to the bundler's own build version when the
// config leaves them empty.
func ForBundle(cfg *config.Config, executableName string) *Descriptor {
	versionNumber := cfg.VersionNumber
	if versionNumber == "" {
		versionNumber = version.Short()
	}

	shortVersion := cfg.ShortVersion
	if shortVersion == "" {
		shortVersion = versionNumber
	}

	d := New()
	d.Set("CFBundleName", cfg.AppName)
	d.Set("CFBundleDisplayName", cfg.AppName)
	d.Set("CFBundleIdentifier", cfg.BundleID)
	d.Set("CFBundleVersion", versionNumber)
	d.Set("CFBundleShortVersionString", shortVersion)
	d.Set("CFBundleExecutable", executableName)
	d.Set("CFBundlePackageType", "APPL")
	d.SetBool("NSHighResolutionCapable", cfg.HighResolutionCapable)

	return d
}

// Render serializes the descriptor into the property-list text format.
// Output is deterministic: keys appear in insertion order and the
// rendering has no time- or map-iteration-dependent parts.
func (d *Descriptor) Render() []byte {
	var b strings.Builder

	b.WriteString(xml.Header)
	b.WriteString("<!DOCTYPE plist PUBLIC \"-//Apple//DTD PLIST 1.0//EN\" \"http://www.apple.com/DTDs/PropertyList-1.0.dtd\">\n")
	b.WriteString("<plist version=\"1.0\">\n<dict>\n")

	for _, key := range d.keys {
		v := d.values[key]

		b.WriteString("\t<key>")
		_ = xml.EscapeText(&b, []byte(key))
		b.WriteString("</key>\n")

		switch {
		case v.isBool && v.truthy:
			b.WriteString("\t<true/>\n")
		case v.isBool:
			b.WriteString("\t<false/>\n")
		default:
			b.WriteString("\t<string>")
			_ = xml.EscapeText(&b, []byte(v.text))
			b.WriteString("</string>\n")
		}
	}

	b.WriteString("</dict>\n</plist>\n")

	return []byte(b.String())
}

// Write emits the descriptor to its fixed path inside the bundle root,
// overwriting any previous file. It is the last artifact touched before
// signing, written exactly once per build.
func (d *Descriptor) Write(ctx context.Context, bundleRoot string) error {
	path := filepath.Join(bundleRoot, filepath.FromSlash(Subpath))

	if err := os.WriteFile(path, d.Render(), fileMode); err != nil {
		return fmt.Errorf("write descriptor: %w", err)
	}

	logger.InfoKV(ctx, "Wrote bundle descriptor", "path", path)

	return nil
}
