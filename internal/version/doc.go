// Package version exposes build metadata for the bundler.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags and default to sensible values for local builds.
// The descriptor falls back to Short when the bundle config omits a version.
package version
