package guard

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/webtvmux/bundler/internal/logger"
	"github.com/webtvmux/bundler/internal/service/collector"
)

// Filter drops every entry that would copy the pipeline's own output back
// into itself: sources under the output or staging root, and destinations
// named after the bundle's top-level output. Without this filter a re-run
// against a tree still holding the previous bundle duplicates the bundle
// into itself on every invocation. Drops are debug-logged, never fatal.
func Filter(ctx context.Context, entries []collector.Entry, outputRoot, stagingRoot, bundleName string) []collector.Entry {
	outputRoot = absolute(outputRoot)
	stagingRoot = absolute(stagingRoot)

	kept := make([]collector.Entry, 0, len(entries))

	for _, entry := range entries {
		source := absolute(entry.SourcePath)

		switch {
		case within(source, outputRoot):
			logger.DebugKV(ctx, "Dropping entry inside output root", "source", entry.SourcePath)
		case within(source, stagingRoot):
			logger.DebugKV(ctx, "Dropping entry inside staging root", "source", entry.SourcePath)
		case bundleName != "" && filepath.Base(entry.DestinationRelPath) == bundleName:
			logger.DebugKV(ctx, "Dropping entry named after the bundle output", "destination", entry.DestinationRelPath)
		default:
			kept = append(kept, entry)
		}
	}

	if dropped := len(entries) - len(kept); dropped > 0 {
		logger.DebugKV(ctx, "Recursion guard dropped entries", "dropped", dropped, "kept", len(kept))
	}

	return kept
}

// absolute best-effort resolves a path; on failure the cleaned input is used,
// which still catches the common same-working-directory recursion case.
func absolute(path string) string {
	if path == "" {
		return ""
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}

	return abs
}

// within reports whether path lies under root (or equals it).
func within(path, root string) bool {
	if root == "" || path == "" {
		return false
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
