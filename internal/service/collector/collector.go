package collector

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/webtvmux/bundler/internal/config"
	"github.com/webtvmux/bundler/internal/logger"
)

// Kind says whether an entry is a regular file or a directory.
type Kind int

const (
	// KindFile is a regular file copied byte-for-byte.
	KindFile Kind = iota
	// KindDirectory is a directory recreated at the destination,
	// which keeps empty directories in the bundle.
	KindDirectory
)

// Entry maps one source path to its destination inside the resources area.
type Entry struct {
	// SourcePath is the absolute (resolved) path to read from.
	SourcePath string
	// DestinationRelPath is relative to the resources area.
	DestinationRelPath string
	// Kind distinguishes files from directories.
	Kind Kind
}

// ExclusionSet holds name prefixes that are never collected or descended into.
type ExclusionSet struct {
	prefixes []string
}

// NewExclusionSet builds a set from the configured prefixes, dropping empties.
func NewExclusionSet(prefixes []string) *ExclusionSet {
	set := &ExclusionSet{
		prefixes: make([]string, 0, len(prefixes)),
	}

	for _, p := range prefixes {
		if p != "" {
			set.prefixes = append(set.prefixes, p)
		}
	}

	return set
}

// Matches reports whether any path element of the candidate starts with an
// excluded prefix. It is checked before descending into a directory, so
// excluded trees are never traversed.
func (s *ExclusionSet) Matches(relPath string) bool {
	if s == nil || len(s.prefixes) == 0 || relPath == "" || relPath == "." {
		return false
	}

	for _, element := range strings.Split(filepath.ToSlash(relPath), "/") {
		for _, prefix := range s.prefixes {
			if strings.HasPrefix(element, prefix) {
				return true
			}
		}
	}

	return false
}

// Collect enumerates the declared resource mappings into an ordered entry
// sequence: declaration order first, lexical order within each root.
// A missing source root contributes nothing and only logs a warning; an
// unreadable candidate is dropped the same way. Collect never fails the run.
func Collect(ctx context.Context, cfg *config.Config, excl *ExclusionSet) []Entry {
	entries := make([]Entry, 0, len(cfg.Resources))

	for _, mapping := range cfg.Resources {
		sourceRoot := cfg.Resolve(mapping.Source)

		if _, err := os.Stat(sourceRoot); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				logger.WarnKV(ctx, "Resource root is missing, contributing nothing", "root", sourceRoot)
			} else {
				logger.WarnKV(ctx, "Resource root is unreadable, contributing nothing", "root", sourceRoot, "error", err)
			}

			continue
		}

		entries = append(entries, walkRoot(ctx, sourceRoot, mapping.Destination, excl)...)
	}

	logger.InfoKV(ctx, "Collected resource entries", "count", len(entries))

	return entries
}

// walkRoot walks one source root and maps its contents under the destination prefix.
// A root that is a single file maps directly to the prefix itself.
func walkRoot(ctx context.Context, sourceRoot, destinationPrefix string, excl *ExclusionSet) []Entry {
	var entries []Entry

	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.WarnKV(ctx, "Skipping unreadable resource", "path", path, "error", err)

			if d != nil && d.IsDir() {
				return fs.SkipDir
			}

			return nil
		}

		rel, relErr := filepath.Rel(sourceRoot, path)
		if relErr != nil {
			logger.WarnKV(ctx, "Skipping resource outside its root", "path", path, "error", relErr)
			return nil
		}

		destination := destinationPrefix
		if rel != "." {
			destination = filepath.Join(destinationPrefix, rel)
		}

		if excl.Matches(rel) || excl.Matches(filepath.Base(destination)) {
			logger.DebugKV(ctx, "Excluded by name prefix", "path", path)

			if d.IsDir() {
				return fs.SkipDir
			}

			return nil
		}

		switch {
		case d.IsDir():
			entries = append(entries, Entry{
				SourcePath:         path,
				DestinationRelPath: destination,
				Kind:               KindDirectory,
			})
		case d.Type().IsRegular():
			entries = append(entries, Entry{
				SourcePath:         path,
				DestinationRelPath: destination,
				Kind:               KindFile,
			})
		default:
			// Symlinks and special files are not bundled.
			logger.DebugKV(ctx, "Skipping non-regular resource", "path", path)
		}

		return nil
	}

	// Walk errors on candidates are absorbed by walkFn; an error here means
	// the root itself vanished between the stat above and the walk.
	if err := filepath.WalkDir(sourceRoot, walkFn); err != nil {
		logger.WarnKV(ctx, "Resource root walk failed", "root", sourceRoot, "error", err)
	}

	return entries
}
