package assembler

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/webtvmux/bundler/internal/logger"
	"github.com/webtvmux/bundler/internal/service/collector"
)

const (
	// ExecutableSubpath holds the compiled executable and its dependency closure.
	ExecutableSubpath = "Contents/MacOS"

	// ResourcesSubpath holds helper binaries and configuration resources,
	// beside the executable area.
	ResourcesSubpath = "Contents/Resources"

	// defaultDirMode is used for directories created inside the bundle.
	defaultDirMode = 0o755
)

// Tree is the canonical on-disk bundle layout.
type Tree struct {
	// Root is the bundle's top-level directory (<staging>/<App>.app).
	Root string
	// ExecutableDir is Root joined with ExecutableSubpath.
	ExecutableDir string
	// ResourcesDir is Root joined with ResourcesSubpath.
	ResourcesDir string
}

// New creates the executable and resources areas under root. Creation is
// idempotent for directories; a pre-existing regular file at either path is
// an error. Both areas exist before any resource copy starts.
func New(root string) (*Tree, error) {
	tree := &Tree{
		Root:          root,
		ExecutableDir: filepath.Join(root, filepath.FromSlash(ExecutableSubpath)),
		ResourcesDir:  filepath.Join(root, filepath.FromSlash(ResourcesSubpath)),
	}

	for _, dir := range []string{tree.ExecutableDir, tree.ResourcesDir} {
		if err := mkdirAll(dir, defaultDirMode); err != nil {
			return nil, fmt.Errorf("create bundle tree: %w", err)
		}
	}

	return tree, nil
}

// InstallArtifact copies the upstream build output into the executable area.
// This artifact is mandatory, so any failure is returned to abort the run.
func (t *Tree) InstallArtifact(ctx context.Context, artifactDir string) error {
	logger.InfoKV(ctx, "Installing executable artifact", "source", artifactDir, "destination", t.ExecutableDir)

	if err := copyTree(artifactDir, t.ExecutableDir); err != nil {
		return fmt.Errorf("install executable artifact: %w", err)
	}

	return nil
}

// InstallResources copies the surviving entries into the resources area,
// creating intermediate directories as needed. A per-entry failure is
// warned about and skipped; InstallResources reports how many entries landed.
func (t *Tree) InstallResources(ctx context.Context, entries []collector.Entry) int {
	installed := 0

	for _, entry := range entries {
		destination := filepath.Join(t.ResourcesDir, entry.DestinationRelPath)

		var err error

		switch entry.Kind {
		case collector.KindDirectory:
			err = mkdirAll(destination, defaultDirMode)
		case collector.KindFile:
			if err = mkdirAll(filepath.Dir(destination), defaultDirMode); err == nil {
				err = copyFile(entry.SourcePath, destination)
			}
		}

		if err != nil {
			logger.WarnKV(ctx, "Failed to install resource", "source", entry.SourcePath, "error", err)
			continue
		}

		installed++
	}

	logger.InfoKV(ctx, "Installed resources", "installed", installed, "declared", len(entries))

	return installed
}
