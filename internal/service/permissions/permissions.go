package permissions

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/webtvmux/bundler/internal/logger"
)

// Normalize walks the helper-binaries directory and applies the configured
// permission bits to every regular file, so bundled native tools stay
// executable after the copy. Symlinks and directories are left untouched;
// a chmod failure on one file is warned about and the walk continues.
// A missing directory is not an error: the bundle may simply carry no helpers.
func Normalize(ctx context.Context, dir string, mode os.FileMode) error {
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		logger.DebugKV(ctx, "No helper binaries to normalize", "dir", dir)
		return nil
	}

	normalized := 0

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// WalkDir does not follow symlinks, so d.Type() reflects the link itself.
		if !d.Type().IsRegular() {
			return nil
		}

		if chmodErr := os.Chmod(path, mode); chmodErr != nil {
			logger.WarnKV(ctx, "Failed to normalize permissions", "path", path, "error", chmodErr)
			return nil
		}

		normalized++

		return nil
	})
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Normalized helper binary permissions", "dir", dir, "files", normalized, "mode", mode.String())

	return nil
}
