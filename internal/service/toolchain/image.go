package toolchain

import (
	"context"
	"fmt"

	"github.com/webtvmux/bundler/internal/logger"
)

// imageTool is the external disk-image utility delegated to.
const imageTool = "hdiutil"

// Imager wraps the external disk-image tool.
type Imager struct {
	runner Runner
	format string
}

// NewImager returns an Imager producing images in the given format
// (UDZO is the compressed read-only default).
func NewImager(runner Runner, format string) *Imager {
	return &Imager{
		runner: runner,
		format: format,
	}
}

// Create produces a single compressed disk image of the finished bundle,
// overwriting any image left by a previous build.
func (i *Imager) Create(ctx context.Context, volumeName, bundlePath, imagePath string) error {
	logger.InfoKV(ctx, "Creating disk image", "image", imagePath, "format", i.format)

	output, err := i.runner.Run(ctx, imageTool,
		"create",
		"-volname", volumeName,
		"-srcfolder", bundlePath,
		"-ov",
		"-format", i.format,
		imagePath,
	)
	if err != nil {
		return fmt.Errorf("%s: %w (output: %s)", imageTool, err, string(output))
	}

	return nil
}
