package toolchain

import (
	"context"
	"fmt"

	"github.com/webtvmux/bundler/internal/logger"
)

// signTool is the external signing utility delegated to.
const signTool = "codesign"

// Signer wraps the external signing tool.
type Signer struct {
	runner   Runner
	identity string
}

// NewSigner returns a Signer using the provided identity ("-" is ad hoc).
func NewSigner(runner Runner, identity string) *Signer {
	return &Signer{
		runner:   runner,
		identity: identity,
	}
}

// Sign signs the finished bundle in place. The signature covers the final
// bundle contents, which is why signing runs after the descriptor is written
// and before the disk image is created.
func (s *Signer) Sign(ctx context.Context, bundlePath string) error {
	logger.InfoKV(ctx, "Signing bundle", "path", bundlePath, "identity", s.identity)

	output, err := s.runner.Run(ctx, signTool,
		"-s", s.identity,
		"--deep",
		"--force",
		bundlePath,
	)
	if err != nil {
		return fmt.Errorf("%s: %w (output: %s)", signTool, err, string(output))
	}

	return nil
}
