package toolchain

import (
	"context"
	"os/exec"
)

// Runner executes an external tool from an argument list. No shell is
// involved, so arguments never need quoting.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner is the production Runner backed by os/exec.
type execRunner struct{}

// NewRunner returns a Runner that launches real subprocesses.
//
//nolint:ireturn // Callers program against the interface so tests can fake tools.
func NewRunner() Runner {
	return execRunner{}
}

// Run executes the tool and returns its combined output alongside the exit error.
func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
