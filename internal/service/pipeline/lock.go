package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/webtvmux/bundler/internal/logger"
)

const (
	// markerFilename marks that a bundler run is in progress, so concurrent
	// invocations against the same output root fail fast instead of racing.
	markerFilename = "webtvmux-bundler-run-marker.bin"

	// markerLifetime is the period after which a marker is considered stale.
	markerLifetime = 10 * time.Minute

	// bundlerProcessName is the executable name scanned for during stale
	// marker recovery.
	bundlerProcessName = "webtvmux-bundler"

	// markerFileMode restricts the marker to the invoking user.
	markerFileMode os.FileMode = 0o600
)

// errBundlerRunning indicates another run holds the output root.
var errBundlerRunning = errors.New("another bundler run is in progress")

// acquireLock claims the advisory run marker inside the output directory.
// A fresh marker aborts immediately; a stale one is reclaimed unless a live
// bundler process is still found.
func (p *pipeline) acquireLock(ctx context.Context) error {
	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p.lockPath = filepath.Join(p.cfg.OutputDir, markerFilename)

	info, err := os.Stat(p.lockPath)

	switch {
	case err == nil:
		if time.Since(info.ModTime()) <= markerLifetime {
			return fmt.Errorf("%s: %w", p.lockPath, errBundlerRunning)
		}

		logger.Info(ctx, "The run marker is stale, attempting recovery")

		alive, aliveErr := anotherBundlerAlive()
		if aliveErr != nil {
			return fmt.Errorf("scan for running bundler: %w", aliveErr)
		}

		if alive {
			return fmt.Errorf("stale marker but live process: %w", errBundlerRunning)
		}

		if err = os.Remove(p.lockPath); err != nil {
			return fmt.Errorf("remove stale run marker: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Nothing to recover.
	default:
		return fmt.Errorf("read run marker: %w", err)
	}

	pid := []byte(strconv.Itoa(os.Getpid()))
	if err = os.WriteFile(p.lockPath, pid, markerFileMode); err != nil {
		return fmt.Errorf("write run marker: %w", err)
	}

	p.lockHeld = true

	return nil
}

// releaseLock removes the run marker claimed by acquireLock.
func (p *pipeline) releaseLock(ctx context.Context) {
	if !p.lockHeld {
		return
	}

	if err := os.Remove(p.lockPath); err != nil {
		logger.WarnKV(ctx, "Failed to remove run marker", "path", p.lockPath, "error", err)
		return
	}

	p.lockHeld = false
}

// anotherBundlerAlive reports whether a different bundler process exists.
func anotherBundlerAlive() (bool, error) {
	processList, err := ps.Processes()
	if err != nil {
		return false, err
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if strings.TrimSuffix(process.Executable(), ".exe") == bundlerProcessName {
			return true, nil
		}
	}

	return false, nil
}
