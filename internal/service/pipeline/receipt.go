package pipeline

import (
	"context"
	"crypto"
	"encoding/base64"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/webtvmux/bundler/internal/logger"
	"github.com/webtvmux/bundler/internal/service/assembler"
	"github.com/webtvmux/bundler/internal/version"

	// Ensure SHA512 is available for checksum calculation.
	_ "crypto/sha512"
)

const (
	// ReceiptFilename is written beside the published bundle after a
	// successful run. The receipt is informational only.
	ReceiptFilename = "webtvmux-build-receipt.yaml"

	// receiptChecksumFunction hashes the bundled helper binaries.
	receiptChecksumFunction crypto.Hash = crypto.SHA512

	// receiptFileMode keeps the receipt readable for CI consumers.
	receiptFileMode os.FileMode = 0o644
)

// receipt records what a run produced and who produced it.
type receipt struct {
	// VersionNumber is the version stamped into the descriptor.
	VersionNumber string `yaml:"version"`
	// BundlerVersion is the bundler's own build version.
	BundlerVersion string `yaml:"bundler_version"`
	// BundleID identifies the packaged application.
	BundleID string `yaml:"bundle_id"`
	// BundlePath is the published bundle root.
	BundlePath string `yaml:"bundle"`
	// CreatedAt is when the run finished assembling.
	CreatedAt time.Time `yaml:"created_at"`
	// Hostname and Username identify the packaging machine and user.
	Hostname string `yaml:"hostname"`
	Username string `yaml:"username"`
	// HelperChecksums maps helper binary names to base64 SHA-512 digests.
	HelperChecksums map[string]string `yaml:"helper_checksums"`
}

// writeReceipt emits the build receipt. Every failure here is absorbed:
// the receipt never decides the run's outcome.
func (p *pipeline) writeReceipt(ctx context.Context, st *state) {
	rec := &receipt{
		VersionNumber:   p.cfg.VersionNumber,
		BundlerVersion:  version.Short(),
		BundleID:        p.cfg.BundleID,
		BundlePath:      st.bundlePath,
		CreatedAt:       time.Now().UTC(),
		HelperChecksums: map[string]string{},
	}

	if rec.VersionNumber == "" {
		rec.VersionNumber = version.Short()
	}

	if hostname, err := os.Hostname(); err == nil {
		rec.Hostname = hostname
	}

	if currentUser, err := user.Current(); err == nil {
		rec.Username = currentUser.Username
	}

	helpersDir := filepath.Join(st.bundlePath,
		filepath.FromSlash(assembler.ResourcesSubpath), p.cfg.HelperBinariesDir)

	if err := collectChecksums(helpersDir, rec.HelperChecksums); err != nil {
		logger.WarnKV(ctx, "Failed to checksum helper binaries for the receipt", "error", err)
	}

	contents, err := yaml.Marshal(rec)
	if err != nil {
		logger.WarnKV(ctx, "Failed to render build receipt", "error", err)
		return
	}

	path := filepath.Join(p.cfg.OutputDir, ReceiptFilename)
	if err = os.WriteFile(path, contents, receiptFileMode); err != nil {
		logger.WarnKV(ctx, "Failed to write build receipt", "path", path, "error", err)
		return
	}

	logger.InfoKV(ctx, "Wrote build receipt", "path", path)
}

// collectChecksums hashes every regular file under dir into the map,
// keyed by path relative to dir. A missing dir contributes nothing.
func collectChecksums(dir string, into map[string]string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return nil //nolint:nilerr // unreadable candidates are skipped, not fatal
		}

		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return nil
		}

		sum, sumErr := fileChecksum(path)
		if sumErr != nil {
			return sumErr
		}

		into[rel] = base64.StdEncoding.EncodeToString(sum)

		return nil
	})
}

// fileChecksum returns checksum bytes for a file using receiptChecksumFunction.
func fileChecksum(path string) ([]byte, error) {
	if !receiptChecksumFunction.Available() {
		return nil, fmt.Errorf("%v: hash function unavailable", receiptChecksumFunction)
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = f.Close()
	}()

	hasher := receiptChecksumFunction.New()
	if _, err = io.Copy(hasher, f); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}
