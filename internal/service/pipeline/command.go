package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/webtvmux/bundler/internal/config"
	"github.com/webtvmux/bundler/internal/logger"
	"github.com/webtvmux/bundler/internal/service/assembler"
	"github.com/webtvmux/bundler/internal/service/collector"
	"github.com/webtvmux/bundler/internal/service/descriptor"
	"github.com/webtvmux/bundler/internal/service/guard"
	"github.com/webtvmux/bundler/internal/service/permissions"
	"github.com/webtvmux/bundler/internal/service/poller"
	"github.com/webtvmux/bundler/internal/service/toolchain"
)

// EnvSkipPostProcess suppresses the post-processing stages (signing and
// disk-image creation) when set to a truthy value. The upstream build tool
// sets it so the pipeline never invokes external tooling from inside the
// build that is still constructing its input.
const EnvSkipPostProcess = "WEBTVMUX_BUNDLER_SKIP_POSTPROCESS"

// Options contains inputs for the pipeline entry point.
type Options struct {
	// ConfigPath is an optional path to the bundle configuration
	// (defaults to webtvmux-bundler.yaml).
	ConfigPath string
	// OutputDir overrides the configured output directory when non-empty.
	OutputDir string
	// SkipSigning disables the signing step regardless of configuration.
	SkipSigning bool
}

// pipeline sequences the packaging stages for a single run. It is
// unexported—callers should use Run, which encapsulates setup and locking.
type pipeline struct {
	// cfg holds the validated bundle configuration.
	cfg *config.Config
	// runner launches the external signing and imaging tools.
	runner toolchain.Runner
	// artifactPoller gates entry into the stage chain on the upstream build.
	artifactPoller *poller.Poller
	// skipPostProcess mirrors the environment switch at startup.
	skipPostProcess bool
	// lockPath and lockHeld track the advisory run marker.
	lockPath string
	lockHeld bool
}

// state carries the artifacts produced by each stage to the next one.
// Stages never share anything through package-level variables.
type state struct {
	// entries are the collected, guard-filtered resource entries.
	entries []collector.Entry
	// tree is the bundle layout assembled in the staging area.
	tree *assembler.Tree
	// stagingBundle is the bundle root inside the staging directory.
	stagingBundle string
	// bundlePath is the published bundle root inside the output directory.
	bundlePath string
}

// Run executes the packaging workflow end to end.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "webtvmux-bundler")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	if opts.OutputDir != "" {
		cfg.SetOutputDir(opts.OutputDir)
	}

	if opts.SkipSigning {
		cfg.SigningEnabled = false
	}

	p, err := newPipeline(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize pipeline: %w", err)
	}

	defer p.releaseLock(ctx)

	if err = p.Run(ctx); err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	logger.Info(ctx, "Packaging pipeline completed successfully")

	return nil
}

// newPipeline wires the stages together and claims the advisory run lock.
func newPipeline(ctx context.Context, cfg *config.Config) (*pipeline, error) {
	p := &pipeline{
		cfg:    cfg,
		runner: toolchain.NewRunner(),
		artifactPoller: poller.New(poller.Policy{
			Interval:    time.Duration(cfg.PollInterval),
			MaxAttempts: cfg.PollMaxAttempts,
		}),
		skipPostProcess: isTruthy(os.Getenv(EnvSkipPostProcess)),
	}

	if err := p.acquireLock(ctx); err != nil {
		return nil, err
	}

	return p, nil
}

// Run sequences the stages. Only structural failures (stale-state cleanup,
// readiness timeout, tree creation, mandatory artifact copy, publication)
// abort the run; everything else degrades to warnings.
func (p *pipeline) Run(ctx context.Context) error {
	st := new(state)

	if err := p.cleanStale(ctx); err != nil {
		return err
	}

	p.collect(ctx, st)

	if err := p.awaitArtifact(ctx); err != nil {
		return err
	}

	p.guardEntries(ctx, st)

	if err := p.assemble(ctx, st); err != nil {
		return err
	}

	p.normalize(ctx, st)

	if err := p.writeDescriptor(ctx, st); err != nil {
		return err
	}

	if err := p.publish(ctx, st); err != nil {
		return err
	}

	p.writeReceipt(ctx, st)

	if p.skipPostProcess {
		logger.InfoKV(ctx, "Post-processing suppressed by environment switch", "variable", EnvSkipPostProcess)
		return nil
	}

	p.sign(ctx, st)
	p.createImage(ctx, st)

	return nil
}

// cleanStale removes the previous run's bundle and staging leftovers so a
// re-run never copies its own prior output.
func (p *pipeline) cleanStale(ctx context.Context) error {
	staleBundle := filepath.Join(p.cfg.OutputDir, p.cfg.BundleName())

	for _, path := range []string{staleBundle, p.cfg.StagingDir} {
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("clean stale build state %s: %w", path, err)
		}

		logger.DebugKV(ctx, "Cleaned stale build state", "path", path)
	}

	return nil
}

// collect enumerates the declared resources into the run state.
func (p *pipeline) collect(ctx context.Context, st *state) {
	excl := collector.NewExclusionSet(p.cfg.ExcludedNames)
	st.entries = collector.Collect(ctx, p.cfg, excl)
}

// awaitArtifact blocks until the upstream build output exists. On timeout
// the whole run aborts before any tree-assembly side effect.
func (p *pipeline) awaitArtifact(ctx context.Context) error {
	artifactDir := p.cfg.Resolve(p.cfg.ArtifactDir)

	logger.InfoKV(ctx, "Waiting for upstream build artifact", "path", artifactDir)

	if err := p.artifactPoller.Wait(ctx, artifactDir); err != nil {
		return fmt.Errorf("upstream artifact: %w", err)
	}

	return nil
}

// guardEntries runs the recursion filter over the collected entries.
func (p *pipeline) guardEntries(ctx context.Context, st *state) {
	st.entries = guard.Filter(ctx, st.entries, p.cfg.OutputDir, p.cfg.StagingDir, p.cfg.BundleName())

	p.warnIfHelpersMissing(ctx, st)
}

// warnIfHelpersMissing flags a bundle without helper binaries early: the
// packaged application refuses to start when they are absent.
func (p *pipeline) warnIfHelpersMissing(ctx context.Context, st *state) {
	if p.cfg.HelperBinariesDir == "" {
		return
	}

	prefix := p.cfg.HelperBinariesDir + string(filepath.Separator)
	for _, entry := range st.entries {
		if entry.Kind == collector.KindFile && strings.HasPrefix(entry.DestinationRelPath, prefix) {
			return
		}
	}

	logger.WarnKV(ctx, "No helper binaries were collected; the packaged application cannot run without them",
		"expected_dir", p.cfg.HelperBinariesDir)
}

// assemble builds the bundle tree in the staging area and installs the
// mandatory artifact plus the surviving resources.
func (p *pipeline) assemble(ctx context.Context, st *state) error {
	st.stagingBundle = filepath.Join(p.cfg.StagingDir, p.cfg.BundleName())

	tree, err := assembler.New(st.stagingBundle)
	if err != nil {
		return err
	}

	st.tree = tree

	if err = tree.InstallArtifact(ctx, p.cfg.Resolve(p.cfg.ArtifactDir)); err != nil {
		return err
	}

	tree.InstallResources(ctx, st.entries)

	return nil
}

// normalize sets executable bits on the bundled helper binaries.
func (p *pipeline) normalize(ctx context.Context, st *state) {
	helpersDir := filepath.Join(st.tree.ResourcesDir, p.cfg.HelperBinariesDir)

	if err := permissions.Normalize(ctx, helpersDir, p.cfg.PermissionBits); err != nil {
		logger.WarnKV(ctx, "Permission normalization walk failed", "dir", helpersDir, "error", err)
	}
}

// writeDescriptor emits the bundle metadata as the tree's final artifact.
func (p *pipeline) writeDescriptor(ctx context.Context, st *state) error {
	return descriptor.ForBundle(p.cfg, p.cfg.ExecutableName).Write(ctx, st.stagingBundle)
}

// publish moves the finished tree from staging into the output directory in
// one rename, so a concurrent reader never observes a partial bundle.
func (p *pipeline) publish(ctx context.Context, st *state) error {
	st.bundlePath = filepath.Join(p.cfg.OutputDir, p.cfg.BundleName())

	if err := os.RemoveAll(st.bundlePath); err != nil {
		return fmt.Errorf("clear publish target: %w", err)
	}

	if err := os.Rename(st.stagingBundle, st.bundlePath); err != nil {
		return fmt.Errorf("publish bundle: %w", err)
	}

	// Best-effort cleanup of the now-empty staging area.
	_ = os.RemoveAll(p.cfg.StagingDir)

	logger.InfoKV(ctx, "Published bundle", "path", st.bundlePath)

	return nil
}

// sign invokes the external signing tool; failure degrades to a warning and
// the pipeline proceeds to imaging on an unsigned bundle.
func (p *pipeline) sign(ctx context.Context, st *state) {
	if !p.cfg.SigningEnabled {
		logger.Debug(ctx, "Signing is disabled, skipping")
		return
	}

	signer := toolchain.NewSigner(p.runner, p.cfg.SigningIdentity)
	if err := signer.Sign(ctx, st.bundlePath); err != nil {
		logger.WarnKV(ctx, "Signing failed, continuing with an unsigned bundle", "error", err)
	}
}

// createImage produces the distributable disk image; failure degrades to a
// warning since the published bundle directory is a usable output by itself.
func (p *pipeline) createImage(ctx context.Context, st *state) {
	imagePath := filepath.Join(p.cfg.OutputDir, p.cfg.ImageName())

	imager := toolchain.NewImager(p.runner, p.cfg.ImageFormat)
	if err := imager.Create(ctx, p.cfg.AppName, st.bundlePath, imagePath); err != nil {
		logger.WarnKV(ctx, "Disk image creation failed; the bundle directory remains usable", "error", err)
		return
	}

	logger.InfoKV(ctx, "Created disk image", "path", imagePath)
}

// isTruthy interprets the environment switch sentinels.
func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
