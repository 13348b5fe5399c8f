package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/webtvmux/bundler/internal/config"
	"github.com/webtvmux/bundler/internal/logger"
	"github.com/webtvmux/bundler/internal/service/pipeline"
	"github.com/webtvmux/bundler/internal/version"
)

var (
	// configPath to the bundle configuration file.
	configPath string

	// outputDir optionally overrides the configured output directory.
	outputDir string

	// logLevel sets logging verbosity for the run.
	logLevel string

	// skipSigning disables the signing step regardless of configuration.
	skipSigning bool

	// rootCmd represents the base command for assembling the bundle.
	rootCmd = &cobra.Command{
		Use:   "webtvmux-bundler",
		Short: "Assemble the WebTvMux application bundle and disk image",
		Long: "Assemble a previously built WebTvMux executable, its helper binaries " +
			"(ffmpeg, ffprobe, yt-dlp), and configuration resources into a relocatable " +
			"application bundle, then emit a compressed, optionally signed disk image.",
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}

			options := &pipeline.Options{
				ConfigPath:  configPath,
				OutputDir:   outputDir,
				SkipSigning: skipSigning,
			}

			return pipeline.Run(ctx, options)
		},
	}
)

// Execute runs the webtvmux-bundler CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to bundle configuration file")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "override the configured output directory")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "logging level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&skipSigning, "skip-signing", false, "disable the signing step")
}
