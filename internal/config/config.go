package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that round-trips through user-authored
// configs: it unmarshals from either a Go duration string ("2s") or
// integer nanoseconds, and always marshals as the string form.
type Duration time.Duration

// MarshalYAML renders the duration in its human-readable string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML accepts "2s"-style strings and integer nanoseconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case int:
		*d = Duration(v)
	case int64:
		*d = Duration(v)
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}

		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration %v: %w", raw, errInvalidDuration)
	}

	return nil
}

// ResourceMapping declares one resource root to bundle and where it lands
// inside the resources area. Source is absolute or relative to the project
// root; Destination is always relative to the resources area.
type ResourceMapping struct {
	// Source is the file or directory to collect.
	Source string `yaml:"source"`
	// Destination is the prefix under the resources area.
	Destination string `yaml:"destination"`
}

// Config holds everything one packaging run needs.
type Config struct {
	// AppName is the display name of the application being packaged.
	AppName string `yaml:"app_name"`
	// BundleID is the reverse-domain bundle identifier.
	BundleID string `yaml:"bundle_id"`
	// VersionNumber is the full version string stamped into the descriptor.
	// Falls back to the bundler's own build version when empty.
	VersionNumber string `yaml:"version"`
	// ShortVersion is the user-visible short version string.
	ShortVersion string `yaml:"short_version"`
	// HighResolutionCapable marks the bundle as retina-aware.
	HighResolutionCapable bool `yaml:"high_resolution_capable"`
	// ExecutableName is the executable's filename inside the artifact
	// directory. Defaults to the lowercased application name.
	ExecutableName string `yaml:"executable_name"`
	// ProjectRoot anchors relative paths in this config.
	ProjectRoot string `yaml:"project_root"`
	// ArtifactDir is the upstream build output holding the compiled executable.
	ArtifactDir string `yaml:"artifact_dir"`
	// OutputDir is where the finished bundle and disk image are published.
	OutputDir string `yaml:"output_dir"`
	// StagingDir is where the bundle tree is assembled before publication.
	StagingDir string `yaml:"staging_dir"`
	// Resources lists the resource roots to collect, in declaration order.
	Resources []ResourceMapping `yaml:"resources"`
	// ExcludedNames are name prefixes never collected or descended into.
	ExcludedNames []string `yaml:"excluded_names"`
	// HelperBinariesDir is the subdirectory of the resources area holding
	// native helper executables whose permission bits get normalized.
	HelperBinariesDir string `yaml:"helper_binaries_dir"`
	// SigningEnabled toggles the codesign step.
	SigningEnabled bool `yaml:"signing_enabled"`
	// SigningIdentity is the identity passed to the signing tool.
	SigningIdentity string `yaml:"signing_identity"`
	// ImageFormat is the disk image format handed to the imaging tool.
	ImageFormat string `yaml:"image_format"`
	// PermissionBits are applied to helper binaries during normalization.
	PermissionBits os.FileMode `yaml:"permission_bits"`
	// PollInterval is the fixed delay between artifact readiness checks.
	PollInterval Duration `yaml:"poll_interval"`
	// PollMaxAttempts bounds the readiness checks before the run aborts.
	PollMaxAttempts int `yaml:"poll_max_attempts"`
}

const (
	// DefaultConfigFilename is the default bundle configuration file.
	DefaultConfigFilename = "webtvmux-bundler.yaml"

	// DefaultOutputDir receives the published bundle and disk image.
	DefaultOutputDir = "dist"

	// DefaultHelperBinariesDir is where helper executables live inside resources.
	DefaultHelperBinariesDir = "bin"

	// DefaultImageFormat is a compressed read-only disk image.
	DefaultImageFormat = "UDZO"

	// DefaultPermissionBits marks helper binaries executable.
	DefaultPermissionBits os.FileMode = 0o755

	// DefaultPollInterval is the delay between artifact readiness checks.
	DefaultPollInterval = 2 * time.Second

	// DefaultPollMaxAttempts bounds the readiness wait to roughly a minute.
	DefaultPollMaxAttempts = 30

	// DefaultFilePermissions is the file permission for written config files.
	DefaultFilePermissions = 0o600

	// stagingDirName is nested under the output directory so publication
	// stays a same-filesystem rename.
	stagingDirName = ".staging"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errAppNameRequired is returned when the application name is missing.
	errAppNameRequired = errors.New("application name must be provided")
	// errArtifactDirRequired is returned when the upstream artifact path is missing.
	errArtifactDirRequired = errors.New("artifact directory must be provided")
	// errInvalidBundleID is returned when the bundle identifier is not reverse-domain shaped.
	errInvalidBundleID = errors.New("bundle identifier must be a reverse-domain string")
	// errInvalidDuration is returned when a duration field is neither a string nor an integer.
	errInvalidDuration = errors.New("duration must be a string or integer nanoseconds")
)

// Load reads configuration from the provided path and validates essential fields.
// Files ending in .json or .jsonc are accepted as comment-tolerant JSON;
// everything else is parsed as YAML.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read bundle config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is a subset of YAML, so one decode path covers both formats.
		contents = jsonc.ToJSON(contents)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal bundle config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal bundle config: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write bundle config: %w", err)
	}

	return nil
}

// Validate checks required fields and fills in defaults for everything optional.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.AppName == "" {
		return errAppNameRequired
	}

	if err := validateBundleID(cfg.BundleID); err != nil {
		return err
	}

	if cfg.ArtifactDir == "" {
		return errArtifactDirRequired
	}

	if cfg.ExecutableName == "" {
		cfg.ExecutableName = strings.ToLower(strings.ReplaceAll(cfg.AppName, " ", "-"))
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}

	// The output and staging roots feed the recursion guard and stale-state
	// cleanup, which compare them against resolved source paths. Anchor them
	// at the project root here so a relative output_dir never silently means
	// "relative to whatever directory the process happens to run in".
	cfg.OutputDir = cfg.Resolve(cfg.OutputDir)

	if cfg.StagingDir == "" {
		cfg.StagingDir = filepath.Join(cfg.OutputDir, stagingDirName)
	} else {
		cfg.StagingDir = cfg.Resolve(cfg.StagingDir)
	}

	if cfg.HelperBinariesDir == "" {
		cfg.HelperBinariesDir = DefaultHelperBinariesDir
	}

	if cfg.ImageFormat == "" {
		cfg.ImageFormat = DefaultImageFormat
	}

	if cfg.PermissionBits == 0 {
		cfg.PermissionBits = DefaultPermissionBits
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = Duration(DefaultPollInterval)
	}

	if cfg.PollMaxAttempts <= 0 {
		cfg.PollMaxAttempts = DefaultPollMaxAttempts
	}

	if cfg.SigningEnabled && cfg.SigningIdentity == "" {
		// "-" is the ad hoc identity understood by the signing tool.
		cfg.SigningIdentity = "-"
	}

	return nil
}

// validateBundleID requires at least two dot-separated alphanumeric segments.
func validateBundleID(id string) error {
	segments := strings.Split(id, ".")
	if len(segments) < 2 {
		return fmt.Errorf("%q: %w", id, errInvalidBundleID)
	}

	for _, segment := range segments {
		if segment == "" {
			return fmt.Errorf("%q: %w", id, errInvalidBundleID)
		}

		for _, r := range segment {
			isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-'
			if !isAlnum {
				return fmt.Errorf("%q: %w", id, errInvalidBundleID)
			}
		}
	}

	return nil
}

// SetOutputDir points the run at a different output directory, resolving
// it like Validate does and re-deriving the staging area beneath it.
func (c *Config) SetOutputDir(dir string) {
	c.OutputDir = c.Resolve(dir)
	c.StagingDir = filepath.Join(c.OutputDir, stagingDirName)
}

// BundleName returns the top-level name of the bundle directory.
func (c *Config) BundleName() string {
	return c.AppName + ".app"
}

// ImageName returns the disk image filename, named after the bundle.
func (c *Config) ImageName() string {
	return c.AppName + ".dmg"
}

// Resolve anchors a relative path at the project root. Absolute paths
// and paths with an empty project root are cleaned and returned as-is.
func (c *Config) Resolve(path string) string {
	if path == "" {
		return path
	}

	if filepath.IsAbs(path) || c.ProjectRoot == "" {
		return filepath.Clean(path)
	}

	return filepath.Join(c.ProjectRoot, path)
}
