package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/vercel-cli/internal/bundle"
)

// Config holds the maintainer-side settings of the vendoring tool.
type Config struct {
	// Package is the npm package to vendor.
	Package string `yaml:"package"`
	// Registry is the base URL of the npm registry.
	Registry string `yaml:"registry"`
	// VendorDir is the vendor directory the launcher reads at run time.
	VendorDir string `yaml:"vendor_dir"`
	// EntryScript is the entry script path relative to VendorDir.
	EntryScript string `yaml:"entry_script"`
	// RuntimeDir is where the bundled Node.js distribution is installed.
	RuntimeDir string `yaml:"runtime_dir"`
	// NPMCommand overrides the npm invocation, e.g. "npm" or "npx -y npm@10".
	// Empty means the npm shipped with the bundled runtime.
	NPMCommand string `yaml:"npm_command"`
	// AllowedDependencies restricts the vendored runtime dependencies. Empty keeps all.
	AllowedDependencies []string `yaml:"allowed_dependencies"`
	// NodeVersion is the Node.js release bundled as the runtime.
	NodeVersion string `yaml:"node_version"`
	// NodeMirror is the base URL of the Node.js distribution mirror.
	NodeMirror string `yaml:"node_mirror"`
	// Timeout bounds every registry and mirror request.
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultConfigFilename is the default filename for maintainer settings.
	DefaultConfigFilename = "vercel-vendor.yaml"

	// DefaultRegistry is the public npm registry.
	DefaultRegistry = "https://registry.npmjs.org"

	// DefaultNodeVersion is the bundled Node.js release.
	DefaultNodeVersion = "22.11.0"

	// DefaultNodeMirror is the official Node.js distribution host.
	DefaultNodeMirror = "https://nodejs.org/dist"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Minute

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errPackageRequired is returned when the package name is blank.
	errPackageRequired = errors.New("package name must be provided")
	// errPathEscapes is returned when a relative path leaves its base directory.
	errPathEscapes = errors.New("path must stay inside its base directory")
)

// Default returns the settings used when no configuration file exists.
func Default() *Config {
	return &Config{
		Package:             bundle.PackageName,
		Registry:            DefaultRegistry,
		VendorDir:           bundle.VendorDirName,
		EntryScript:         bundle.EntryScriptPath,
		RuntimeDir:          bundle.RuntimeDirName,
		AllowedDependencies: slices.Clone(bundle.DefaultAllowedDependencies),
		NodeVersion:         DefaultNodeVersion,
		NodeMirror:          DefaultNodeMirror,
		Timeout:             DefaultTimeout,
	}
}

// Load reads configuration from the provided path and validates it.
// A missing file at the default location yields Default().
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			return cfg, Validate(cfg)
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the settings to the provided path.
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
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks the settings for required fields and formatting.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	cfg.Package = strings.TrimSpace(cfg.Package)
	if cfg.Package == "" {
		return errPackageRequired
	}

	if cfg.Registry == "" {
		cfg.Registry = DefaultRegistry
	}

	if _, err := url.ParseRequestURI(cfg.Registry); err != nil {
		return fmt.Errorf("invalid registry URL: %w", err)
	}

	if cfg.NodeMirror == "" {
		cfg.NodeMirror = DefaultNodeMirror
	}

	if _, err := url.ParseRequestURI(cfg.NodeMirror); err != nil {
		return fmt.Errorf("invalid node mirror URL: %w", err)
	}

	if cfg.VendorDir == "" {
		cfg.VendorDir = bundle.VendorDirName
	}

	if cfg.RuntimeDir == "" {
		cfg.RuntimeDir = bundle.RuntimeDirName
	}

	if cfg.EntryScript == "" {
		cfg.EntryScript = bundle.EntryScriptPath
	}

	if !filepath.IsLocal(filepath.FromSlash(cfg.EntryScript)) {
		return fmt.Errorf("entry script %q: %w", cfg.EntryScript, errPathEscapes)
	}

	if cfg.NodeVersion == "" {
		cfg.NodeVersion = DefaultNodeVersion
	}

	cfg.NodeVersion = strings.TrimPrefix(cfg.NodeVersion, "v")

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return nil
}
