package packager

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/vercel-cli/internal/bundle"
)

const (
	// ManifestFilename is the release manifest stored at the install root.
	ManifestFilename = "vercel-cli-release.yaml"

	// LauncherBaseName is the launcher executable name without extension.
	LauncherBaseName = "vercel"

	// DefaultFileMode is used for files written into a release.
	DefaultFileMode os.FileMode = 0o644

	// ExecutableFileMode is used for executables written into a release.
	ExecutableFileMode os.FileMode = 0o755

	defaultMapCapacity = 8
)

// Description contains metadata about a packaged release.
type Description struct {
	// VersionNumber is the vendored package version this release ships.
	VersionNumber string `yaml:"version"`
	// Package is the vendored npm package name.
	Package string `yaml:"package"`
	// Platform is the GOOS/GOARCH pair the release targets.
	Platform string `yaml:"platform"`
	// Launcher is the launcher executable relative to the install root.
	Launcher string `yaml:"launcher"`
	// EntryScript is the entry script relative to the install root.
	EntryScript string `yaml:"entry_script"`
	// Runtime is the runtime executable relative to the install root.
	Runtime string `yaml:"runtime"`
	// Files maps slash-separated paths to their base64-encoded SHA-512 checksums.
	Files map[string]string `yaml:"files"`
}

// NewDescription produces a Description for goos/goarch with the fixed install layout.
func NewDescription(pkg, version, goos, goarch string) *Description {
	return &Description{
		VersionNumber: version,
		Package:       pkg,
		Platform:      goos + "/" + goarch,
		Launcher:      LauncherName(goos),
		EntryScript:   path.Join(bundle.VendorDirName, bundle.EntryScriptPath),
		Runtime:       path.Join(bundle.RuntimeDirName, filepath.ToSlash(bundle.RuntimeExecutablePath(goos))),
		Files:         make(map[string]string, defaultMapCapacity),
	}
}

// ChecksummedFiles lists the files whose checksums a release records.
func (d *Description) ChecksummedFiles() []string {
	return []string{
		d.Launcher,
		d.EntryScript,
		path.Join(bundle.VendorDirName, bundle.ManifestFilename),
		d.Runtime,
	}
}

// LauncherName returns the launcher executable name for goos.
func LauncherName(goos string) string {
	if goos == "windows" {
		return LauncherBaseName + ".exe"
	}

	return LauncherBaseName
}

// ArchiveName returns the release archive filename.
func ArchiveName(version, goos, goarch string) string {
	return fmt.Sprintf("vercel-cli-%s-%s-%s.tar.gz", version, goos, goarch)
}

// ReadDescription loads a release manifest.
func ReadDescription(path string) (*Description, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read release manifest: %w", err)
	}

	var desc Description
	if err = yaml.Unmarshal(contents, &desc); err != nil {
		return nil, fmt.Errorf("unmarshal release manifest: %w", err)
	}

	return &desc, nil
}

// WriteDescription saves a release manifest.
func WriteDescription(path string, desc *Description) error {
	contents, err := yaml.Marshal(desc)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Clean(path), contents, DefaultFileMode)
}
