package bundle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/vercel-cli/internal/version"
)

const (
	// PackageName is the upstream npm package this project vendors.
	PackageName = "vercel"

	// VendorDirName is the vendor directory relative to the install root.
	VendorDirName = "vendor"

	// EntryScriptPath is the entry script relative to the vendor directory.
	EntryScriptPath = "dist/vc.js"

	// RuntimeDirName is the bundled runtime directory relative to the install root.
	RuntimeDirName = "runtime"

	// ManifestFilename is the npm manifest inside the vendor directory.
	ManifestFilename = "package.json"

	// KeepFilename is a placeholder kept in an otherwise empty vendor directory.
	KeepFilename = ".gitkeep"
)

// ErrNoBundle is returned when the vendor directory holds no manifest.
var ErrNoBundle = errors.New("vendor bundle not found")

// RuntimeExecutablePath returns the runtime binary path relative to the runtime directory.
// Node.js ships bin/node on unix and node.exe at the top level on Windows.
func RuntimeExecutablePath(goos string) string {
	if goos == "windows" {
		return "node.exe"
	}

	return filepath.Join("bin", "node")
}

// NPMScriptPath returns the npm CLI script relative to the runtime directory.
func NPMScriptPath(goos string) string {
	if goos == "windows" {
		return filepath.Join("node_modules", "npm", "bin", "npm-cli.js")
	}

	return filepath.Join("lib", "node_modules", "npm", "bin", "npm-cli.js")
}

// ReadVersion returns the version recorded in the vendor directory's manifest.
func ReadVersion(vendorDir string) (string, error) {
	manifestPath := filepath.Join(vendorDir, ManifestFilename)
	if _, err := os.Stat(manifestPath); errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", vendorDir, ErrNoBundle)
	}

	return version.FromManifestFile(manifestPath)
}
