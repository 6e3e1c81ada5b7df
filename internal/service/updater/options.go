package updater

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/oshokin/vercel-cli/internal/config"
)

var (
	errUpdaterAlreadyRunning = errors.New("the updater is already running")
	errOptionsRequired       = errors.New("updater options must be provided")
	errVersionMismatch       = errors.New("prepared bundle has an unexpected version")
	errEntryScriptMissing    = errors.New("prepared bundle has no entry script")
)

// Options are inputs accepted by Update and Check.
type Options struct {
	// Config is the maintainer configuration; nil means config.Default().
	Config *config.Config
	// Root resolves relative vendor and runtime directories; empty means the working directory.
	Root string
	// Version is an exact version or dist-tag to vendor. Empty selects automatic mode:
	// the latest release is applied only when it is strictly newer.
	Version string
	// Force re-vendors in automatic mode even when the bundle is current.
	Force bool
	// Vendor makes Check apply a strictly newer release.
	Vendor bool
	// GitHubOutputs appends the outcome to the file named by GITHUB_OUTPUT.
	GitHubOutputs bool
	// Commit stages, commits and tags the vendor directory after a real update.
	Commit bool
	// Progress receives the download progress bar; nil hides it.
	Progress io.Writer
	// HTTPClient overrides the client used to reach the registry.
	HTTPClient *http.Client
}

// Result describes the outcome of Update or Check.
type Result struct {
	// Previous is the vendored version before the run; empty when no bundle existed.
	Previous string `json:"previous"`
	// Latest is the version the registry resolved.
	Latest string `json:"latest"`
	// Current is the vendored version after the run.
	Current string `json:"current"`
	// UpdateAvailable reports whether Latest is strictly newer than Previous.
	UpdateAvailable bool `json:"update_available"`
	// Updated reports whether the vendor directory was replaced.
	Updated bool `json:"updated"`
}

// paths are the absolute locations one run works with.
type paths struct {
	root       string
	vendorDir  string
	runtimeDir string
	marker     string
}

func resolvePaths(root string, cfg *config.Config) (paths, error) {
	if root == "" {
		root = "."
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return paths{}, err
	}

	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}

		return filepath.Join(absRoot, p)
	}

	vendorDir := resolve(cfg.VendorDir)

	return paths{
		root:       absRoot,
		vendorDir:  vendorDir,
		runtimeDir: resolve(cfg.RuntimeDir),
		marker:     filepath.Join(filepath.Dir(vendorDir), MarkerFilename),
	}, nil
}
