package updater

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/oshokin/vercel-cli/internal/archive"
	"github.com/oshokin/vercel-cli/internal/bundle"
	"github.com/oshokin/vercel-cli/internal/config"
	"github.com/oshokin/vercel-cli/internal/integrity"
	"github.com/oshokin/vercel-cli/internal/logger"
	"github.com/oshokin/vercel-cli/internal/npm"
	"github.com/oshokin/vercel-cli/internal/registry"
	"github.com/oshokin/vercel-cli/internal/service/common"
)

// tarballFilename is the download name inside the temporary directory.
const tarballFilename = "package.tgz"

// runner holds the state of a single updater execution.
type runner struct {
	opts     *Options
	cfg      *config.Config
	paths    paths
	registry *registry.Client
	marker   *marker
	tempDir  string
}

// Update vendors opts.Version, or in automatic mode the latest release when it
// is strictly newer than the vendored one.
func Update(ctx context.Context, opts *Options) (*Result, error) {
	ctx = logger.WithName(ctx, "vercel-vendor.update")

	r, err := newRunner(ctx, opts)
	if err != nil {
		return nil, err
	}

	defer r.cleanup(ctx)

	result, err := r.update(ctx, opts.Version, opts.Force)
	if err != nil {
		logger.ErrorKV(ctx, "Update failed", "error", err)
		return nil, err
	}

	return result, r.finish(ctx, result)
}

// Check reports the vendored and latest versions. With opts.Vendor set it
// applies the latest release when it is strictly newer. Running it against a
// current bundle changes nothing.
func Check(ctx context.Context, opts *Options) (*Result, error) {
	ctx = logger.WithName(ctx, "vercel-vendor.check")

	r, err := newRunner(ctx, opts)
	if err != nil {
		return nil, err
	}

	defer r.cleanup(ctx)

	var result *Result

	if opts.Vendor {
		result, err = r.update(ctx, "", false)
	} else {
		result, err = r.check(ctx)
	}

	if err != nil {
		logger.ErrorKV(ctx, "Check failed", "error", err)
		return nil, err
	}

	return result, r.finish(ctx, result)
}

func newRunner(ctx context.Context, opts *Options) (*runner, error) {
	if opts == nil {
		return nil, errOptionsRequired
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	resolved, err := resolvePaths(opts.Root, cfg)
	if err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	client, err := registry.New(cfg.Registry,
		registry.WithHTTPClient(httpClient),
		registry.WithCallTimeout(cfg.Timeout),
		registry.WithProgress(opts.Progress),
	)
	if err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Updater configured",
		"package", cfg.Package, "registry", cfg.Registry, "vendor_dir", resolved.vendorDir)

	return &runner{
		opts:     opts,
		cfg:      cfg,
		paths:    resolved,
		registry: client,
	}, nil
}

// check compares the vendored version with the latest release without changing anything.
func (r *runner) check(ctx context.Context) (*Result, error) {
	current, err := r.vendoredVersion(ctx)
	if err != nil {
		return nil, err
	}

	latest, err := r.registry.Latest(ctx, r.cfg.Package)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Previous:        current,
		Latest:          latest.Version,
		Current:         current,
		UpdateAvailable: isNewer(ctx, latest.Version, current),
	}

	if result.UpdateAvailable {
		logger.InfoKV(ctx, "Update available", "current", current, "latest", latest.Version)
	} else {
		logger.InfoKV(ctx, "No update needed", "current", current, "latest", latest.Version)
	}

	return result, nil
}

// update resolves the target and vendors it. An empty requested version selects
// automatic mode.
func (r *runner) update(ctx context.Context, requested string, force bool) (*Result, error) {
	automatic := strings.TrimSpace(requested) == ""
	if automatic {
		requested = registry.LatestTag
	}

	current, err := r.vendoredVersion(ctx)
	if err != nil {
		return nil, err
	}

	meta, err := r.registry.Metadata(ctx, r.cfg.Package, requested)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Previous:        current,
		Latest:          meta.Version,
		Current:         current,
		UpdateAvailable: isNewer(ctx, meta.Version, current),
	}

	if automatic && !force && !result.UpdateAvailable {
		logger.InfoKV(ctx, "No update needed", "current", current, "latest", meta.Version)
		return result, nil
	}

	ctx = logger.WithKV(ctx, "version", meta.Version)

	logger.InfoKV(ctx, "Vendoring package", "package", r.cfg.Package, "previous", current)

	if err = r.acquire(ctx); err != nil {
		return nil, err
	}

	prepared, err := r.prepare(ctx, meta)
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Replacing the vendor directory")

	if err = common.ReplaceDir(ctx, prepared, r.paths.vendorDir, bundle.KeepFilename); err != nil {
		return nil, fmt.Errorf("replace vendor directory: %w", err)
	}

	vendored, err := bundle.ReadVersion(r.paths.vendorDir)
	if err != nil {
		return nil, fmt.Errorf("read vendored version: %w", err)
	}

	if vendored != meta.Version {
		return nil, fmt.Errorf("%w: expected %s, found %s", errVersionMismatch, meta.Version, vendored)
	}

	result.Current = vendored
	result.Updated = true

	logger.InfoKV(ctx, "Vendored package", "package", r.cfg.Package)

	return result, nil
}

// prepare builds the complete vendor tree for meta in a temporary directory
// and returns its path.
func (r *runner) prepare(ctx context.Context, meta *registry.PackageVersion) (string, error) {
	installer, err := npm.NewInstaller(r.cfg.NPMCommand, r.paths.runtimeDir, runtime.GOOS)
	if err != nil {
		return "", err
	}

	r.tempDir, err = os.MkdirTemp("", "vercel-vendor-")
	if err != nil {
		return "", err
	}

	tarball := filepath.Join(r.tempDir, tarballFilename)

	logger.InfoKV(ctx, "Downloading package tarball", "url", meta.Dist.Tarball)

	if _, err = r.registry.Download(ctx, meta.Dist.Tarball, tarball); err != nil {
		return "", err
	}

	expected := integrity.Expected{Integrity: meta.Dist.Integrity, Shasum: meta.Dist.Shasum}
	if err = integrity.VerifyFile(tarball, expected); err != nil {
		return "", fmt.Errorf("verify tarball: %w", err)
	}

	logger.Info(ctx, "Verified tarball integrity")

	work := filepath.Join(r.tempDir, "work")

	stats, err := archive.ExtractTarGz(tarball, work, archive.Options{Prefix: archive.NPMPackagePrefix})
	if err != nil {
		return "", fmt.Errorf("extract tarball: %w", err)
	}

	logger.DebugKV(ctx, "Extracted tarball", "files", stats.Files, "skipped", stats.Skipped)

	r.sanitize(ctx, work)

	if err = installer.Install(ctx, work); err != nil {
		return "", fmt.Errorf("install dependencies: %w", err)
	}

	if err = r.verifyPrepared(work, meta.Version); err != nil {
		return "", err
	}

	return work, nil
}

// sanitize restricts the manifest to runtime dependencies. Failures are not fatal.
func (r *runner) sanitize(ctx context.Context, work string) {
	manifest := filepath.Join(work, bundle.ManifestFilename)

	result, err := bundle.SanitizeFile(manifest, r.cfg.AllowedDependencies)
	if err != nil {
		logger.WarnKV(ctx, "Failed to sanitize package.json", "error", err)
		return
	}

	logger.InfoKV(ctx, "Restricted dependencies",
		"dependencies", strings.Join(result.Dependencies, ", "), "removed", strings.Join(result.Removed, ", "))
}

func (r *runner) verifyPrepared(work, want string) error {
	got, err := bundle.ReadVersion(work)
	if err != nil {
		return fmt.Errorf("read prepared version: %w", err)
	}

	if got != want {
		return fmt.Errorf("%w: expected %s, found %s", errVersionMismatch, want, got)
	}

	entry := filepath.Join(work, filepath.FromSlash(r.cfg.EntryScript))

	info, err := os.Stat(entry)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%s: %w", entry, errEntryScriptMissing)
	}

	return nil
}

func (r *runner) acquire(ctx context.Context) error {
	m, err := acquireMarker(ctx, r.paths.marker)
	if err != nil {
		return err
	}

	r.marker = m

	return nil
}

// vendoredVersion returns the version in the vendor directory, or an empty
// string when there is no bundle yet.
func (r *runner) vendoredVersion(ctx context.Context) (string, error) {
	current, err := bundle.ReadVersion(r.paths.vendorDir)
	if errors.Is(err, bundle.ErrNoBundle) {
		logger.InfoKV(ctx, "No vendored bundle found", "vendor_dir", r.paths.vendorDir)
		return "", nil
	}

	if err != nil {
		return "", err
	}

	return current, nil
}

// finish publishes the outcome: workflow outputs, the commit hook and stdout.
func (r *runner) finish(ctx context.Context, result *Result) error {
	if r.opts.GitHubOutputs {
		if err := writeResultOutputs(result); err != nil {
			return fmt.Errorf("write GitHub outputs: %w", err)
		}
	}

	if r.opts.Commit && result.Updated {
		if err := commitVendor(ctx, r.paths.root, r.paths.vendorDir, r.cfg.Package, result.Current); err != nil {
			return fmt.Errorf("commit vendored bundle: %w", err)
		}
	}

	return nil
}

// cleanup removes temporary artifacts and the running marker.
func (r *runner) cleanup(ctx context.Context) {
	r.marker.release()

	if r.tempDir != "" {
		if err := os.RemoveAll(r.tempDir); err != nil {
			logger.WarnKV(ctx, "Unable to remove temporary directory", "path", r.tempDir, "error", err)
		}
	}
}
