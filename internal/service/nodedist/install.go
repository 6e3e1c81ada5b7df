package nodedist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/oshokin/vercel-cli/internal/archive"
	"github.com/oshokin/vercel-cli/internal/bundle"
	"github.com/oshokin/vercel-cli/internal/config"
	"github.com/oshokin/vercel-cli/internal/integrity"
	"github.com/oshokin/vercel-cli/internal/logger"
	"github.com/oshokin/vercel-cli/internal/registry"
	"github.com/oshokin/vercel-cli/internal/service/common"
)

const (
	// ChecksumsFilename lists SHA-256 digests of every file in a release.
	ChecksumsFilename = "SHASUMS256.txt"

	// VersionFilename records the installed runtime version inside the runtime directory.
	VersionFilename = ".node-version"

	versionFileMode os.FileMode = 0o644
)

var (
	errOptionsRequired = errors.New("runtime options must be provided")
	errNoChecksum      = errors.New("archive is not listed in checksums")
	errNoExecutable    = errors.New("distribution has no runtime executable")
)

// Options are inputs accepted by Install.
type Options struct {
	// Config supplies node_version, node_mirror and runtime_dir; nil means config.Default().
	Config *config.Config
	// Root resolves a relative runtime directory; empty means the working directory.
	Root string
	// GOOS and GOARCH select the target platform; empty means the host.
	GOOS   string
	GOARCH string
	// Force reinstalls even when the requested version is already present.
	Force bool
	// Progress receives the download progress bar; nil hides it.
	Progress io.Writer
	// HTTPClient overrides the client used to reach the mirror.
	HTTPClient *http.Client
}

// Result describes an installed runtime.
type Result struct {
	Version    string
	Platform   string
	RuntimeDir string
	Executable string
	Installed  bool
}

// Install places the Node.js distribution for the target platform in the runtime directory.
func Install(ctx context.Context, opts *Options) (*Result, error) {
	if opts == nil {
		return nil, errOptionsRequired
	}

	ctx = logger.WithName(ctx, "vercel-vendor.runtime")

	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	goos, goarch := targetOf(opts)

	platform, err := Platform(goos, goarch)
	if err != nil {
		return nil, err
	}

	runtimeDir, err := resolveDir(opts.Root, cfg.RuntimeDir)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Version:    cfg.NodeVersion,
		Platform:   platform,
		RuntimeDir: runtimeDir,
		Executable: filepath.Join(runtimeDir, bundle.RuntimeExecutablePath(goos)),
	}

	ctx = logger.WithFields(ctx, "version", cfg.NodeVersion, "platform", platform)

	if !opts.Force && InstalledVersion(runtimeDir) == cfg.NodeVersion {
		logger.Info(ctx, "Runtime is already installed")
		return result, nil
	}

	tempDir, err := os.MkdirTemp("", "vercel-runtime-")
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = os.RemoveAll(tempDir)
	}()

	work, err := fetch(ctx, opts, cfg, goos, platform, tempDir)
	if err != nil {
		return nil, err
	}

	executable := filepath.Join(work, bundle.RuntimeExecutablePath(goos))
	if info, statErr := os.Stat(executable); statErr != nil || info.IsDir() {
		return nil, fmt.Errorf("%s: %w", bundle.RuntimeExecutablePath(goos), errNoExecutable)
	}

	versionFile := filepath.Join(work, VersionFilename)
	if err = os.WriteFile(versionFile, []byte(cfg.NodeVersion+"\n"), versionFileMode); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Replacing the runtime directory", "path", runtimeDir)

	if err = common.ReplaceDir(ctx, work, runtimeDir); err != nil {
		return nil, fmt.Errorf("replace runtime directory: %w", err)
	}

	result.Installed = true

	logger.Info(ctx, "Runtime installed")

	return result, nil
}

// InstalledVersion returns the runtime version recorded in runtimeDir, or "".
func InstalledVersion(runtimeDir string) string {
	data, err := os.ReadFile(filepath.Join(runtimeDir, VersionFilename))
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(data))
}

// fetch downloads, verifies and extracts the distribution, returning the extracted tree.
func fetch(ctx context.Context, opts *Options, cfg *config.Config, goos, platform, tempDir string) (string, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	client, err := registry.New(cfg.NodeMirror,
		registry.WithHTTPClient(httpClient),
		registry.WithProgress(opts.Progress),
	)
	if err != nil {
		return "", err
	}

	releaseURL := strings.TrimRight(cfg.NodeMirror, "/") + "/v" + cfg.NodeVersion + "/"

	sumsPath := filepath.Join(tempDir, ChecksumsFilename)
	if _, err = client.Download(ctx, releaseURL+ChecksumsFilename, sumsPath); err != nil {
		return "", err
	}

	sums, err := readChecksums(sumsPath)
	if err != nil {
		return "", err
	}

	name := ArchiveName(cfg.NodeVersion, platform, goos)

	expected, ok := sums[name]
	if !ok {
		return "", fmt.Errorf("%s: %w", name, errNoChecksum)
	}

	archivePath := filepath.Join(tempDir, name)

	logger.InfoKV(ctx, "Downloading runtime", "url", releaseURL+name)

	if _, err = client.Download(ctx, releaseURL+name, archivePath); err != nil {
		return "", err
	}

	if err = integrity.VerifyDigest(archivePath, expected); err != nil {
		return "", fmt.Errorf("verify runtime archive: %w", err)
	}

	logger.InfoKV(ctx, "Verified runtime archive", "digest", expected.String())

	work := filepath.Join(tempDir, "work")
	extractOpts := archive.Options{StripComponents: 1, KeepSymlinks: true}

	var stats archive.Stats

	if strings.HasSuffix(name, ".zip") {
		stats, err = archive.ExtractZip(archivePath, work, extractOpts)
	} else {
		stats, err = archive.ExtractTarGz(archivePath, work, extractOpts)
	}

	if err != nil {
		return "", fmt.Errorf("extract runtime archive: %w", err)
	}

	logger.DebugKV(ctx, "Extracted runtime", "files", stats.Files, "links", stats.Links, "skipped", stats.Skipped)

	return work, nil
}

func readChecksums(path string) (map[string]digest.Digest, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = f.Close()
	}()

	return ParseChecksums(f)
}

func targetOf(opts *Options) (string, string) {
	goos, goarch := opts.GOOS, opts.GOARCH
	if goos == "" {
		goos = runtime.GOOS
	}

	if goarch == "" {
		goarch = runtime.GOARCH
	}

	return goos, goarch
}

func resolveDir(root, dir string) (string, error) {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir), nil
	}

	if root == "" {
		root = "."
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}

	return filepath.Join(absRoot, dir), nil
}
