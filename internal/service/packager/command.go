package packager

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/vercel-cli/internal/archive"
	"github.com/oshokin/vercel-cli/internal/bundle"
	"github.com/oshokin/vercel-cli/internal/config"
	"github.com/oshokin/vercel-cli/internal/logger"
	"github.com/oshokin/vercel-cli/internal/service/common"
)

// DefaultOutputDir receives release archives.
const DefaultOutputDir = "dist"

var (
	errOptionsRequired = errors.New("packager options must be provided")
	errMissingArtifact = errors.New("release artifact not found")
)

// Options contains inputs for the packager entry point.
type Options struct {
	// Config supplies the package name and the vendor and runtime directories; nil means config.Default().
	Config *config.Config
	// Root resolves relative paths; empty means the working directory.
	Root string
	// Launcher is the built launcher binary; empty means bin/vercel[.exe] under Root.
	Launcher string
	// GOOS and GOARCH label the target platform; empty means the host.
	GOOS   string
	GOARCH string
	// OutputDir receives the archive; empty means DefaultOutputDir under Root.
	OutputDir string
}

// Result describes a built release.
type Result struct {
	// Archive is the path of the written archive.
	Archive string
	// Description is the manifest stored inside it.
	Description *Description
}

// packager holds the state of a single packaging run.
type packager struct {
	cfg        *config.Config
	goos       string
	goarch     string
	root       string
	vendorDir  string
	runtimeDir string
	launcher   string
	outputDir  string
	stageDir   string
	desc       *Description
}

// Run builds the release archive for the vendored bundle.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "vercel-vendor.package")

	p, err := newPackager(opts)
	if err != nil {
		return nil, fmt.Errorf("initialize packager: %w", err)
	}

	defer p.cleanup()

	result, err := p.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("packager failed: %w", err)
	}

	logger.InfoKV(ctx, "Packager completed successfully", "archive", result.Archive)

	return result, nil
}

func newPackager(opts *Options) (*packager, error) {
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

	p := &packager{cfg: cfg, goos: opts.GOOS, goarch: opts.GOARCH}

	if p.goos == "" {
		p.goos = runtime.GOOS
	}

	if p.goarch == "" {
		p.goarch = runtime.GOARCH
	}

	root := opts.Root
	if root == "" {
		root = "."
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	p.root = absRoot
	p.vendorDir = p.resolve(cfg.VendorDir)
	p.runtimeDir = p.resolve(cfg.RuntimeDir)
	p.launcher = p.resolve(opts.Launcher)
	p.outputDir = p.resolve(opts.OutputDir)

	if opts.Launcher == "" {
		p.launcher = filepath.Join(absRoot, "bin", LauncherName(p.goos))
	}

	if opts.OutputDir == "" {
		p.outputDir = filepath.Join(absRoot, DefaultOutputDir)
	}

	return p, nil
}

// Run collects the artifacts, writes the manifest and the archive.
func (p *packager) Run(ctx context.Context) (*Result, error) {
	version, err := bundle.ReadVersion(p.vendorDir)
	if err != nil {
		return nil, fmt.Errorf("derive version: %w", err)
	}

	ctx = logger.WithKV(ctx, "version", version)

	p.desc = NewDescription(p.cfg.Package, version, p.goos, p.goarch)

	sources := map[string]string{
		p.desc.Launcher:    p.launcher,
		p.desc.EntryScript: filepath.Join(p.vendorDir, filepath.FromSlash(bundle.EntryScriptPath)),
		path.Join(bundle.VendorDirName, bundle.ManifestFilename): filepath.Join(p.vendorDir, bundle.ManifestFilename),
		p.desc.Runtime: filepath.Join(p.runtimeDir, bundle.RuntimeExecutablePath(p.goos)),
	}

	if p.stageDir, err = os.MkdirTemp("", "vercel-package-"); err != nil {
		return nil, err
	}

	logger.Info(ctx, "Preparing release description")

	if err = p.fillDescription(sources); err != nil {
		return nil, err
	}

	logger.Info(ctx, "Installing launcher into the release")

	stagedLauncher := filepath.Join(p.stageDir, p.desc.Launcher)
	if err = applyExecutable(p.launcher, stagedLauncher, p.desc.Files[p.desc.Launcher]); err != nil {
		return nil, fmt.Errorf("stage launcher: %w", err)
	}

	manifestPath := filepath.Join(p.stageDir, ManifestFilename)
	if err = WriteDescription(manifestPath, p.desc); err != nil {
		return nil, fmt.Errorf("write release manifest: %w", err)
	}

	archivePath := filepath.Join(p.outputDir, ArchiveName(version, p.goos, p.goarch))

	logger.InfoKV(ctx, "Writing release archive", "path", archivePath)

	if err = p.writeArchive(archivePath, stagedLauncher, manifestPath); err != nil {
		_ = os.Remove(archivePath)
		return nil, fmt.Errorf("write release archive: %w", err)
	}

	return &Result{Archive: archivePath, Description: p.desc}, nil
}

// fillDescription records the checksum of every release file.
func (p *packager) fillDescription(sources map[string]string) error {
	for _, name := range p.desc.ChecksummedFiles() {
		source := sources[name]

		info, err := os.Stat(source)
		if errors.Is(err, os.ErrNotExist) || (err == nil && info.IsDir()) {
			return fmt.Errorf("%s (%s): %w", name, source, errMissingArtifact)
		} else if err != nil {
			return fmt.Errorf("stat %s: %w", source, err)
		}

		checksum, err := common.EncodedFileChecksum(source)
		if err != nil {
			return err
		}

		p.desc.Files[name] = checksum
	}

	return nil
}

func (p *packager) writeArchive(archivePath, launcher, manifest string) error {
	prefix := strings.TrimSuffix(ArchiveName(p.desc.VersionNumber, p.goos, p.goarch), ".tar.gz")

	w, err := archive.CreateTarGz(archivePath)
	if err != nil {
		return err
	}

	steps := []func() error{
		func() error { return w.AddFile(prefix+"/"+p.desc.Launcher, launcher) },
		func() error { return w.AddFile(prefix+"/"+ManifestFilename, manifest) },
		func() error { return w.AddTree(prefix+"/"+bundle.VendorDirName, p.vendorDir) },
		func() error { return w.AddTree(prefix+"/"+bundle.RuntimeDirName, p.runtimeDir) },
	}

	for _, step := range steps {
		if err = step(); err != nil {
			_ = w.Close()
			return err
		}
	}

	return w.Close()
}

func (p *packager) resolve(dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}

	return filepath.Join(p.root, dir)
}

func (p *packager) cleanup() {
	if p.stageDir != "" {
		_ = os.RemoveAll(p.stageDir)
	}
}

// applyExecutable writes src to target through go-update, which checks the
// content against the encoded checksum before the rename.
func applyExecutable(src, target, encodedChecksum string) error {
	data, err := os.ReadFile(filepath.Clean(src))
	if err != nil {
		return err
	}

	checksum, err := decodeChecksum(encodedChecksum)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Dir(target), common.DefaultDirMode); err != nil {
		return err
	}

	// go-update moves the existing file aside, so the target must exist.
	if _, err = os.Stat(target); errors.Is(err, os.ErrNotExist) {
		f, createErr := os.Create(filepath.Clean(target))
		if createErr != nil {
			return createErr
		}

		_ = f.Close()
	}

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: ExecutableFileMode,
		Checksum:   checksum,
		Hash:       common.DefaultChecksumFunction,
	}

	if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return err
	}

	oldFileName := filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+".old")
	if _, err = os.Stat(oldFileName); err == nil {
		_ = os.Remove(oldFileName)
	}

	return nil
}

func decodeChecksum(encoded string) ([]byte, error) {
	checksum, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode checksum: %w", err)
	}

	return checksum, nil
}
