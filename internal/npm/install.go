package npm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/oshokin/vercel-cli/internal/bundle"
	"github.com/oshokin/vercel-cli/internal/logger"
)

// ProductionEnv is added to the inherited environment of every install.
const ProductionEnv = "NODE_ENV=production"

// stderrLimit caps the stderr text carried by InstallError.
const stderrLimit = 8 * 1024

var (
	// errEmptyCommand is returned when npm_command splits into no words.
	errEmptyCommand = errors.New("npm command is empty")
	// errNoBundledNPM is returned when neither npm_command nor the bundled npm is available.
	errNoBundledNPM = errors.New("bundled npm not found: run 'vercel-vendor runtime' or set npm_command")
)

// InstallArgs installs runtime dependencies only, without a lockfile and
// without running lifecycle scripts of the downloaded packages.
func InstallArgs() []string {
	return []string{"install", "--omit=dev", "--no-package-lock", "--ignore-scripts"}
}

// InstallError reports a failed npm invocation.
type InstallError struct {
	// Command is the full argv that was run.
	Command []string
	// ExitCode is the process exit code, or -1 when it did not exit normally.
	ExitCode int
	// Stderr is the tail of the captured standard error.
	Stderr string
	// Err is the underlying error.
	Err error
}

func (e *InstallError) Error() string {
	msg := fmt.Sprintf("%s failed with exit code %d", strings.Join(e.Command, " "), e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}

	return msg
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

// Installer runs npm installs.
type Installer struct {
	// command is the argv prefix that invokes npm.
	command []string
	// pathDirs are prepended to PATH for the npm process.
	pathDirs []string
}

// NewInstaller resolves the npm command. A non-empty npmCommand is split with
// shell rules; otherwise the bundled runtime under runtimeDir runs its npm CLI.
func NewInstaller(npmCommand, runtimeDir, goos string) (*Installer, error) {
	if strings.TrimSpace(npmCommand) != "" {
		words, err := shellwords.Parse(npmCommand)
		if err != nil {
			return nil, fmt.Errorf("parse npm command %q: %w", npmCommand, err)
		}

		if len(words) == 0 {
			return nil, errEmptyCommand
		}

		return &Installer{command: words}, nil
	}

	node := filepath.Join(runtimeDir, bundle.RuntimeExecutablePath(goos))
	script := filepath.Join(runtimeDir, bundle.NPMScriptPath(goos))

	for _, required := range []string{node, script} {
		if _, err := os.Stat(required); err != nil {
			return nil, fmt.Errorf("%s: %w", required, errNoBundledNPM)
		}
	}

	return &Installer{
		command:  []string{node, script},
		pathDirs: []string{filepath.Dir(node)},
	}, nil
}

// Command returns the argv prefix used to invoke npm.
func (i *Installer) Command() []string {
	return append([]string(nil), i.command...)
}

// Install runs the production install in dir.
func (i *Installer) Install(ctx context.Context, dir string) error {
	argv := append(i.Command(), InstallArgs()...)

	logger.InfoKV(ctx, "Installing production dependencies", "dir", dir, "command", strings.Join(argv, " "))

	//nolint:gosec // The command comes from the maintainer's configuration or the bundled runtime.
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = i.environ()

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if out := strings.TrimSpace(stdout.String()); out != "" {
		logger.Debug(ctx, out)
	}

	if err == nil {
		return nil
	}

	exitCode := -1

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}

	return &InstallError{
		Command:  argv,
		ExitCode: exitCode,
		Stderr:   tail(strings.TrimSpace(stderr.String()), stderrLimit),
		Err:      err,
	}
}

func (i *Installer) environ() []string {
	env := os.Environ()

	if len(i.pathDirs) > 0 {
		dirs := strings.Join(i.pathDirs, string(os.PathListSeparator))
		if current := os.Getenv("PATH"); current != "" {
			dirs += string(os.PathListSeparator) + current
		}

		env = append(env, "PATH="+dirs)
	}

	return append(env, ProductionEnv)
}

func tail(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	return "..." + s[len(s)-limit:]
}
