package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"

	"github.com/oshokin/vercel-cli/internal/logger"
)

// Options describe one invocation of the wrapped CLI.
type Options struct {
	// Layout locates the runtime executable and the entry script.
	Layout Layout
	// Args are passed to the entry script unmodified and in order.
	Args []string
	// Env is the child's environment. Nil inherits the launcher's environment verbatim.
	Env []string
	// Dir is the child's working directory. Empty means the current directory.
	Dir string
	// Stdin, Stdout and Stderr default to the launcher's own files, which the
	// child inherits directly without any copying in between.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Run spawns the bundled runtime with the vendored entry script and blocks
// until it exits. The returned ExitStatus always carries the code to exit with:
// the child's own status, or ExitCodeSetup together with a *SetupError when
// the bundle is incomplete. No child is started in that case.
func Run(ctx context.Context, opts *Options) (ExitStatus, error) {
	ctx = logger.WithName(ctx, "launcher")

	entryScript := opts.Layout.EntryScript()
	if err := requireFile(ComponentEntryScript, entryScript); err != nil {
		return ExitStatus{Code: ExitCodeSetup}, err
	}

	runtimeExecutable := opts.Layout.RuntimeExecutable()
	if err := requireFile(ComponentRuntime, runtimeExecutable); err != nil {
		return ExitStatus{Code: ExitCodeSetup}, err
	}

	argv := make([]string, 0, len(opts.Args)+1)
	argv = append(argv, entryScript)
	argv = append(argv, opts.Args...)

	// No context: the wrapped tool may run indefinitely, e.g. interactive login flows.
	cmd := exec.Command(runtimeExecutable, argv...) //nolint:noctx,gosec // Runs the bundled runtime by design.
	cmd.Env = opts.Env
	cmd.Dir = opts.Dir
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr

	if opts.Stdin != nil {
		cmd.Stdin = opts.Stdin
	}

	if opts.Stdout != nil {
		cmd.Stdout = opts.Stdout
	}

	if opts.Stderr != nil {
		cmd.Stderr = opts.Stderr
	}

	logger.DebugKV(ctx, "Starting bundled runtime",
		"runtime", runtimeExecutable, "entry_script", entryScript, "args", len(opts.Args))

	// Trap before starting so a signal arriving in between cannot kill the launcher alone.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, append(append([]os.Signal(nil), forwardedSignals...), terminalSignals...)...)

	defer signal.Stop(signals)

	if err := cmd.Start(); err != nil {
		return ExitStatus{Code: ExitCodeSetup}, &SetupError{
			Component: ComponentRuntime,
			Path:      runtimeExecutable,
			Err:       err,
		}
	}

	done := make(chan struct{})
	go relaySignals(ctx, cmd.Process, signals, done)

	err := cmd.Wait()

	close(done)

	status, err := statusFromWait(cmd.ProcessState, err)
	if err != nil {
		return status, fmt.Errorf("wait for bundled runtime: %w", err)
	}

	logger.DebugKV(ctx, "Bundled runtime exited", "code", status.Code, "signal", status.SignalName())

	return status, nil
}

// relaySignals forwards the signals the child would otherwise miss until done is closed.
func relaySignals(ctx context.Context, process *os.Process, signals <-chan os.Signal, done <-chan struct{}) {
	for {
		select {
		case sig := <-signals:
			if !shouldForward(sig) {
				continue
			}

			if err := process.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
				logger.WarnKV(ctx, "Unable to forward signal", "signal", sig.String(), "error", err)
			}
		case <-done:
			return
		}
	}
}

// requireFile fails with a *SetupError unless path is an existing regular file.
func requireFile(component Component, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &SetupError{Component: component, Path: path, Err: err}
	}

	if info.IsDir() {
		return &SetupError{Component: component, Path: path, Err: errIsDirectory}
	}

	return nil
}

var errIsDirectory = errors.New("is a directory")
