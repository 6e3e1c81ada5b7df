package launcher

import (
	"errors"
	"os"
	"os/exec"
)

var errNoProcessState = errors.New("child process state unavailable")

// ExitStatus is how the child terminated.
type ExitStatus struct {
	// Code is the exit code to report. For a signalled child it is 128+signal.
	Code int
	// Signal is set when the child was terminated by a signal.
	Signal os.Signal
}

// Success reports whether the child exited with code zero.
func (s ExitStatus) Success() bool {
	return s.Code == 0 && s.Signal == nil
}

// statusFromWait converts the result of exec.Cmd.Wait into an ExitStatus.
// The returned error is non-nil only when the wait itself failed.
func statusFromWait(state *os.ProcessState, err error) (ExitStatus, error) {
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return ExitStatus{Code: 1}, err
	}

	if exitErr != nil {
		state = exitErr.ProcessState
	}

	if state == nil {
		return ExitStatus{Code: 1}, errNoProcessState
	}

	return statusFromProcessState(state), nil
}
