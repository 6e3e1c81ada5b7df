package launcher

import "os"

func statusFromProcessState(state *os.ProcessState) ExitStatus {
	return ExitStatus{Code: state.ExitCode()}
}

// Exit terminates the current process with the child's exit code.
func (s ExitStatus) Exit() {
	os.Exit(s.Code)
}

// SignalName is always empty: Windows has no signal-based termination status.
func (s ExitStatus) SignalName() string {
	return ""
}
