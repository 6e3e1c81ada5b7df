//go:build !windows

package launcher

import (
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// signalExitBase is added to the signal number, matching POSIX shells.
const signalExitBase = 128

func statusFromProcessState(state *os.ProcessState) ExitStatus {
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok {
		return ExitStatus{Code: state.ExitCode()}
	}

	if ws.Signaled() {
		return ExitStatus{
			Code:   signalExitBase + int(ws.Signal()),
			Signal: ws.Signal(),
		}
	}

	return ExitStatus{Code: ws.ExitStatus()}
}

// Exit terminates the current process the same way the child terminated.
// A signalled child is mirrored by re-raising the signal with its default
// disposition; os.Exit with 128+signal is the fallback.
func (s ExitStatus) Exit() {
	if sig, ok := s.Signal.(syscall.Signal); ok {
		signal.Reset(sig)

		_ = unix.Kill(unix.Getpid(), sig)
	}

	os.Exit(s.Code)
}

// SignalName returns the conventional name of the terminating signal, if any.
func (s ExitStatus) SignalName() string {
	sig, ok := s.Signal.(syscall.Signal)
	if !ok {
		return ""
	}

	return unix.SignalName(sig)
}
