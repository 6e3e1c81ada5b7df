//go:build !windows

package launcher

import (
	"os"
	"slices"
	"syscall"

	"golang.org/x/sys/unix"
)

// forwardedSignals usually target the launcher alone, so the child would never see them.
var forwardedSignals = []os.Signal{syscall.SIGTERM, syscall.SIGHUP} //nolint:gochecknoglobals // Fixed signal set.

// terminalSignals reach the whole foreground process group when typed at the
// terminal, but only the launcher when sent to its PID.
var terminalSignals = []os.Signal{syscall.SIGINT, syscall.SIGQUIT} //nolint:gochecknoglobals // Fixed signal set.

// shouldForward reports whether sig has to be relayed to the child.
func shouldForward(sig os.Signal) bool {
	return forwardSignal(sig, inForegroundGroup)
}

// forwardSignal relays terminal signals unless the launcher is in the
// terminal's foreground group, where the child already received them.
func forwardSignal(sig os.Signal, foreground func() bool) bool {
	switch {
	case slices.Contains(forwardedSignals, sig):
		return true
	case slices.Contains(terminalSignals, sig):
		return !foreground()
	default:
		return false
	}
}

// inForegroundGroup reports whether the launcher's process group owns the controlling terminal.
func inForegroundGroup() bool {
	tty, err := os.Open("/dev/tty")
	if err != nil {
		return false
	}

	defer func() {
		_ = tty.Close()
	}()

	pgrp, err := unix.IoctlGetInt(int(tty.Fd()), unix.TIOCGPGRP)
	if err != nil {
		return false
	}

	return pgrp == unix.Getpgrp()
}
