package launcher

import "os"

var forwardedSignals []os.Signal //nolint:gochecknoglobals // Windows cannot forward signals.

// Console control events are delivered to every attached process.
var terminalSignals = []os.Signal{os.Interrupt} //nolint:gochecknoglobals // Fixed signal set.

// shouldForward is always false: the console already delivered the event to the child.
func shouldForward(os.Signal) bool {
	return false
}
