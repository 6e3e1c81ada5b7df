package launcher

import (
	"errors"
	"fmt"
)

// ExitCodeSetup is the exit code reserved for a defective installation
// (EX_CONFIG from sysexits.h). Every other exit code belongs to the wrapped tool.
const ExitCodeSetup = 78

// ErrSetup is the sentinel matched by every *SetupError.
var ErrSetup = errors.New("setup error")

// Component names a part of the bundle.
type Component string

const (
	// ComponentEntryScript is the vendored entry script.
	ComponentEntryScript Component = "vendored entry script"
	// ComponentRuntime is the bundled runtime executable.
	ComponentRuntime Component = "bundled runtime executable"
)

// SetupError reports a packaging defect. It is never retried.
type SetupError struct {
	// Component is the missing or unusable part of the bundle.
	Component Component
	// Path is where the component was expected.
	Path string
	// Err is the underlying cause.
	Err error
}

// Error returns the message shown to the operator, remediation included.
func (e *SetupError) Error() string {
	return fmt.Sprintf("%s is unavailable at %s: %v\n"+
		"This installation is incomplete; it is a packaging problem, not a runtime failure.\n"+
		"To fix it, run %q from the project root and rebuild the package.",
		e.Component, e.Path, e.Err, e.Remedy())
}

// Remedy returns the maintainer command that restores the component.
func (e *SetupError) Remedy() string {
	if e.Component == ComponentRuntime {
		return "vercel-vendor runtime"
	}

	return "vercel-vendor update"
}

// Unwrap returns the underlying cause.
func (e *SetupError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrSetup.
func (e *SetupError) Is(target error) bool {
	return target == ErrSetup
}
