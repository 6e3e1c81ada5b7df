package launcher

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/oshokin/vercel-cli/internal/bundle"
)

// Layout locates the bundle inside an install root.
type Layout struct {
	// Root is the install root: the directory holding the launcher binary.
	Root string
	// GOOS selects the runtime layout; empty means the current platform.
	GOOS string
}

// DefaultLayout derives the install root from the running executable.
// Symlinks are resolved so a launcher linked into PATH still finds its bundle.
func DefaultLayout() (Layout, error) {
	executable, err := os.Executable()
	if err != nil {
		return Layout{}, fmt.Errorf("locate launcher executable: %w", err)
	}

	resolved, err := filepath.EvalSymlinks(executable)
	if err != nil {
		return Layout{}, fmt.Errorf("resolve launcher executable: %w", err)
	}

	return Layout{Root: filepath.Dir(resolved)}, nil
}

// VendorDir returns the absolute vendor directory.
func (l Layout) VendorDir() string {
	return filepath.Join(l.root(), bundle.VendorDirName)
}

// EntryScript returns the absolute path of the vendored entry script.
func (l Layout) EntryScript() string {
	return filepath.Join(l.VendorDir(), filepath.FromSlash(bundle.EntryScriptPath))
}

// RuntimeExecutable returns the absolute path of the bundled runtime executable.
func (l Layout) RuntimeExecutable() string {
	return filepath.Join(l.root(), bundle.RuntimeDirName, bundle.RuntimeExecutablePath(l.goos()))
}

func (l Layout) root() string {
	if abs, err := filepath.Abs(l.Root); err == nil {
		return abs
	}

	return l.Root
}

func (l Layout) goos() string {
	if l.GOOS == "" {
		return runtime.GOOS
	}

	return l.GOOS
}
