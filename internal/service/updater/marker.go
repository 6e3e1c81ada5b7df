package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/vercel-cli/internal/logger"
	"github.com/oshokin/vercel-cli/internal/service/common"
)

const (
	// MarkerFilename marks that an update is running right now to avoid parallel execution.
	MarkerFilename = ".vercel-vendor-update.lock"

	// markerLifetime is the period after which an update marker is considered stale
	// even if its process still exists.
	markerLifetime = time.Hour

	markerFileMode os.FileMode = 0o644
)

// marker is an acquired update marker.
type marker struct {
	path string
}

// acquireMarker creates the update marker at path, recovering a stale one.
func acquireMarker(ctx context.Context, path string) (*marker, error) {
	logger.Debug(ctx, "Checking for the presence of an update marker")

	if isUpdaterRunningNow(ctx, path) {
		return nil, fmt.Errorf("%s: %w", path, errUpdaterAlreadyRunning)
	}

	if err := os.MkdirAll(filepath.Dir(path), common.DefaultDirMode); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_EXCL|os.O_WRONLY, markerFileMode)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%s: %w", path, errUpdaterAlreadyRunning)
		}

		return nil, err
	}

	_, err = fmt.Fprintf(f, "%d\n", os.Getpid())
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	return &marker{path: path}, nil
}

// release removes the marker.
func (m *marker) release() {
	if m == nil {
		return
	}

	_ = os.Remove(m.path)
}

// isUpdaterRunningNow reports whether a live updater owns the marker at path.
// A marker that is too old, unreadable, or owned by a dead process is removed.
func isUpdaterRunningNow(ctx context.Context, path string) bool {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false
	}

	if err != nil {
		logger.Warnf(ctx, "Unable to read update marker: %v", err)
		return true
	}

	if !markerIsStale(path, info) {
		return true
	}

	logger.InfoKV(ctx, "Removing stale update marker", "path", path)

	return os.Remove(path) != nil
}

func markerIsStale(path string, info os.FileInfo) bool {
	young := time.Since(info.ModTime()) <= markerLifetime

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return !young
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil || pid <= 0 {
		// Possibly still being written.
		return !young
	}

	if pid == os.Getpid() || !young {
		return true
	}

	return !processAlive(pid)
}

func processAlive(pid int) bool {
	process, err := ps.FindProcess(pid)
	if err != nil {
		// Treat lookup failures as alive.
		return true
	}

	return process != nil
}
