//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/containerd/continuity/fs"
	"go.uber.org/multierr"

	"github.com/oshokin/vercel-cli/internal/logger"
)

// DefaultDirMode is applied to a directory after it is swapped into place.
const DefaultDirMode os.FileMode = 0o755

var errNotDirectory = errors.New("not a directory")

// renameDir is replaced in tests to simulate a failing swap.
//
//nolint:gochecknoglobals // Test seam for the swap step.
var renameDir = os.Rename

// ReplaceDir replaces the directory target with a copy of prepared.
//
// The copy is staged next to target so the final step is a pair of renames on
// one filesystem. Files named in keep are carried over from the existing target
// when prepared lacks them. If the swap fails the previous tree is restored;
// any failure leaves target as it was.
func ReplaceDir(ctx context.Context, prepared, target string, keep ...string) (err error) {
	info, err := os.Stat(prepared)
	if err != nil {
		return fmt.Errorf("prepared tree: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%s: %w", prepared, errNotDirectory)
	}

	parent, base := filepath.Dir(target), filepath.Base(target)
	if err = os.MkdirAll(parent, DefaultDirMode); err != nil {
		return err
	}

	staging, err := os.MkdirTemp(parent, base+".staging-")
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}

	defer func() {
		if err != nil {
			_ = os.RemoveAll(staging)
		}
	}()

	logger.DebugKV(ctx, "Staging directory", "from", prepared, "to", staging)

	if err = fs.CopyDir(staging, prepared, fs.WithAllowXAttrErrors()); err != nil {
		return fmt.Errorf("copy into staging directory: %w", err)
	}

	if err = carryOver(target, staging, keep); err != nil {
		return err
	}

	if err = os.Chmod(staging, DefaultDirMode); err != nil {
		return err
	}

	var old string

	if _, statErr := os.Lstat(target); statErr == nil {
		old = filepath.Join(parent, base+".old-"+strconv.FormatInt(time.Now().UnixNano(), 10))

		if err = renameDir(target, old); err != nil {
			return fmt.Errorf("move %s aside: %w", target, err)
		}
	}

	if err = renameDir(staging, target); err != nil {
		err = fmt.Errorf("move staging directory into place: %w", err)

		if old != "" {
			if rollbackErr := renameDir(old, target); rollbackErr != nil {
				err = multierr.Append(err, fmt.Errorf("restore %s: %w", target, rollbackErr))
			}
		}

		return err
	}

	if old != "" {
		if removeErr := os.RemoveAll(old); removeErr != nil {
			logger.WarnKV(ctx, "Unable to remove previous tree", "path", old, "error", removeErr)
		}
	}

	return nil
}

// carryOver copies the named files from the current tree into staging
// unless staging already has them.
func carryOver(current, staging string, names []string) error {
	for _, name := range names {
		src := filepath.Join(current, name)

		info, err := os.Lstat(src)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		dst := filepath.Join(staging, name)
		if _, err = os.Lstat(dst); err == nil {
			continue
		}

		if err = os.MkdirAll(filepath.Dir(dst), DefaultDirMode); err != nil {
			return err
		}

		if err = fs.CopyFile(dst, src); err != nil {
			return fmt.Errorf("carry over %s: %w", name, err)
		}
	}

	return nil
}
