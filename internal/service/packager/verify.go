package packager

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"go.uber.org/multierr"

	"github.com/oshokin/vercel-cli/internal/bundle"
	"github.com/oshokin/vercel-cli/internal/logger"
	"github.com/oshokin/vercel-cli/internal/service/common"
)

var (
	errChecksumMismatch = errors.New("checksum mismatch")
	errVersionDrift     = errors.New("release version differs from the vendored version")
)

// Verify checks the install root against its release manifest: every recorded
// file must match its checksum and the manifest version must equal the version
// derived from the vendored package.json.
func Verify(ctx context.Context, root string) (*Description, error) {
	ctx = logger.WithName(ctx, "vercel-vendor.verify")

	desc, err := ReadDescription(filepath.Join(root, ManifestFilename))
	if err != nil {
		return nil, err
	}

	var problems error

	names := make([]string, 0, len(desc.Files))
	for name := range desc.Files {
		names = append(names, name)
	}

	slices.Sort(names)

	for _, name := range names {
		actual, checksumErr := common.EncodedFileChecksum(filepath.Join(root, filepath.FromSlash(name)))
		if checksumErr != nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: %w", name, checksumErr))
			continue
		}

		if actual != desc.Files[name] {
			problems = multierr.Append(problems, fmt.Errorf("%s: %w", name, errChecksumMismatch))
			continue
		}

		logger.DebugKV(ctx, "Verified file", "file", name)
	}

	vendored, err := bundle.ReadVersion(filepath.Join(root, bundle.VendorDirName))
	if err != nil {
		problems = multierr.Append(problems, err)
	} else if vendored != desc.VersionNumber {
		problems = multierr.Append(problems,
			fmt.Errorf("%w: manifest %s, vendored %s", errVersionDrift, desc.VersionNumber, vendored))
	}

	if problems != nil {
		return desc, problems
	}

	logger.InfoKV(ctx, "Release verified", "version", desc.VersionNumber, "files", len(names))

	return desc, nil
}
