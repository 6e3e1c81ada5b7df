package updater

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/oshokin/vercel-cli/internal/logger"
)

// gitExecutable is resolved from PATH.
const gitExecutable = "git"

// CommitMessage is the commit message recorded for a vendored release.
func CommitMessage(pkg, version string) string {
	return fmt.Sprintf("Vendor %s@%s", pkg, version)
}

// TagName is the release tag created for a vendored version.
func TagName(version string) string {
	return "v" + version
}

// commitVendor stages the vendor directory, commits it and tags the release.
func commitVendor(ctx context.Context, repoDir, vendorDir, pkg, version string) error {
	steps := [][]string{
		{"add", "--all", "--", vendorDir},
		{"commit", "-m", CommitMessage(pkg, version)},
		{"tag", TagName(version)},
	}

	for _, args := range steps {
		logger.InfoKV(ctx, "Running git", "args", strings.Join(args, " "))

		//nolint:gosec // Arguments are built from the resolved version and configured paths.
		cmd := exec.CommandContext(ctx, gitExecutable, args...)
		cmd.Dir = repoDir

		var output bytes.Buffer

		cmd.Stdout = &output
		cmd.Stderr = &output

		if err := cmd.Run(); err != nil {
			return fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(output.String()))
		}
	}

	return nil
}
