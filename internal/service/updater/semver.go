package updater

import (
	"context"

	"github.com/coreos/go-semver/semver"

	"github.com/oshokin/vercel-cli/internal/logger"
)

// isNewer reports whether candidate is strictly newer than current.
// An empty current always loses. Versions that are not valid semver are
// compared for inequality only.
func isNewer(ctx context.Context, candidate, current string) bool {
	if current == "" {
		return candidate != ""
	}

	candidateVersion, err := semver.NewVersion(candidate)
	if err != nil {
		logger.WarnKV(ctx, "Unable to parse version", "version", candidate, "error", err)
		return candidate != current
	}

	currentVersion, err := semver.NewVersion(current)
	if err != nil {
		logger.WarnKV(ctx, "Unable to parse version", "version", current, "error", err)
		return candidate != current
	}

	return currentVersion.LessThan(*candidateVersion)
}
