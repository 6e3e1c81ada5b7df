package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/vercel-cli/internal/service/updater"
)

var (
	// checkVendor applies a strictly newer release.
	checkVendor bool
	// checkGitHubOutputs appends updated/new_version to $GITHUB_OUTPUT.
	checkGitHubOutputs bool
	// checkCommit commits and tags the vendored bundle.
	checkCommit bool

	// checkCmd compares the vendored version with the latest release.
	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Compare the vendored version with the latest release and optionally vendor it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := commandContext()
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			result, err := updater.Check(ctx, &updater.Options{
				Config:        cfg,
				Vendor:        checkVendor,
				GitHubOutputs: checkGitHubOutputs,
				Commit:        checkCommit,
				Progress:      progressOutput(),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			switch {
			case result.Updated:
				_, _ = fmt.Fprintln(out, result.Current)
			case result.UpdateAvailable:
				_, _ = fmt.Fprintf(out, "update available: %s -> %s\n", displayVersion(result.Current), result.Latest)
			default:
				_, _ = fmt.Fprintf(out, "no update needed: %s\n", displayVersion(result.Current))
			}

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	checkCmd.Flags().BoolVar(&checkVendor, "vendor", false, "vendor the latest release if it is newer")
	checkCmd.Flags().BoolVar(&checkGitHubOutputs, "github-outputs", false, "write updated/new_version to $GITHUB_OUTPUT")
	checkCmd.Flags().BoolVar(&checkCommit, "commit", false, "commit and tag the vendored bundle after an update")

	rootCmd.AddCommand(checkCmd)
}

func displayVersion(v string) string {
	if v == "" {
		return "(none)"
	}

	return v
}
