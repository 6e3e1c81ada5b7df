package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/vercel-cli/internal/service/updater"
)

var (
	// updateForce re-vendors in automatic mode even when current.
	updateForce bool
	// updateGitHubOutputs appends updated/new_version to $GITHUB_OUTPUT.
	updateGitHubOutputs bool
	// updateCommit commits and tags the vendored bundle.
	updateCommit bool

	// updateCmd vendors a specific version, or the latest one when newer.
	updateCmd = &cobra.Command{
		Use:   "update [version]",
		Short: "Vendor a specific version, or the latest release if it is newer",
		Long: "With a version (e.g. 46.0.2 or a dist-tag) the package is always vendored. " +
			"Without one the latest release is vendored only when it is strictly newer than the current bundle.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := commandContext()
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			options := &updater.Options{
				Config:        cfg,
				Force:         updateForce,
				GitHubOutputs: updateGitHubOutputs,
				Commit:        updateCommit,
				Progress:      progressOutput(),
			}

			if len(args) == 1 {
				options.Version = args[0]
			}

			result, err := updater.Update(ctx, options)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), result.Current)

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	updateCmd.Flags().BoolVar(&updateForce, "force", false, "vendor the latest release even if it is not newer")
	updateCmd.Flags().BoolVar(&updateGitHubOutputs, "github-outputs", false, "write updated/new_version to $GITHUB_OUTPUT")
	updateCmd.Flags().BoolVar(&updateCommit, "commit", false, "commit and tag the vendored bundle after an update")

	rootCmd.AddCommand(updateCmd)
}
