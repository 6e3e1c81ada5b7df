package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/vercel-cli/internal/service/packager"
)

// verifyCmd checks an installed tree against its release manifest.
var verifyCmd = &cobra.Command{
	Use:   "verify [install-root]",
	Short: "Verify an installed release against its manifest",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := commandContext()
		defer stop()

		root := "."
		if len(args) == 1 {
			root = args[0]
		}

		desc, err := packager.Verify(ctx, root)
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s@%s verified\n", desc.Package, desc.VersionNumber)

		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(verifyCmd)
}
