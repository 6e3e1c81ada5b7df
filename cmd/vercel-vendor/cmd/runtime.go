package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/vercel-cli/internal/service/nodedist"
)

var (
	// runtimeOS and runtimeArch select the target platform.
	runtimeOS   string
	runtimeArch string
	// runtimeForce reinstalls an already installed version.
	runtimeForce bool

	// runtimeCmd installs the bundled Node.js runtime.
	runtimeCmd = &cobra.Command{
		Use:   "runtime",
		Short: "Install the bundled Node.js runtime for a platform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := commandContext()
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			result, err := nodedist.Install(ctx, &nodedist.Options{
				Config:   cfg,
				GOOS:     runtimeOS,
				GOARCH:   runtimeArch,
				Force:    runtimeForce,
				Progress: progressOutput(),
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), result.Executable)

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	runtimeCmd.Flags().StringVar(&runtimeOS, "os", "", "target GOOS (default: host)")
	runtimeCmd.Flags().StringVar(&runtimeArch, "arch", "", "target GOARCH (default: host)")
	runtimeCmd.Flags().BoolVar(&runtimeForce, "force", false, "reinstall even if the version is already present")

	rootCmd.AddCommand(runtimeCmd)
}
