package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/vercel-cli/internal/service/packager"
)

var (
	// packageOS and packageArch label the target platform.
	packageOS   string
	packageArch string
	// packageOut is the output directory.
	packageOut string
	// packageLauncher is the built launcher binary.
	packageLauncher string

	// packageCmd builds a release archive.
	packageCmd = &cobra.Command{
		Use:   "package",
		Short: "Build a release archive with the launcher, vendor bundle and runtime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := commandContext()
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			result, err := packager.Run(ctx, &packager.Options{
				Config:    cfg,
				Launcher:  packageLauncher,
				GOOS:      packageOS,
				GOARCH:    packageArch,
				OutputDir: packageOut,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), result.Archive)

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	packageCmd.Flags().StringVar(&packageOS, "os", "", "target GOOS (default: host)")
	packageCmd.Flags().StringVar(&packageArch, "arch", "", "target GOARCH (default: host)")
	packageCmd.Flags().StringVar(&packageOut, "out", packager.DefaultOutputDir, "output directory")
	packageCmd.Flags().StringVar(&packageLauncher, "launcher", "", "launcher binary (default: bin/vercel)")

	rootCmd.AddCommand(packageCmd)
}
