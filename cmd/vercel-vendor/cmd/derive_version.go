package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oshokin/vercel-cli/internal/bundle"
	"github.com/oshokin/vercel-cli/internal/version"
)

var (
	// deriveVendorDir overrides the configured vendor directory.
	deriveVendorDir string

	// deriveVersionCmd prints the version recorded in the vendored package.json.
	deriveVersionCmd = &cobra.Command{
		Use:   "derive-version",
		Short: "Print the vendored version used as this distribution's version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := deriveVendorDir
			if dir == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}

				dir = cfg.VendorDir
			}

			v, err := version.FromManifestFile(filepath.Join(dir, bundle.ManifestFilename))
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), v)

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	deriveVersionCmd.Flags().StringVar(&deriveVendorDir, "vendor-dir", "", "vendor directory (default: from configuration)")

	rootCmd.AddCommand(deriveVersionCmd)
}
