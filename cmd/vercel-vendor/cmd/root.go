package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/vercel-cli/internal/config"
	"github.com/oshokin/vercel-cli/internal/logger"
	"github.com/oshokin/vercel-cli/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel is the minimum level of log messages.
	logLevel string
	// quiet limits output to errors and hides progress bars.
	quiet bool

	errUnknownLogLevel = errors.New("unknown log level")

	// rootCmd represents the base command for maintaining the vendored bundle.
	rootCmd = &cobra.Command{
		Use:           "vercel-vendor",
		Short:         "Maintain the vendored Vercel CLI and its bundled runtime",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return setupLogger()
		},
	}
)

// Execute runs the vercel-vendor CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file (default "+
		config.DefaultConfigFilename+" if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log errors and hide progress")
}

// setupLogger sends logs to stderr so stdout carries only command results.
func setupLogger() error {
	level, ok := logger.ParseLogLevel(logLevel)
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, logLevel)
	}

	logger.SetLevel(level)

	var options []zap.Option
	if quiet {
		options = append(options, logger.WithLevel(zapcore.ErrorLevel))
	}

	logger.SetLogger(logger.NewWithSink(zapcore.Lock(os.Stderr), nil, options...))

	return nil
}

// commandContext is cancelled on SIGINT or SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	// Setup graceful shutdown handling.
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

// loadConfig reads the configuration named by --config.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// progressOutput is where download progress is drawn.
func progressOutput() io.Writer {
	if quiet {
		return nil
	}

	return os.Stderr
}
