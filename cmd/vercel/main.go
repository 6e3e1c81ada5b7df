// Command vercel runs the vendored Vercel CLI with the bundled Node.js runtime.
//
// Every argument is forwarded untouched, including --help and --version, so
// this binary deliberately has no flag parsing of its own.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap/zapcore"

	"github.com/oshokin/vercel-cli/internal/launcher"
	"github.com/oshokin/vercel-cli/internal/logger"
)

func main() {
	// Stdout belongs to the wrapped tool.
	logger.SetLogger(logger.NewWithSink(zapcore.Lock(os.Stderr), zapcore.WarnLevel))

	status := run(context.Background(), os.Args[1:])
	status.Exit()
}

func run(ctx context.Context, args []string) launcher.ExitStatus {
	layout, err := launcher.DefaultLayout()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "vercel: %v\n", err)
		return launcher.ExitStatus{Code: launcher.ExitCodeSetup}
	}

	status, err := launcher.Run(ctx, &launcher.Options{
		Layout: layout,
		Args:   args,
	})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "vercel: %v\n", err)
	}

	return status
}
