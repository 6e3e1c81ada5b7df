//go:build !windows

package integration

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/vercel-cli/internal/archive"
	"github.com/oshokin/vercel-cli/internal/launcher"
	"github.com/oshokin/vercel-cli/internal/service/packager"
	"github.com/oshokin/vercel-cli/internal/service/updater"
)

// launch runs the launcher for root and returns what the vendored CLI printed.
func launch(t *testing.T, root string, args ...string) string {
	t.Helper()

	var stdout, stderr bytes.Buffer

	status, err := launcher.Run(context.Background(), &launcher.Options{
		Layout: launcher.Layout{Root: root},
		Args:   args,
		Stdout: &stdout,
		Stderr: &stderr,
	})
	require.NoError(t, err, stderr.String())
	require.True(t, status.Success(), stderr.String())

	return strings.TrimSpace(stdout.String())
}

// TestVendorThenLaunch vendors a release, upgrades to a newer one and runs each through the launcher.
func TestVendorThenLaunch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := newRegistry(t)
	reg.publish("46.0.1")

	root, cfg := newInstall(t, reg)

	result, err := updater.Update(ctx, &updater.Options{Config: cfg, Root: root, Version: "46.0.1"})
	require.NoError(t, err)
	require.True(t, result.Updated)
	require.Equal(t, "vercel 46.0.1 deploy --prod", launch(t, root, "deploy", "--prod"))

	reg.publish("46.0.2")

	result, err = updater.Check(ctx, &updater.Options{Config: cfg, Root: root, Vendor: true})
	require.NoError(t, err)
	require.True(t, result.Updated)
	require.Equal(t, "46.0.1", result.Previous)
	require.Equal(t, "46.0.2", result.Current)
	require.Equal(t, "vercel 46.0.2 --version", launch(t, root, "--version"))
	require.FileExists(t, filepath.Join(root, "vendor", "node_modules", "@vercel", "python", "index.js"))
}

// TestFailedUpdateKeepsWorkingBundle checks a rejected download leaves the previous bundle runnable.
func TestFailedUpdateKeepsWorkingBundle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := newRegistry(t)
	reg.publish("46.0.1")

	root, cfg := newInstall(t, reg)

	_, err := updater.Update(ctx, &updater.Options{Config: cfg, Root: root})
	require.NoError(t, err)

	reg.publish("46.0.2")
	reg.corrupt("46.0.2")

	_, err = updater.Update(ctx, &updater.Options{Config: cfg, Root: root})
	require.Error(t, err)
	require.Equal(t, "vercel 46.0.1 whoami", launch(t, root, "whoami"))
}

// TestPackageThenLaunch packages a vendored install, unpacks it elsewhere, verifies it and runs it.
func TestPackageThenLaunch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := newRegistry(t)
	reg.publish("46.0.2")

	root, cfg := newInstall(t, reg)
	writeFile(t, filepath.Join(root, "bin", "vercel"), "launcher binary", 0o755)

	_, err := updater.Update(ctx, &updater.Options{Config: cfg, Root: root, Version: "46.0.2"})
	require.NoError(t, err)

	packaged, err := packager.Run(ctx, &packager.Options{Config: cfg, Root: root, GOOS: "linux", GOARCH: "amd64"})
	require.NoError(t, err)
	require.Equal(t, "46.0.2", packaged.Description.VersionNumber)

	install := t.TempDir()

	_, err = archive.ExtractTarGz(packaged.Archive, install, archive.Options{
		Prefix: strings.TrimSuffix(filepath.Base(packaged.Archive), ".tar.gz") + "/",
	})
	require.NoError(t, err)

	desc, err := packager.Verify(ctx, install)
	require.NoError(t, err)
	require.Equal(t, "vercel", desc.Package)
	require.Equal(t, "vercel 46.0.2 ls", launch(t, install, "ls"))
}
