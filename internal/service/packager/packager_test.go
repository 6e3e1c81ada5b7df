package packager

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/vercel-cli/internal/archive"
	"github.com/oshokin/vercel-cli/internal/service/common"
)

func writeFile(t *testing.T, path, contents string, mode os.FileMode) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), mode))
}

// newProject lays out a vendored bundle, a runtime and a built launcher.
func newProject(t *testing.T) string {
	t.Helper()

	root := t.TempDir()

	writeFile(t, filepath.Join(root, "vendor", "package.json"), `{"name":"vercel","version":"46.0.2"}`+"\n", 0o644)
	writeFile(t, filepath.Join(root, "vendor", "dist", "vc.js"), "console.log('46.0.2')\n", 0o644)
	writeFile(t, filepath.Join(root, "vendor", "node_modules", "@vercel", "python", "index.js"), "", 0o644)
	writeFile(t, filepath.Join(root, "runtime", "bin", "node"), "node binary", 0o755)
	writeFile(t, filepath.Join(root, "bin", "vercel"), "launcher binary", 0o755)

	return root
}

// build packages root for linux/amd64 and extracts the archive into a fresh install root.
func build(t *testing.T, root string) (*Result, string) {
	t.Helper()

	result, err := Run(context.Background(), &Options{Root: root, GOOS: "linux", GOARCH: "amd64"})
	require.NoError(t, err)

	install := t.TempDir()

	_, err = archive.ExtractTarGz(result.Archive, install, archive.Options{
		Prefix: strings.TrimSuffix(filepath.Base(result.Archive), ".tar.gz") + "/",
	})
	require.NoError(t, err)

	return result, install
}

func TestRun_BuildsReleaseArchive(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	result, install := build(t, root)

	require.Equal(t, filepath.Join(root, "dist", "vercel-cli-46.0.2-linux-amd64.tar.gz"), result.Archive)

	desc := result.Description
	require.Equal(t, "46.0.2", desc.VersionNumber)
	require.Equal(t, "vercel", desc.Package)
	require.Equal(t, "linux/amd64", desc.Platform)
	require.Equal(t, "vendor/dist/vc.js", desc.EntryScript)
	require.Equal(t, "runtime/bin/node", desc.Runtime)
	require.Len(t, desc.Files, 4)

	launcherSum, err := common.EncodedFileChecksum(filepath.Join(root, "bin", "vercel"))
	require.NoError(t, err)
	require.Equal(t, launcherSum, desc.Files["vercel"])

	for _, name := range []string{"vercel", ManifestFilename, "vendor/dist/vc.js", "vendor/node_modules/@vercel/python/index.js", "runtime/bin/node"} {
		require.FileExists(t, filepath.Join(install, filepath.FromSlash(name)))
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(install, "vercel"))
		require.NoError(t, err)
		require.NotZero(t, info.Mode().Perm()&0o100)
	}

	stored, err := ReadDescription(filepath.Join(install, ManifestFilename))
	require.NoError(t, err)
	require.Equal(t, desc, stored)
}

func TestVerify(t *testing.T) {
	t.Parallel()

	_, install := build(t, newProject(t))

	desc, err := Verify(context.Background(), install)
	require.NoError(t, err)
	require.Equal(t, "46.0.2", desc.VersionNumber)
}

func TestVerify_DetectsTampering(t *testing.T) {
	t.Parallel()

	_, install := build(t, newProject(t))

	writeFile(t, filepath.Join(install, "vendor", "dist", "vc.js"), "tampered", 0o644)
	require.NoError(t, os.Remove(filepath.Join(install, "runtime", "bin", "node")))

	_, err := Verify(context.Background(), install)
	require.ErrorIs(t, err, errChecksumMismatch)
	require.ErrorContains(t, err, "vendor/dist/vc.js")
	require.ErrorContains(t, err, "runtime/bin/node")
}

func TestVerify_DetectsVersionDrift(t *testing.T) {
	t.Parallel()

	_, install := build(t, newProject(t))

	desc, err := ReadDescription(filepath.Join(install, ManifestFilename))
	require.NoError(t, err)

	desc.VersionNumber = "46.0.1"
	require.NoError(t, WriteDescription(filepath.Join(install, ManifestFilename), desc))

	_, err = Verify(context.Background(), install)
	require.ErrorIs(t, err, errVersionDrift)
}

func TestRun_MissingArtifacts(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	require.NoError(t, os.Remove(filepath.Join(root, "vendor", "dist", "vc.js")))

	_, err := Run(context.Background(), &Options{Root: root, GOOS: "linux", GOARCH: "amd64"})
	require.ErrorIs(t, err, errMissingArtifact)
	require.NoDirExists(t, filepath.Join(root, "dist"))

	root = newProject(t)

	_, err = Run(context.Background(), &Options{Root: root, GOOS: "windows", GOARCH: "amd64"})
	require.ErrorIs(t, err, errMissingArtifact)

	_, err = Run(context.Background(), nil)
	require.ErrorIs(t, err, errOptionsRequired)
}

func TestNames(t *testing.T) {
	t.Parallel()

	require.Equal(t, "vercel.exe", LauncherName("windows"))
	require.Equal(t, "vercel", LauncherName("darwin"))
	require.Equal(t, "vercel-cli-46.0.2-darwin-arm64.tar.gz", ArchiveName("46.0.2", "darwin", "arm64"))

	desc := NewDescription("vercel", "46.0.2", "windows", "arm64")
	require.Equal(t, "runtime/node.exe", desc.Runtime)
	require.Equal(t, "vercel.exe", desc.Launcher)
}
