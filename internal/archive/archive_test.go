package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

type member struct {
	name     string
	body     string
	typeflag byte
	link     string
	mode     int64
}

func writeTarGz(t *testing.T, members []member) string {
	t.Helper()

	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, m := range members {
		mode := m.mode
		if mode == 0 {
			mode = 0o644
		}

		header := &tar.Header{
			Name:     m.name,
			Mode:     mode,
			Size:     int64(len(m.body)),
			Typeflag: m.typeflag,
			Linkname: m.link,
		}
		if m.typeflag != tar.TypeReg {
			header.Size = 0
		}

		require.NoError(t, tw.WriteHeader(header))

		if m.typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(m.body))
			require.NoError(t, err)
		}
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	path := filepath.Join(t.TempDir(), "pkg.tgz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	return path
}

// TestMemberPath mirrors the npm tarball safety rules.
func TestMemberPath(t *testing.T) {
	t.Parallel()

	opts := Options{Prefix: NPMPackagePrefix}

	cases := map[string]struct {
		want string
		ok   bool
	}{
		"package/index.js":        {"index.js", true},
		"package/dist/vc.js":      {"dist/vc.js", true},
		"package/dist/":           {"dist", true},
		"package/":                {"", false},
		"index.js":                {"", false},
		"package/../x":            {"", false},
		"package/.. /x":           {"", false},
		"package/ dist/x":         {"", false},
		"package/./x":             {"", false},
		"package//etc/passwd":     {"", false},
		"other/package/index.js":  {"", false},
		"package/node_modules/a/": {"node_modules/a", true},
	}

	for name, want := range cases {
		got, ok := opts.MemberPath(name)
		require.Equal(t, want.ok, ok, name)
		require.Equal(t, want.want, got, name)
	}

	strip := Options{StripComponents: 1}
	got, ok := strip.MemberPath("node-v22.11.0-linux-x64/bin/node")
	require.True(t, ok)
	require.Equal(t, "bin/node", got)

	_, ok = strip.MemberPath("node-v22.11.0-linux-x64/")
	require.False(t, ok)
}

// TestExtractTarGz_NPMPackage strips the prefix, keeps modes and skips unsafe members.
func TestExtractTarGz_NPMPackage(t *testing.T) {
	t.Parallel()

	src := writeTarGz(t, []member{
		{name: "package/", typeflag: tar.TypeDir, mode: 0o755},
		{name: "package/package.json", body: `{"version":"46.0.2"}`, typeflag: tar.TypeReg},
		{name: "package/dist/vc.js", body: "#!/usr/bin/env node\n", typeflag: tar.TypeReg, mode: 0o755},
		{name: "package/../escape.txt", body: "nope", typeflag: tar.TypeReg},
		{name: "/abs.txt", body: "nope", typeflag: tar.TypeReg},
		{name: "package/link", typeflag: tar.TypeSymlink, link: "../../etc/passwd"},
		{name: "package/hard", typeflag: tar.TypeLink, link: "package/package.json"},
		{name: "outside.txt", body: "nope", typeflag: tar.TypeReg},
	})

	dest := filepath.Join(t.TempDir(), "work")

	stats, err := ExtractTarGz(src, dest, Options{Prefix: NPMPackagePrefix})
	require.NoError(t, err)
	require.Equal(t, 2, stats.Files)
	require.Equal(t, 6, stats.Skipped)

	data, err := os.ReadFile(filepath.Join(dest, "package.json"))
	require.NoError(t, err)
	require.JSONEq(t, `{"version":"46.0.2"}`, string(data))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(dest, "dist", "vc.js"))
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o755), info.Mode().Perm()&0o755)
	}

	for _, name := range []string{"link", "hard", "escape.txt", "outside.txt"} {
		_, err = os.Lstat(filepath.Join(dest, name))
		require.ErrorIs(t, err, os.ErrNotExist, name)
	}

	_, err = os.Lstat(filepath.Join(filepath.Dir(dest), "escape.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestExtractTarGz_Symlinks keeps internal links and rejects escaping ones when links are allowed.
func TestExtractTarGz_Symlinks(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on Windows")
	}

	src := writeTarGz(t, []member{
		{name: "node/lib/npm-cli.js", body: "npm", typeflag: tar.TypeReg},
		{name: "node/bin/npm", typeflag: tar.TypeSymlink, link: "../lib/npm-cli.js"},
	})

	dest := t.TempDir()

	stats, err := ExtractTarGz(src, dest, Options{StripComponents: 1, KeepSymlinks: true})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Links)

	target, err := os.Readlink(filepath.Join(dest, "bin", "npm"))
	require.NoError(t, err)
	require.Equal(t, "../lib/npm-cli.js", target)

	evil := writeTarGz(t, []member{
		{name: "node/bin/evil", typeflag: tar.TypeSymlink, link: "../../../etc/passwd"},
	})

	_, err = ExtractTarGz(evil, t.TempDir(), Options{StripComponents: 1, KeepSymlinks: true})
	require.ErrorIs(t, err, errLinkEscapes)
}

// TestExtractTarGz_Corrupt reports a broken gzip stream.
func TestExtractTarGz_Corrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.tgz")
	require.NoError(t, os.WriteFile(path, []byte("not gzip"), 0o600))

	_, err := ExtractTarGz(path, t.TempDir(), Options{})
	require.Error(t, err)
}

// TestExtractZip strips the leading directory of a Windows Node.js archive.
func TestExtractZip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)

	for name, body := range map[string]string{
		"node-v22.11.0-win-x64/node.exe":                            "MZ",
		"node-v22.11.0-win-x64/node_modules/npm/bin/npm-cli.js":     "npm",
		"node-v22.11.0-win-x64/../../evil.txt":                      "nope",
		"node-v22.11.0-win-x64/node_modules/npm/package.json":       "{}",
		"node-v22.11.0-win-x64/node_modules/npm/node_modules/.keep": "",
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)

		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())

	src := filepath.Join(t.TempDir(), "node.zip")
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0o600))

	dest := t.TempDir()

	stats, err := ExtractZip(src, dest, Options{StripComponents: 1})
	require.NoError(t, err)
	require.Equal(t, 4, stats.Files)
	require.Equal(t, 1, stats.Skipped)

	data, err := os.ReadFile(filepath.Join(dest, "node.exe"))
	require.NoError(t, err)
	require.Equal(t, "MZ", string(data))
}

// TestTarGzWriter_RoundTrip writes a tree with a prefix and extracts it back.
func TestTarGzWriter_RoundTrip(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "dist"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "dist", "vc.js"), []byte("cli"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "package.json"), []byte("{}"), 0o644))

	single := filepath.Join(t.TempDir(), "release.yaml")
	require.NoError(t, os.WriteFile(single, []byte("version: 1\n"), 0o644))

	dst := filepath.Join(t.TempDir(), "out", "bundle.tar.gz")

	w, err := CreateTarGz(dst)
	require.NoError(t, err)
	require.NoError(t, w.AddTree("package/vendor", src))
	require.NoError(t, w.AddFile("package/release.yaml", single))
	require.NoError(t, w.Close())

	dest := t.TempDir()

	stats, err := ExtractTarGz(dst, dest, Options{Prefix: NPMPackagePrefix})
	require.NoError(t, err)
	require.Equal(t, 3, stats.Files)

	data, err := os.ReadFile(filepath.Join(dest, "vendor", "dist", "vc.js"))
	require.NoError(t, err)
	require.Equal(t, "cli", string(data))

	_, err = os.Stat(filepath.Join(dest, "release.yaml"))
	require.NoError(t, err)
}
