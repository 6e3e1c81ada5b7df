//go:build !windows

package updater

import (
	"crypto/sha1" //nolint:gosec // Registry shasums are SHA-1.
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/vercel-cli/internal/archive"
	"github.com/oshokin/vercel-cli/internal/config"
)

const fakeNPM = `#!/bin/sh
mkdir -p node_modules/@vercel/python
echo "module.exports = {}" > node_modules/@vercel/python/index.js
`

const failingNPM = `#!/bin/sh
echo "npm ERR! network request failed" >&2
exit 1
`

// fakeRegistry serves version documents and tarballs for the "vercel" package.
type fakeRegistry struct {
	t      *testing.T
	server *httptest.Server

	mu        sync.Mutex
	latest    string
	tarballs  map[string][]byte
	integrity map[string]string
	shasumOff bool

	downloads atomic.Int32
}

func newFakeRegistry(t *testing.T, versions ...string) *fakeRegistry {
	t.Helper()

	reg := &fakeRegistry{
		t:         t,
		tarballs:  make(map[string][]byte),
		integrity: make(map[string]string),
	}

	for _, v := range versions {
		reg.publish(v)
	}

	reg.server = httptest.NewServer(http.HandlerFunc(reg.serve))
	t.Cleanup(reg.server.Close)

	return reg
}

// publish builds an npm-style tarball for version and makes it the latest release.
func (reg *fakeRegistry) publish(version string) {
	reg.t.Helper()

	src := reg.t.TempDir()

	manifest := map[string]any{
		"name":            "vercel",
		"version":         version,
		"bin":             map[string]any{"vercel": "./dist/vc.js"},
		"dependencies":    map[string]any{"@vercel/python": "5.0.0", "left-pad": "1.3.0"},
		"devDependencies": map[string]any{"typescript": "5.0.0"},
		"packageManager":  "pnpm@8.3.1",
	}

	data, err := json.Marshal(manifest)
	require.NoError(reg.t, err)

	writeFile(reg.t, filepath.Join(src, "package.json"), string(data))
	writeFile(reg.t, filepath.Join(src, "dist", "vc.js"), "console.log('"+version+"')\n")
	writeFile(reg.t, filepath.Join(src, "LICENSE"), "Apache-2.0\n")

	tgz := filepath.Join(reg.t.TempDir(), "vercel.tgz")

	w, err := archive.CreateTarGz(tgz)
	require.NoError(reg.t, err)
	require.NoError(reg.t, w.AddTree("package", src))
	require.NoError(reg.t, w.Close())

	contents, err := os.ReadFile(tgz)
	require.NoError(reg.t, err)

	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.tarballs[version] = contents
	reg.latest = version
}

func (reg *fakeRegistry) setIntegrity(version, value string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.integrity[version] = value
}

func (reg *fakeRegistry) disableShasum() {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.shasumOff = true
}

func (reg *fakeRegistry) serve(w http.ResponseWriter, r *http.Request) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if name, ok := strings.CutPrefix(r.URL.Path, "/tarballs/"); ok {
		version := strings.TrimSuffix(strings.TrimPrefix(name, "vercel-"), ".tgz")

		contents, found := reg.tarballs[version]
		if !found {
			http.NotFound(w, r)
			return
		}

		reg.downloads.Add(1)
		_, _ = w.Write(contents)

		return
	}

	version, ok := strings.CutPrefix(r.URL.Path, "/vercel/")
	if !ok {
		http.NotFound(w, r)
		return
	}

	if version == "latest" {
		version = reg.latest
	}

	contents, found := reg.tarballs[version]
	if !found {
		http.Error(w, `{"error":"version not found"}`, http.StatusNotFound)
		return
	}

	sha512sum := sha512.Sum512(contents)
	sha1sum := sha1.Sum(contents) //nolint:gosec // Registry shasums are SHA-1.

	dist := map[string]string{
		"integrity": "sha512-" + base64.StdEncoding.EncodeToString(sha512sum[:]),
		"shasum":    hex.EncodeToString(sha1sum[:]),
		"tarball":   fmt.Sprintf("%s/tarballs/vercel-%s.tgz", reg.server.URL, version),
	}

	if override, set := reg.integrity[version]; set {
		dist["integrity"] = override
	}

	if reg.shasumOff {
		dist["shasum"] = ""
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"name":    "vercel",
		"version": version,
		"dist":    dist,
	})
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func writeExecutable(t *testing.T, path, contents string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o755)) //nolint:gosec // Test fixture must be executable.
}

// newProject creates an install root with an empty vendor directory and returns
// options pointing at reg with the given fake npm script.
func newProject(t *testing.T, reg *fakeRegistry, npmScript string) *Options {
	t.Helper()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "vendor", ".gitkeep"), "")

	npmPath := filepath.Join(t.TempDir(), "npm")
	writeExecutable(t, npmPath, npmScript)

	cfg := config.Default()
	cfg.Registry = reg.server.URL
	cfg.NPMCommand = `"` + npmPath + `"`

	return &Options{Config: cfg, Root: root}
}

// snapshot records every path under dir with its mode and contents.
func snapshot(t *testing.T, dir string) map[string]string {
	t.Helper()

	tree := make(map[string]string)

	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}

		value := info.Mode().String()

		if info.Mode().IsRegular() {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			value += ":" + string(data)
		}

		tree[rel] = value

		return nil
	})
	require.NoError(t, err)

	return tree
}
