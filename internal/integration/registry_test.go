//go:build !windows

package integration

import (
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/vercel-cli/internal/archive"
	"github.com/oshokin/vercel-cli/internal/config"
)

// fakeNode stands in for Node.js: it runs the entry script with /bin/sh.
const fakeNode = `#!/bin/sh
script="$1"
shift
exec /bin/sh "$script" "$@"
`

const fakeNPM = `#!/bin/sh
mkdir -p node_modules/@vercel/python
echo "module.exports = {}" > node_modules/@vercel/python/index.js
`

// registry is a minimal npm registry for the "vercel" package.
type registry struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	latest   string
	tarballs map[string][]byte
	broken   map[string]bool
}

func newRegistry(t *testing.T) *registry {
	t.Helper()

	reg := &registry{
		t:        t,
		tarballs: make(map[string][]byte),
		broken:   make(map[string]bool),
	}

	reg.server = httptest.NewServer(http.HandlerFunc(reg.serve))
	t.Cleanup(reg.server.Close)

	return reg
}

// publish releases version whose entry script prints its version and arguments.
func (reg *registry) publish(version string) {
	reg.t.Helper()

	src := reg.t.TempDir()

	manifest, err := json.Marshal(map[string]any{
		"name":            "vercel",
		"version":         version,
		"dependencies":    map[string]any{"@vercel/python": "5.0.0"},
		"devDependencies": map[string]any{"typescript": "5.0.0"},
	})
	require.NoError(reg.t, err)

	writeFile(reg.t, filepath.Join(src, "package.json"), string(manifest), 0o644)
	writeFile(reg.t, filepath.Join(src, "dist", "vc.js"), fmt.Sprintf("echo \"vercel %s $*\"\n", version), 0o644)

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

// corrupt makes the advertised integrity of version wrong.
func (reg *registry) corrupt(version string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.broken[version] = true
}

func (reg *registry) serve(w http.ResponseWriter, r *http.Request) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if name, ok := strings.CutPrefix(r.URL.Path, "/tarballs/"); ok {
		contents, found := reg.tarballs[strings.TrimSuffix(name, ".tgz")]
		if !found {
			http.NotFound(w, r)
			return
		}

		_, _ = w.Write(contents)

		return
	}

	version := strings.TrimPrefix(r.URL.Path, "/vercel/")
	if version == "latest" {
		version = reg.latest
	}

	contents, found := reg.tarballs[version]
	if !found {
		http.NotFound(w, r)
		return
	}

	sum := sha512.Sum512(contents)
	if reg.broken[version] {
		sum[0] ^= 0xff
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"name":    "vercel",
		"version": version,
		"dist": map[string]string{
			"integrity": "sha512-" + base64.StdEncoding.EncodeToString(sum[:]),
			"tarball":   fmt.Sprintf("%s/tarballs/%s.tgz", reg.server.URL, version),
		},
	})
}

func writeFile(t *testing.T, path, contents string, mode os.FileMode) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), mode))
}

// newInstall creates an install root with the fake runtime, an empty vendor
// directory and a configuration pointing at reg.
func newInstall(t *testing.T, reg *registry) (string, *config.Config) {
	t.Helper()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "vendor", ".gitkeep"), "", 0o644)
	writeFile(t, filepath.Join(root, "runtime", "bin", "node"), fakeNode, 0o755)

	npmPath := filepath.Join(t.TempDir(), "npm")
	writeFile(t, npmPath, fakeNPM, 0o755)

	cfg := config.Default()
	cfg.Registry = reg.server.URL
	cfg.NPMCommand = `"` + npmPath + `"`

	return root, cfg
}
