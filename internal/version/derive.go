package version

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrVersionNotFound is returned when a manifest carries no version field.
var ErrVersionNotFound = errors.New("version field not found in manifest")

// manifest holds the only package.json field the version is derived from.
type manifest struct {
	Version string `json:"version"`
}

// FromManifest extracts the top-level version of package.json contents, so the
// distributed version never drifts from the vendored one. Nested "version"
// keys, such as a scripts.version lifecycle hook, are ignored.
func FromManifest(data []byte) (string, error) {
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return "", fmt.Errorf("decode manifest: %w", err)
	}

	if m.Version == "" {
		return "", ErrVersionNotFound
	}

	return m.Version, nil
}

// FromManifestFile reads path and extracts its version with FromManifest.
func FromManifestFile(path string) (string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("read manifest: %w", err)
	}

	v, err := FromManifest(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}

	return v, nil
}
