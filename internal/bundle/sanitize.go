package bundle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
)

// DefaultAllowedDependencies keeps the vendored CLI minimal: the Python builder
// and the runtime surface the CLI itself needs.
var DefaultAllowedDependencies = []string{ //nolint:gochecknoglobals // Read-only default list.
	"@vercel/build-utils",
	"@vercel/detect-agent",
	"@vercel/python",
}

// monorepoKeys are workspace-only fields that are irrelevant once vendored.
var monorepoKeys = []string{"devDependencies", "packageManager", "pnpm", "workspaces"} //nolint:gochecknoglobals // Read-only.

// SanitizeResult reports what Sanitize changed.
type SanitizeResult struct {
	// Removed lists dropped top-level keys.
	Removed []string
	// Dependencies lists the dependencies that survived filtering, sorted.
	Dependencies []string
}

// Sanitize drops development and monorepo fields from package.json data and,
// when allowed is not empty, keeps only the allowed runtime dependencies.
// The input map is not modified.
func Sanitize(data map[string]any, allowed []string) (map[string]any, SanitizeResult) {
	out := maps.Clone(data)

	var result SanitizeResult

	for _, key := range monorepoKeys {
		if _, ok := out[key]; ok {
			delete(out, key)
			result.Removed = append(result.Removed, key)
		}
	}

	deps, _ := out["dependencies"].(map[string]any)
	filtered := make(map[string]any, len(deps))

	for name, constraint := range deps {
		if len(allowed) > 0 && !slices.Contains(allowed, name) {
			continue
		}

		filtered[name] = constraint
	}

	if deps != nil || len(allowed) > 0 {
		out["dependencies"] = filtered
	}

	result.Dependencies = slices.Sorted(maps.Keys(filtered))

	return out, result
}

// SanitizeFile rewrites the package.json at path with Sanitize applied.
// Keys are written sorted with a two-space indent and a trailing newline.
func SanitizeFile(path string, allowed []string) (SanitizeResult, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return SanitizeResult{}, fmt.Errorf("read manifest: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(contents))
	decoder.UseNumber()

	var data map[string]any
	if err = decoder.Decode(&data); err != nil {
		return SanitizeResult{}, fmt.Errorf("decode manifest: %w", err)
	}

	sanitized, result := Sanitize(data, allowed)

	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")

	if err = encoder.Encode(sanitized); err != nil {
		return SanitizeResult{}, fmt.Errorf("encode manifest: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return SanitizeResult{}, err
	}

	if err = os.WriteFile(path, buf.Bytes(), info.Mode().Perm()); err != nil {
		return SanitizeResult{}, fmt.Errorf("write manifest: %w", err)
	}

	return result, nil
}
