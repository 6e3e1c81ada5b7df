package updater

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// GitHubOutputEnv names the file GitHub Actions reads step outputs from.
const GitHubOutputEnv = "GITHUB_OUTPUT"

const outputFileMode os.FileMode = 0o644

// Output is one step output.
type Output struct {
	Key   string
	Value string
}

// WriteGitHubOutputs appends key=value lines to the file named by GITHUB_OUTPUT.
// It does nothing when the variable is unset.
func WriteGitHubOutputs(outputs ...Output) error {
	path := os.Getenv(GitHubOutputEnv)
	if path == "" || len(outputs) == 0 {
		return nil
	}

	var b strings.Builder

	for _, output := range outputs {
		b.WriteString(output.Key)
		b.WriteByte('=')
		b.WriteString(output.Value)
		b.WriteByte('\n')
	}

	f, err := os.OpenFile(filepath.Clean(path), os.O_APPEND|os.O_CREATE|os.O_WRONLY, outputFileMode)
	if err != nil {
		return err
	}

	if _, err = f.WriteString(b.String()); err != nil {
		_ = f.Close()
		return fmt.Errorf("append outputs: %w", err)
	}

	return f.Close()
}

// writeResultOutputs records whether the vendor tree changed (updated) and
// whether a newer release exists (update_available). new_version is the
// vendored version after an update, or the available release otherwise.
func writeResultOutputs(result *Result) error {
	outputs := []Output{
		{Key: "updated", Value: strconv.FormatBool(result.Updated)},
		{Key: "update_available", Value: strconv.FormatBool(result.UpdateAvailable)},
	}

	switch {
	case result.Updated:
		outputs = append(outputs, Output{Key: "new_version", Value: result.Current})
	case result.UpdateAvailable:
		outputs = append(outputs, Output{Key: "new_version", Value: result.Latest})
	}

	return WriteGitHubOutputs(outputs...)
}
