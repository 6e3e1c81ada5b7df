package nodedist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/opencontainers/go-digest"
)

var (
	errUnsupportedPlatform = errors.New("no Node.js distribution for platform")
	errMalformedChecksums  = errors.New("malformed checksum line")
)

// platforms maps GOOS/GOARCH to Node.js distribution platform names.
//
//nolint:gochecknoglobals // Read-only lookup table.
var platforms = map[string]string{
	"linux/amd64":   "linux-x64",
	"linux/arm64":   "linux-arm64",
	"darwin/amd64":  "darwin-x64",
	"darwin/arm64":  "darwin-arm64",
	"windows/amd64": "win-x64",
	"windows/arm64": "win-arm64",
}

// Platform returns the Node.js platform name for goos/goarch.
func Platform(goos, goarch string) (string, error) {
	platform, ok := platforms[goos+"/"+goarch]
	if !ok {
		return "", fmt.Errorf("%w: %s/%s", errUnsupportedPlatform, goos, goarch)
	}

	return platform, nil
}

// ArchiveName returns the distribution archive filename. Windows builds ship as zip.
func ArchiveName(version, platform, goos string) string {
	ext := ".tar.gz"
	if goos == "windows" {
		ext = ".zip"
	}

	return fmt.Sprintf("node-v%s-%s%s", version, platform, ext)
}

// ParseChecksums reads a SHASUMS256.txt document into filename -> digest.
func ParseChecksums(r io.Reader) (map[string]digest.Digest, error) {
	sums := make(map[string]digest.Digest)
	scanner := bufio.NewScanner(r)

	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: %w", line, errMalformedChecksums)
		}

		d := digest.NewDigestFromEncoded(digest.SHA256, strings.ToLower(fields[0]))
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		// Binary-mode entries are prefixed with '*'.
		sums[strings.TrimPrefix(fields[1], "*")] = d
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return sums, nil
}
