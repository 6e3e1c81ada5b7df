// Package integrity verifies downloaded artifacts against registry-published digests.
//
// npm publishes a Subresource Integrity string (dist.integrity, e.g.
// "sha512-<base64>") and a legacy hex SHA-1 (dist.shasum). The integrity
// string wins when present. Node.js publishes hex SHA-256 sums.
package integrity

import (
	"crypto/sha1" //nolint:gosec // npm still publishes SHA-1 shasums for old packages.
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"
)

var (
	// ErrInvalidIntegrity is returned for a malformed SRI string.
	ErrInvalidIntegrity = errors.New("invalid integrity")
	// ErrUnsupportedAlgorithm is returned when no SRI entry uses a supported hash.
	ErrUnsupportedAlgorithm = errors.New("unsupported integrity algorithm")
	// ErrNoDigest is returned when the registry published nothing to verify against.
	ErrNoDigest = errors.New("no integrity or shasum published")
	// ErrMismatch is the sentinel matched by every *MismatchError.
	ErrMismatch = errors.New("digest mismatch")
)

// sriAlgorithms maps SRI prefixes to digest algorithms, strongest first.
var sriAlgorithms = []struct { //nolint:gochecknoglobals // Read-only lookup table.
	prefix    string
	algorithm digest.Algorithm
}{
	{"sha512", digest.SHA512},
	{"sha384", digest.SHA384},
	{"sha256", digest.SHA256},
}

// Expected holds the digests a registry published for an artifact.
type Expected struct {
	// Integrity is an SRI string such as "sha512-<base64>".
	Integrity string
	// Shasum is a hex-encoded SHA-1.
	Shasum string
}

// MismatchError reports an artifact whose digest differs from the published one.
type MismatchError struct {
	// Path is the verified file.
	Path string
	// Expected is the published digest.
	Expected string
	// Actual is the locally computed digest.
	Actual string
}

// Error returns both digests so a maintainer can diagnose the failure.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: digest mismatch: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// Is reports whether target is ErrMismatch.
func (e *MismatchError) Is(target error) bool {
	return target == ErrMismatch
}

// ParseSRI converts an SRI string into a digest. When several hashes are
// listed, the strongest supported one is used.
func ParseSRI(integrity string) (digest.Digest, error) {
	entries := strings.Fields(integrity)
	if len(entries) == 0 {
		return "", fmt.Errorf("%w: empty", ErrInvalidIntegrity)
	}

	parsed := make(map[string]digest.Digest, len(entries))

	for _, entry := range entries {
		prefix, encoded, ok := strings.Cut(entry, "-")
		if !ok || encoded == "" {
			return "", fmt.Errorf("%w: %q", ErrInvalidIntegrity, entry)
		}

		// Options such as "?foo" may follow the hash.
		encoded, _, _ = strings.Cut(encoded, "?")

		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return "", fmt.Errorf("%w: %q: %w", ErrInvalidIntegrity, entry, err)
		}

		parsed[strings.ToLower(prefix)] = digest.NewDigestFromBytes(algorithmFor(prefix), raw)
	}

	for _, candidate := range sriAlgorithms {
		d, ok := parsed[candidate.prefix]
		if !ok {
			continue
		}

		if err := d.Validate(); err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidIntegrity, err)
		}

		return d, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, integrity)
}

// VerifyFile checks path against the published digests. The SRI integrity is
// preferred; the SHA-1 shasum is the fallback. Publishing neither is an error.
// An SRI string listing only sha1 is checked like a shasum.
func VerifyFile(path string, expected Expected) error {
	if expected.Integrity != "" {
		d, err := ParseSRI(expected.Integrity)
		if errors.Is(err, ErrUnsupportedAlgorithm) {
			if shasum, ok := sha1FromSRI(expected.Integrity); ok {
				return verifyShasum(path, shasum)
			}
		}

		if err != nil {
			return err
		}

		return VerifyDigest(path, d)
	}

	if expected.Shasum != "" {
		return verifyShasum(path, expected.Shasum)
	}

	return fmt.Errorf("%s: %w", path, ErrNoDigest)
}

// VerifyDigest checks path against an expected digest.
func VerifyDigest(path string, expected digest.Digest) error {
	if err := expected.Validate(); err != nil {
		return err
	}

	algorithm := expected.Algorithm()
	if !algorithm.Available() {
		return fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, algorithm)
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}

	defer func() {
		_ = f.Close()
	}()

	actual, err := algorithm.FromReader(f)
	if err != nil {
		return fmt.Errorf("digest %s: %w", path, err)
	}

	if actual != expected {
		return &MismatchError{Path: path, Expected: expected.String(), Actual: actual.String()}
	}

	return nil
}

// verifyShasum compares the hex SHA-1 of path with shasum.
// go-digest does not register SHA-1, so crypto/sha1 is used directly.
func verifyShasum(path, shasum string) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}

	defer func() {
		_ = f.Close()
	}()

	hasher := sha1.New() //nolint:gosec // Matches the registry's published algorithm.
	if _, err = io.Copy(hasher, f); err != nil {
		return fmt.Errorf("digest %s: %w", path, err)
	}

	actual := hex.EncodeToString(hasher.Sum(nil))
	if !strings.EqualFold(actual, strings.TrimSpace(shasum)) {
		return &MismatchError{Path: path, Expected: "sha1:" + shasum, Actual: "sha1:" + actual}
	}

	return nil
}

// sha1FromSRI returns the hex SHA-1 of the first well-formed sha1 entry.
func sha1FromSRI(integrity string) (string, bool) {
	for _, entry := range strings.Fields(integrity) {
		prefix, encoded, ok := strings.Cut(entry, "-")
		if !ok || !strings.EqualFold(prefix, "sha1") {
			continue
		}

		encoded, _, _ = strings.Cut(encoded, "?")

		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil || len(raw) != sha1.Size {
			continue
		}

		return hex.EncodeToString(raw), true
	}

	return "", false
}

func algorithmFor(prefix string) digest.Algorithm {
	for _, candidate := range sriAlgorithms {
		if strings.EqualFold(candidate.prefix, prefix) {
			return candidate.algorithm
		}
	}

	return digest.Algorithm(strings.ToLower(prefix))
}
