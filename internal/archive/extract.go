package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

// NPMPackagePrefix leads every member of an npm package tarball.
const NPMPackagePrefix = "package/"

const (
	defaultDirMode  fs.FileMode = 0o755
	defaultFileMode fs.FileMode = 0o644
)

var errLinkEscapes = errors.New("link target leaves the destination")

// Options control which members are extracted and how their names are mapped.
type Options struct {
	// Prefix must lead a member name for it to be kept; it is stripped.
	Prefix string
	// StripComponents drops this many leading path components after Prefix.
	StripComponents int
	// KeepSymlinks extracts symbolic links that resolve inside the destination.
	KeepSymlinks bool
}

// Stats summarize an extraction.
type Stats struct {
	// Files is the number of regular files written.
	Files int
	// Dirs is the number of directories created.
	Dirs int
	// Links is the number of symbolic links created.
	Links int
	// Skipped is the number of members ignored by the safety rules.
	Skipped int
}

// MemberPath maps an archive member name to a path relative to the destination.
// It returns false when the member must be skipped.
func (o Options) MemberPath(name string) (string, bool) {
	if o.Prefix != "" {
		if !strings.HasPrefix(name, o.Prefix) {
			return "", false
		}

		name = strings.TrimPrefix(name, o.Prefix)
	}

	if name == "" || name == "." || path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return "", false
	}

	parts := strings.Split(strings.TrimSuffix(name, "/"), "/")
	for _, part := range parts {
		if strings.TrimSpace(part) != part {
			return "", false
		}

		if part == "." || part == ".." || part == "" {
			return "", false
		}
	}

	if o.StripComponents >= len(parts) {
		return "", false
	}

	return path.Join(parts[o.StripComponents:]...), true
}

// ExtractTarGz extracts a gzip-compressed tarball into dest.
func ExtractTarGz(src, dest string, opts Options) (Stats, error) {
	f, err := os.Open(filepath.Clean(src))
	if err != nil {
		return Stats{}, err
	}

	defer func() {
		_ = f.Close()
	}()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return Stats{}, fmt.Errorf("open gzip stream %s: %w", src, err)
	}

	defer func() {
		_ = gz.Close()
	}()

	if err = os.MkdirAll(dest, defaultDirMode); err != nil {
		return Stats{}, err
	}

	var stats Stats

	reader := tar.NewReader(gz)

	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}

		if err != nil {
			return stats, fmt.Errorf("read %s: %w", src, err)
		}

		rel, ok := opts.MemberPath(header.Name)
		if !ok {
			stats.Skipped++
			continue
		}

		switch header.Typeflag {
		case tar.TypeDir:
			err = extractDir(dest, rel, &stats)
		case tar.TypeReg:
			err = extractFile(dest, rel, header.FileInfo().Mode(), reader, &stats)
		case tar.TypeSymlink:
			err = extractSymlink(dest, rel, header.Linkname, opts.KeepSymlinks, &stats)
		default:
			// Hard links, devices and FIFOs are never extracted.
			stats.Skipped++
		}

		if err != nil {
			return stats, err
		}
	}
}

// ExtractZip extracts a zip archive into dest.
func ExtractZip(src, dest string, opts Options) (Stats, error) {
	reader, err := zip.OpenReader(filepath.Clean(src))
	if err != nil {
		return Stats{}, fmt.Errorf("open zip %s: %w", src, err)
	}

	defer func() {
		_ = reader.Close()
	}()

	if err = os.MkdirAll(dest, defaultDirMode); err != nil {
		return Stats{}, err
	}

	var stats Stats

	for _, member := range reader.File {
		rel, ok := opts.MemberPath(member.Name)
		if !ok {
			stats.Skipped++
			continue
		}

		mode := member.Mode()

		switch {
		case mode.IsDir():
			err = extractDir(dest, rel, &stats)
		case mode.IsRegular():
			err = extractZipFile(dest, rel, member, &stats)
		default:
			stats.Skipped++
		}

		if err != nil {
			return stats, err
		}
	}

	return stats, nil
}

func extractZipFile(dest, rel string, member *zip.File, stats *Stats) error {
	rc, err := member.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", member.Name, err)
	}

	defer func() {
		_ = rc.Close()
	}()

	return extractFile(dest, rel, member.Mode(), rc, stats)
}

func extractDir(dest, rel string, stats *Stats) error {
	target, err := securejoin.SecureJoin(dest, rel)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(target, defaultDirMode); err != nil {
		return err
	}

	stats.Dirs++

	return nil
}

func extractFile(dest, rel string, mode fs.FileMode, r io.Reader, stats *Stats) error {
	target, err := securejoin.SecureJoin(dest, rel)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Dir(target), defaultDirMode); err != nil {
		return err
	}

	perm := mode.Perm()
	if perm == 0 {
		perm = defaultFileMode
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, r); err != nil { //nolint:gosec // Archives come from verified artifacts.
		_ = out.Close()
		return fmt.Errorf("write %s: %w", rel, err)
	}

	if err = out.Close(); err != nil {
		return err
	}

	// Best effort: the umask may have narrowed the mode, and some filesystems refuse chmod.
	_ = os.Chmod(target, perm)

	stats.Files++

	return nil
}

func extractSymlink(dest, rel, linkname string, keep bool, stats *Stats) error {
	if !keep {
		stats.Skipped++
		return nil
	}

	resolved := path.Join(path.Dir(rel), linkname)
	if path.IsAbs(linkname) || !filepath.IsLocal(filepath.FromSlash(resolved)) {
		return fmt.Errorf("%s -> %s: %w", rel, linkname, errLinkEscapes)
	}

	target, err := securejoin.SecureJoin(dest, rel)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Dir(target), defaultDirMode); err != nil {
		return err
	}

	_ = os.Remove(target)

	if err = os.Symlink(linkname, target); err != nil {
		return err
	}

	stats.Links++

	return nil
}
