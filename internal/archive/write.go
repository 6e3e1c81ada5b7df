package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// TarGzWriter streams files and directory trees into a gzip-compressed tarball.
type TarGzWriter struct {
	file *os.File
	gz   *gzip.Writer
	tw   *tar.Writer
}

// CreateTarGz creates dst and returns a writer for it. Close must be called.
func CreateTarGz(dst string) (*TarGzWriter, error) {
	if err := os.MkdirAll(filepath.Dir(dst), defaultDirMode); err != nil {
		return nil, err
	}

	f, err := os.Create(filepath.Clean(dst))
	if err != nil {
		return nil, err
	}

	gz, err := gzip.NewWriterLevel(f, gzip.BestCompression)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &TarGzWriter{file: f, gz: gz, tw: tar.NewWriter(gz)}, nil
}

// AddFile writes the file at src under name.
func (w *TarGzWriter) AddFile(name, src string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}

	return w.add(name, src, info)
}

// AddTree writes the directory tree rooted at src under the name prefix.
// Symbolic links are stored as links.
func (w *TarGzWriter) AddTree(prefix, src string) error {
	return filepath.WalkDir(src, func(current string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(src, current)
		if err != nil {
			return err
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}

		return w.add(path.Join(prefix, filepath.ToSlash(rel)), current, info)
	})
}

// Close flushes the tar and gzip streams and closes the file.
func (w *TarGzWriter) Close() error {
	if err := w.tw.Close(); err != nil {
		_ = w.file.Close()
		return err
	}

	if err := w.gz.Close(); err != nil {
		_ = w.file.Close()
		return err
	}

	return w.file.Close()
}

func (w *TarGzWriter) add(name, src string, info fs.FileInfo) error {
	var link string

	if info.Mode()&fs.ModeSymlink != 0 {
		target, err := os.Readlink(src)
		if err != nil {
			return err
		}

		link = target
	}

	header, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}

	header.Name = name
	if info.IsDir() {
		header.Name += "/"
	}

	// Reproducible ownership.
	header.Uid, header.Gid = 0, 0
	header.Uname, header.Gname = "", ""

	if err = w.tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write header %s: %w", name, err)
	}

	if !info.Mode().IsRegular() {
		return nil
	}

	f, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}

	defer func() {
		_ = f.Close()
	}()

	if _, err = io.Copy(w.tw, f); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}

	return nil
}
