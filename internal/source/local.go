package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalFile is a Source backed by a file on the local filesystem.
type LocalFile struct {
	path string
}

// NewLocalFile creates a Source for the given local path.
func NewLocalFile(path string) *LocalFile {
	return &LocalFile{path: path}
}

// Open returns a reader over the file contents.
func (f *LocalFile) Open(ctx context.Context) (io.ReadCloser, error) {
	r, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", f.path, err)
	}
	return r, nil
}

// WriteAll writes to a temp file in the same directory and renames it over
// the original. The original is replaced in one step, never deleted first.
func (f *LocalFile) WriteAll(ctx context.Context, data []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %q: %w", f.path, err)
	}
	return nil
}

func (f *LocalFile) String() string { return f.path }
