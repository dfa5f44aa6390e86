package anonymous

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrBlobNotExist is returned by Blob.Read when nothing has been written yet.
var ErrBlobNotExist = errors.New("document does not exist")

// Blob holds the serialized session collection as one opaque value.
// Write must replace the previous value atomically.
type Blob interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// FileBlob stores the document in a single file on local disk.
type FileBlob struct {
	path string
}

// NewFileBlob returns a blob backed by path. The file is created on first write.
func NewFileBlob(path string) *FileBlob {
	return &FileBlob{path: path}
}

// Path returns the file location.
func (f *FileBlob) Path() string {
	return f.path
}

func (f *FileBlob) Read(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrBlobNotExist
		}
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	return data, nil
}

// Write stages data in a temp file next to the target and renames it into
// place, so a failed write leaves the previous document untouched.
func (f *FileBlob) Write(_ context.Context, data []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}
