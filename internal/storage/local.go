package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// LocalBackend stores artifacts as files under a root directory.
type LocalBackend struct {
	root string
}

// NewLocalBackend creates the root directory if needed and returns a
// filesystem-backed storage backend.
func NewLocalBackend(root string) (*LocalBackend, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, NewError(IOFailure, "init", fmt.Errorf("create root dir: %w", err))
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, NewError(IOFailure, "init", err)
	}
	return &LocalBackend{root: abs}, nil
}

// Root returns the backend's root directory.
func (b *LocalBackend) Root() string {
	return b.root
}

func (b *LocalBackend) Store(ctx context.Context, r io.Reader, size int64, name string) (Artifact, error) {
	path := filepath.Join(b.root, sanitizeFilename(name))

	f, err := os.Create(path)
	if err != nil {
		return Artifact{}, NewError(IOFailure, "store", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return Artifact{}, NewError(IOFailure, "store", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return Artifact{}, NewError(IOFailure, "store", err)
	}

	return Artifact{Handle: path, Remote: false}, nil
}

// Delete unlinks the file behind the handle. A missing file is a no-op.
func (b *LocalBackend) Delete(ctx context.Context, handle string) error {
	if handle == "" {
		return nil
	}
	if err := os.Remove(handle); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to delete local artifact %s: %v", handle, err)
		return NewError(IOFailure, "delete", err)
	}
	return nil
}

// sanitizeFilename keeps the stored name to a single safe path element.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "unnamed"
	}
	return name
}
