// Package local provides a local filesystem storage backend.
package local

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/data-douser/ghastoolkit-go/internal/storage"
)

// Backend implements storage.Backend for local filesystem storage.
type Backend struct {
	basePath string
}

// Config holds configuration for the local storage backend.
type Config struct {
	// BasePath is the directory objects are stored under.
	BasePath string

	// Create makes BasePath when it does not exist.
	Create bool
}

// New creates a new local filesystem storage backend.
func New(cfg Config) (*Backend, error) {
	if cfg.BasePath == "" {
		return nil, fmt.Errorf("local storage: base path is required")
	}

	base, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("local storage: cannot resolve directory: %w", err)
	}

	if cfg.Create {
		if err := os.MkdirAll(base, 0o755); err != nil {
			return nil, fmt.Errorf("local storage: cannot create directory: %w", err)
		}
	}

	// Verify the base path exists and is a directory
	info, err := os.Stat(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("local storage: directory does not exist: %s", cfg.BasePath)
		}
		return nil, fmt.Errorf("local storage: cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("local storage: not a directory: %s", cfg.BasePath)
	}

	return &Backend{basePath: base}, nil
}

// Type returns the storage backend type identifier.
func (b *Backend) Type() string {
	return "local"
}

// BasePath returns the base path of the local storage backend.
func (b *Backend) BasePath() string {
	return b.basePath
}

// resolve maps an object name to a path inside the base directory.
func (b *Backend) resolve(name string) (string, error) {
	fullPath := filepath.Join(b.basePath, filepath.FromSlash(strings.TrimPrefix(name, "/")))
	if fullPath != b.basePath && !strings.HasPrefix(fullPath, b.basePath+string(filepath.Separator)) {
		return "", &storage.ErrAccessDenied{Path: name}
	}
	return fullPath, nil
}

// List walks the base directory and returns files whose names start with prefix.
func (b *Backend) List(ctx context.Context, prefix string) ([]storage.Object, error) {
	var objects []storage.Object

	err := filepath.WalkDir(b.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(b.basePath, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if !strings.HasPrefix(name, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, storage.Object{
			Name:        name,
			Size:        info.Size(),
			ContentType: contentTypeFor(name),
			Updated:     info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", b.basePath, err)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
	return objects, nil
}

// GetFile retrieves a file by name from the local filesystem.
func (b *Backend) GetFile(ctx context.Context, name string) (io.ReadCloser, int64, string, error) {
	fullPath, err := b.resolve(name)
	if err != nil {
		return nil, 0, "", err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, "", &storage.ErrNotFound{Path: name}
		}
		return nil, 0, "", fmt.Errorf("error accessing file: %w", err)
	}

	if info.IsDir() {
		return nil, 0, "", fmt.Errorf("cannot serve directory: %s", name)
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, 0, "", fmt.Errorf("failed to open file: %w", err)
	}

	return file, info.Size(), contentTypeFor(fullPath), nil
}

// FileExists checks if a file exists in the local filesystem.
func (b *Backend) FileExists(ctx context.Context, name string) (bool, error) {
	fullPath, err := b.resolve(name)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// PutFile writes r to a temporary file next to the target and renames it
// into place.
func (b *Backend) PutFile(ctx context.Context, name string, r io.Reader, contentType string) error {
	fullPath, err := b.resolve(name)
	if err != nil {
		return err
	}
	if fullPath == b.basePath {
		return fmt.Errorf("local storage: object name is required")
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name()) //nolint:errcheck // Gone after a successful rename
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close() //nolint:errcheck // Already failing
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return fmt.Errorf("failed to store %s: %w", name, err)
	}
	return nil
}

// Close releases any resources held by the backend.
func (b *Backend) Close() error {
	return nil
}

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".sarif":
		return "application/sarif+json"
	case ".zip":
		return "application/zip"
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
