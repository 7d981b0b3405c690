// Package storage defines the object store used to mirror CodeQL database
// archives and publish analysis results.
package storage

import (
	"context"
	"io"
	"time"
)

// Backend represents a storage backend for database archives and results.
// Object names are slash-separated and relative to the backend's root.
type Backend interface {
	// Type returns the storage backend type identifier (e.g., "local", "gcs").
	Type() string

	// List returns the objects whose names start with prefix.
	List(ctx context.Context, prefix string) ([]Object, error)

	// GetFile retrieves an object by name and returns a ReadCloser.
	// The caller is responsible for closing the returned reader.
	// Returns the object size and content type along with the reader.
	GetFile(ctx context.Context, name string) (io.ReadCloser, int64, string, error)

	// FileExists checks if an object exists in the storage backend.
	FileExists(ctx context.Context, name string) (bool, error)

	// PutFile stores the content of r under name, replacing any existing object.
	PutFile(ctx context.Context, name string, r io.Reader, contentType string) error

	// Close releases any resources held by the storage backend.
	Close() error
}

// Object describes a stored object.
type Object struct {
	Name        string
	Size        int64
	ContentType string
	Updated     time.Time
}

// ErrNotFound is returned when a requested object does not exist.
type ErrNotFound struct {
	Path string
}

func (e *ErrNotFound) Error() string {
	return "file not found: " + e.Path
}

// ErrAccessDenied is returned when a name resolves outside the backend's root.
type ErrAccessDenied struct {
	Path string
}

func (e *ErrAccessDenied) Error() string {
	return "access denied: path outside base directory: " + e.Path
}
