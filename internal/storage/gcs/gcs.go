// Package gcs provides a Google Cloud Storage backend for database archives
// and analysis results.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	toolkitStorage "github.com/data-douser/ghastoolkit-go/internal/storage"
)

// Backend implements storage.Backend for Google Cloud Storage.
type Backend struct {
	client *storage.Client
	bucket string
	prefix string
}

// Config holds configuration for the GCS storage backend.
type Config struct {
	// Bucket is the GCS bucket name (required).
	Bucket string

	// Prefix is an optional path prefix within the bucket.
	Prefix string

	// CredentialsFile is the path to a service account JSON key file.
	// If empty, uses Application Default Credentials (ADC).
	CredentialsFile string

	// Client is an optional pre-configured GCS client for testing.
	// If provided, CredentialsFile is ignored.
	Client *storage.Client
}

// New creates a new GCS storage backend.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs storage: bucket name is required")
	}

	client := cfg.Client
	if client == nil {
		var opts []option.ClientOption
		if cfg.CredentialsFile != "" {
			credsData, err := os.ReadFile(cfg.CredentialsFile)
			if err != nil {
				return nil, fmt.Errorf("gcs storage: failed to read credentials file: %w", err)
			}
			//nolint:staticcheck // SA1019: option.WithCredentialsJSON is deprecated, but still needed for service account support
			opts = append(opts, option.WithCredentialsJSON(credsData))
		}

		var err error
		client, err = storage.NewClient(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("gcs storage: failed to create client: %w", err)
		}
	}

	prefix := cfg.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return &Backend{
		client: client,
		bucket: cfg.Bucket,
		prefix: prefix,
	}, nil
}

// Type returns the storage backend type identifier.
func (b *Backend) Type() string {
	return "gcs"
}

// objectPath returns the full object path including prefix.
func (b *Backend) objectPath(name string) string {
	return b.prefix + strings.TrimPrefix(name, "/")
}

// List returns the objects below the backend prefix whose names start with prefix.
func (b *Backend) List(ctx context.Context, prefix string) ([]toolkitStorage.Object, error) {
	var objects []toolkitStorage.Object

	it := b.client.Bucket(b.bucket).Objects(ctx, &storage.Query{Prefix: b.objectPath(prefix)})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}

		objects = append(objects, toolkitStorage.Object{
			Name:        strings.TrimPrefix(attrs.Name, b.prefix),
			Size:        attrs.Size,
			ContentType: attrs.ContentType,
			Updated:     attrs.Updated,
		})
	}

	return objects, nil
}

// GetFile retrieves an object from GCS.
func (b *Backend) GetFile(ctx context.Context, name string) (io.ReadCloser, int64, string, error) {
	objectName := b.objectPath(name)
	obj := b.client.Bucket(b.bucket).Object(objectName)

	attrs, err := obj.Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, 0, "", &toolkitStorage.ErrNotFound{Path: objectName}
		}
		return nil, 0, "", fmt.Errorf("failed to get object attributes: %w", err)
	}

	reader, err := obj.NewReader(ctx)
	if err != nil {
		return nil, 0, "", fmt.Errorf("failed to create reader: %w", err)
	}

	contentType := attrs.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return reader, attrs.Size, contentType, nil
}

// FileExists checks if an object exists in GCS.
func (b *Backend) FileExists(ctx context.Context, name string) (bool, error) {
	obj := b.client.Bucket(b.bucket).Object(b.objectPath(name))

	_, err := obj.Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PutFile uploads r to the object name.
func (b *Backend) PutFile(ctx context.Context, name string, r io.Reader, contentType string) error {
	objectName := b.objectPath(name)
	w := b.client.Bucket(b.bucket).Object(objectName).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close() //nolint:errcheck // Already failing
		return fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", objectName, err)
	}
	return nil
}

// Close releases any resources held by the backend.
func (b *Backend) Close() error {
	return b.client.Close()
}
