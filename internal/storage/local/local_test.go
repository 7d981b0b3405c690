package local

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/data-douser/ghastoolkit-go/internal/storage"
)

func newTestBackend(t *testing.T) (*Backend, string) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "local-storage-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	backend, err := New(Config{BasePath: tempDir})
	if err != nil {
		t.Fatalf("Failed to create backend: %v", err)
	}
	return backend, tempDir
}

func writeTestFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
}

func TestNew(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "local-storage-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	file := filepath.Join(tempDir, "file.txt")
	writeTestFile(t, file, "x")

	tests := []struct {
		name      string
		cfg       Config
		wantErr   bool
		errSubstr string
	}{
		{
			name: "valid config",
			cfg:  Config{BasePath: tempDir},
		},
		{
			name:      "empty base path",
			cfg:       Config{},
			wantErr:   true,
			errSubstr: "base path is required",
		},
		{
			name:      "non-existent directory",
			cfg:       Config{BasePath: filepath.Join(tempDir, "missing")},
			wantErr:   true,
			errSubstr: "does not exist",
		},
		{
			name: "create missing directory",
			cfg:  Config{BasePath: filepath.Join(tempDir, "created", "nested"), Create: true},
		},
		{
			name:      "path is a file not directory",
			cfg:       Config{BasePath: file},
			wantErr:   true,
			errSubstr: "not a directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := New(tt.cfg)

			if tt.wantErr {
				if err == nil {
					t.Error("New() expected error, got nil")
				} else if tt.errSubstr != "" && !strings.Contains(err.Error(), tt.errSubstr) {
					t.Errorf("New() error = %q, want error containing %q", err.Error(), tt.errSubstr)
				}
				return
			}

			if err != nil {
				t.Fatalf("New() unexpected error: %v", err)
			}
			defer backend.Close()

			if backend.Type() != "local" {
				t.Errorf("backend.Type() = %q, want %q", backend.Type(), "local")
			}
		})
	}
}

func TestBackend_BasePath(t *testing.T) {
	backend, tempDir := newTestBackend(t)

	if got := backend.BasePath(); got != tempDir {
		t.Errorf("BasePath() = %q, want %q", got, tempDir)
	}
}

func TestBackend_List(t *testing.T) {
	backend, tempDir := newTestBackend(t)
	ctx := context.Background()

	writeTestFile(t, filepath.Join(tempDir, "octo", "demo", "go.zip"), "zip")
	writeTestFile(t, filepath.Join(tempDir, "octo", "demo", "python.zip"), "zipzip")
	writeTestFile(t, filepath.Join(tempDir, "results", "go-octo-demo.sarif"), "{}")

	t.Run("all objects sorted", func(t *testing.T) {
		objects, err := backend.List(ctx, "")
		if err != nil {
			t.Fatalf("List() error: %v", err)
		}
		want := []string{"octo/demo/go.zip", "octo/demo/python.zip", "results/go-octo-demo.sarif"}
		if len(objects) != len(want) {
			t.Fatalf("List() returned %d objects, want %d", len(objects), len(want))
		}
		for i, obj := range objects {
			if obj.Name != want[i] {
				t.Errorf("objects[%d].Name = %q, want %q", i, obj.Name, want[i])
			}
		}
	})

	t.Run("prefix filter", func(t *testing.T) {
		objects, err := backend.List(ctx, "octo/demo/")
		if err != nil {
			t.Fatalf("List() error: %v", err)
		}
		if len(objects) != 2 {
			t.Fatalf("List() returned %d objects, want 2", len(objects))
		}
		if objects[1].Size != 6 {
			t.Errorf("objects[1].Size = %d, want 6", objects[1].Size)
		}
		if objects[0].ContentType != "application/zip" {
			t.Errorf("objects[0].ContentType = %q, want %q", objects[0].ContentType, "application/zip")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := backend.List(cctx, ""); !errors.Is(err, context.Canceled) {
			t.Errorf("List() error = %v, want context.Canceled", err)
		}
	})
}

func TestBackend_GetFile(t *testing.T) {
	backend, tempDir := newTestBackend(t)
	ctx := context.Background()

	writeTestFile(t, filepath.Join(tempDir, "results", "go.sarif"), `{"runs":[]}`)
	if err := os.MkdirAll(filepath.Join(tempDir, "dir"), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	t.Run("existing file", func(t *testing.T) {
		rc, size, contentType, err := backend.GetFile(ctx, "results/go.sarif")
		if err != nil {
			t.Fatalf("GetFile() error: %v", err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("ReadAll() error: %v", err)
		}
		if string(data) != `{"runs":[]}` {
			t.Errorf("content = %q", data)
		}
		if size != int64(len(data)) {
			t.Errorf("size = %d, want %d", size, len(data))
		}
		if contentType != "application/sarif+json" {
			t.Errorf("contentType = %q, want %q", contentType, "application/sarif+json")
		}
	})

	t.Run("leading slash", func(t *testing.T) {
		rc, _, _, err := backend.GetFile(ctx, "/results/go.sarif")
		if err != nil {
			t.Fatalf("GetFile() error: %v", err)
		}
		rc.Close()
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, _, err := backend.GetFile(ctx, "missing.zip")
		var notFound *storage.ErrNotFound
		if !errors.As(err, &notFound) {
			t.Errorf("GetFile() error = %v, want *storage.ErrNotFound", err)
		}
	})

	t.Run("directory", func(t *testing.T) {
		if _, _, _, err := backend.GetFile(ctx, "dir"); err == nil {
			t.Error("GetFile() on a directory expected error, got nil")
		}
	})

	t.Run("path traversal", func(t *testing.T) {
		_, _, _, err := backend.GetFile(ctx, "../../etc/passwd")
		var denied *storage.ErrAccessDenied
		if !errors.As(err, &denied) {
			t.Errorf("GetFile() error = %v, want *storage.ErrAccessDenied", err)
		}
	})
}

func TestBackend_FileExists(t *testing.T) {
	backend, tempDir := newTestBackend(t)
	ctx := context.Background()

	writeTestFile(t, filepath.Join(tempDir, "octo", "demo", "go.zip"), "zip")

	tests := []struct {
		name    string
		path    string
		want    bool
		wantErr bool
	}{
		{name: "file", path: "octo/demo/go.zip", want: true},
		{name: "directory", path: "octo/demo", want: false},
		{name: "missing", path: "octo/demo/java.zip", want: false},
		{name: "outside base", path: "../outside", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := backend.FileExists(ctx, tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FileExists(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("FileExists(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestBackend_PutFile(t *testing.T) {
	backend, tempDir := newTestBackend(t)
	ctx := context.Background()

	if err := backend.PutFile(ctx, "octo/demo/go.zip", bytes.NewReader([]byte("first")), "application/zip"); err != nil {
		t.Fatalf("PutFile() error: %v", err)
	}
	if err := backend.PutFile(ctx, "octo/demo/go.zip", strings.NewReader("second"), "application/zip"); err != nil {
		t.Fatalf("PutFile() overwrite error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tempDir, "octo", "demo", "go.zip"))
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("stored content = %q, want %q", data, "second")
	}

	entries, err := os.ReadDir(filepath.Join(tempDir, "octo", "demo"))
	if err != nil {
		t.Fatalf("ReadDir() error: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1 (temporary files left behind)", len(entries))
	}

	if err := backend.PutFile(ctx, "", strings.NewReader("x"), ""); err == nil {
		t.Error("PutFile() with empty name expected error, got nil")
	}

	var denied *storage.ErrAccessDenied
	if err := backend.PutFile(ctx, "../escape.zip", strings.NewReader("x"), ""); !errors.As(err, &denied) {
		t.Errorf("PutFile() outside base error = %v, want *storage.ErrAccessDenied", err)
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"results.sarif", "application/sarif+json"},
		{"db.ZIP", "application/zip"},
		{"index.json", "application/json"},
		{"blob", "application/octet-stream"},
	}

	for _, tt := range tests {
		if got := contentTypeFor(tt.name); got != tt.want {
			t.Errorf("contentTypeFor(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
