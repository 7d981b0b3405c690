package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/data-douser/ghastoolkit-go/internal/repository"
)

func TestIsDotCom(t *testing.T) {
	tests := []struct {
		instance string
		want     bool
	}{
		{"https://github.com", true},
		{"https://GitHub.com/", true},
		{"https://api.github.com", true},
		{"https://github.example.com", false},
		{"http://localhost:8080", false},
		{"://bad", false},
	}

	for _, tt := range tests {
		t.Run(tt.instance, func(t *testing.T) {
			if got := isDotCom(tt.instance); got != tt.want {
				t.Errorf("isDotCom(%q) = %v, want %v", tt.instance, got, tt.want)
			}
		})
	}
}

func TestNew_BaseURL(t *testing.T) {
	tests := []struct {
		name     string
		instance string
		want     string
	}{
		{"default", "", "https://api.github.com/"},
		{"dotcom", "https://github.com", "https://api.github.com/"},
		{"enterprise", "https://github.example.com", "https://github.example.com/api/v3/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(context.Background(), Config{Instance: tt.instance, Token: "tok"})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if got := c.BaseURL(); got != tt.want {
				t.Errorf("BaseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDatabasePath(t *testing.T) {
	got := databasePath(repository.MustParse("octo/my app"), "c#")
	want := "repos/octo/my%20app/code-scanning/codeql/databases/c%23"
	if got != want {
		t.Errorf("databasePath() = %q, want %q", got, want)
	}
}

// recorder keeps the headers of the requests a test server received.
type recorder struct {
	mu      sync.Mutex
	headers []http.Header
}

func (r *recorder) add(req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.headers = append(r.headers, req.Header.Clone())
}

func (r *recorder) all() []http.Header {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]http.Header(nil), r.headers...)
}

// newTestServer fakes the code scanning database endpoints of a GitHub
// Enterprise Server instance.
func newTestServer(t *testing.T) (*httptest.Server, *recorder) {
	t.Helper()
	requests := &recorder{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v3/repos/octo/app/code-scanning/codeql/databases", func(w http.ResponseWriter, r *http.Request) {
		requests.add(r)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"id": 1, "language": "go", "size": 1024, "url": "https://ghes/api/v3/repos/octo/app/code-scanning/codeql/databases/go"},
			{"id": 2, "language": "python", "size": 2048}
		]`)
	})
	mux.HandleFunc("GET /api/v3/repos/octo/app/code-scanning/codeql/databases/{language}", func(w http.ResponseWriter, r *http.Request) {
		requests.add(r)
		if r.PathValue("language") != "go" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message": "Not Found"}`)
			return
		}
		w.Header().Set("Content-Type", "application/zip")
		fmt.Fprint(w, "PK-zip-bytes")
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, requests
}

func TestClient_ListDatabases(t *testing.T) {
	ts, requests := newTestServer(t)

	c, err := New(context.Background(), Config{Instance: ts.URL, Token: "secret"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	remotes, err := c.ListDatabases(context.Background(), repository.MustParse("octo/app"))
	if err != nil {
		t.Fatalf("ListDatabases() error = %v", err)
	}
	if len(remotes) != 2 {
		t.Fatalf("len(ListDatabases()) = %d, want 2", len(remotes))
	}

	if remotes[0].Language != "go" || remotes[0].Size != 1024 || !strings.HasSuffix(remotes[0].Route, "/databases/go") {
		t.Errorf("remotes[0] = %+v", remotes[0])
	}
	// Without a url in the response the route falls back to the API path.
	if remotes[1].Route != "repos/octo/app/code-scanning/codeql/databases/python" {
		t.Errorf("remotes[1].Route = %q", remotes[1].Route)
	}

	got := requests.all()
	if len(got) != 1 {
		t.Fatalf("requests = %d, want 1", len(got))
	}
	if auth := got[0].Get("Authorization"); auth != "Bearer secret" {
		t.Errorf("Authorization = %q, want %q", auth, "Bearer secret")
	}
}

func TestClient_FetchDatabase(t *testing.T) {
	ts, requests := newTestServer(t)

	c, err := New(context.Background(), Config{Instance: ts.URL, HTTPClient: ts.Client()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	repo := repository.MustParse("octo/app")

	rc, err := c.FetchDatabase(context.Background(), repo, "go")
	if err != nil {
		t.Fatalf("FetchDatabase() error = %v", err)
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close() //nolint:errcheck // Test cleanup
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(data) != "PK-zip-bytes" {
		t.Errorf("body = %q, want %q", data, "PK-zip-bytes")
	}
	got := requests.all()
	if accept := got[0].Get("Accept"); accept != "application/zip" {
		t.Errorf("Accept = %q, want %q", accept, "application/zip")
	}
	if auth := got[0].Get("Authorization"); auth != "" {
		t.Errorf("Authorization = %q, want none for an injected client", auth)
	}

	if _, err := c.FetchDatabase(context.Background(), repo, "ruby"); err == nil {
		t.Error("FetchDatabase(ruby) error = nil, want 404 error")
	} else if !strings.Contains(err.Error(), "ruby") {
		t.Errorf("FetchDatabase(ruby) error = %v, want language in message", err)
	}
}

func TestClient_CancelledContext(t *testing.T) {
	ts, requests := newTestServer(t)

	c, err := New(context.Background(), Config{Instance: ts.URL, RequestsPerSecond: 0.001, Burst: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	repo := repository.MustParse("octo/app")

	if _, err := c.ListDatabases(context.Background(), repo); err != nil {
		t.Fatalf("ListDatabases() error = %v", err)
	}

	// The burst is spent and the context is already done.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.FetchDatabase(ctx, repo, "go"); err == nil {
		t.Error("FetchDatabase() with cancelled context error = nil, want error")
	}
	if n := len(requests.all()); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
}
