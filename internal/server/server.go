// Package server serves a database collection and its archive mirror over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/data-douser/ghastoolkit-go/api"
	"github.com/data-douser/ghastoolkit-go/internal/codeql"
	"github.com/data-douser/ghastoolkit-go/internal/storage"
)

// Config holds the server configuration.
type Config struct {
	// Host is the address to bind the HTTP server to.
	Host string
	// Port is the port number for the HTTP server.
	Port int
	// DatabasesRoot is scanned for local databases. Empty disables the
	// local listing.
	DatabasesRoot string
	// EndpointURL is the base URL used to build archive download links
	// (default: http://<host>:<port>).
	EndpointURL string
	// CacheTTL is how long a discovery result is reused (default: 5 minutes).
	CacheTTL time.Duration
}

// Server serves database listings and archives.
type Server struct {
	config  Config
	logger  *slog.Logger
	mux     *http.ServeMux
	storage storage.Backend
	metrics http.Handler

	mu        sync.RWMutex
	cached    api.MetadataResponse
	cacheTime time.Time
}

// New creates a new Server. store may be nil when no archive mirror is
// configured; metrics may be nil to disable /metrics.
func New(cfg Config, store storage.Backend, metrics http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.EndpointURL == "" {
		cfg.EndpointURL = fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)
	}

	s := &Server{
		config:  cfg,
		logger:  logger,
		mux:     http.NewServeMux(),
		storage: store,
		metrics: metrics,
	}

	s.registerRoutes()
	return s
}

// registerRoutes sets up the HTTP route handlers.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /db/{filepath...}", s.handleServeFile)
	s.mux.HandleFunc("GET /databases", s.handleDatabases)
	s.mux.HandleFunc("GET /index", s.handleIndex)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.loggingMiddleware(s.mux)
}

// ListenAndServe starts the HTTP server and shuts it down when ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info("shutting down server")
		if err := srv.Shutdown(context.Background()); err != nil {
			s.logger.Error("shutdown error", "error", err)
		}
	}()

	s.logger.Info("starting server", "addr", addr, "databases", s.config.DatabasesRoot)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// loggingMiddleware logs all incoming HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Info("incoming request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// InvalidateCache forces the next listing to rescan the databases root.
func (s *Server) InvalidateCache() {
	s.mu.Lock()
	s.cached = nil
	s.cacheTime = time.Time{}
	s.mu.Unlock()
}

// localDatabases returns the discovered local databases, reusing the cached
// result while it is fresh.
func (s *Server) localDatabases() (api.MetadataResponse, error) {
	if s.config.DatabasesRoot == "" {
		return api.MetadataResponse{}, nil
	}

	s.mu.RLock()
	if s.cached != nil && time.Since(s.cacheTime) < s.config.CacheTTL {
		result := make(api.MetadataResponse, len(s.cached))
		copy(result, s.cached)
		s.mu.RUnlock()
		return result, nil
	}
	s.mu.RUnlock()

	discovery, err := codeql.DiscoverDatabases(s.config.DatabasesRoot, s.logger)
	if err != nil {
		return nil, err
	}
	metadata := discovery.Metadata()

	s.mu.Lock()
	s.cached = metadata
	s.cacheTime = time.Now()
	s.mu.Unlock()

	result := make(api.MetadataResponse, len(metadata))
	copy(result, metadata)
	return result, nil
}

// mirroredArchives lists archives stored as <owner>/<repo>/<language>.zip.
func (s *Server) mirroredArchives(ctx context.Context) (api.MetadataResponse, error) {
	if s.storage == nil {
		return api.MetadataResponse{}, nil
	}

	objects, err := s.storage.List(ctx, "")
	if err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(s.config.EndpointURL, "/")
	var out api.MetadataResponse
	for _, obj := range objects {
		parts := strings.Split(obj.Name, "/")
		if len(parts) != 3 || path.Ext(obj.Name) != ".zip" {
			continue
		}
		lang := codeql.CanonicalizeLanguage(strings.TrimSuffix(parts[2], ".zip"))
		out = append(out, api.DatabaseMetadata{
			Name:       parts[1],
			Language:   lang.ID(),
			Archived:   true,
			Owner:      parts[0],
			Repo:       parts[1],
			Projname:   parts[0] + "/" + parts[1],
			CLIVersion: codeql.UnknownVersion,
			Size:       obj.Size,
			ResultURL:  base + "/db/" + obj.Name,
		})
	}
	return out, nil
}

// handleServeFile streams an archive from the storage backend.
func (s *Server) handleServeFile(w http.ResponseWriter, r *http.Request) {
	requestedPath := r.PathValue("filepath")
	if requestedPath == "" {
		http.Error(w, "file path required", http.StatusBadRequest)
		return
	}
	if s.storage == nil {
		http.Error(w, "no archive storage configured", http.StatusNotFound)
		return
	}

	reader, size, contentType, err := s.storage.GetFile(r.Context(), requestedPath)
	if err != nil {
		var notFound *storage.ErrNotFound
		var denied *storage.ErrAccessDenied
		switch {
		case errors.As(err, &notFound):
			http.Error(w, fmt.Sprintf("%s not found", requestedPath), http.StatusNotFound)
		case errors.As(err, &denied):
			http.Error(w, "access denied", http.StatusForbidden)
		default:
			s.logger.Error("error accessing file", "path", requestedPath, "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}
	defer func() {
		if err := reader.Close(); err != nil {
			s.logger.Error("failed to close reader", "error", err)
		}
	}()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))

	if _, err := io.Copy(w, reader); err != nil {
		// Headers are already sent.
		s.logger.Error("error streaming file", "path", requestedPath, "error", err)
	}
}

// handleDatabases returns the local databases as a JSON array.
func (s *Server) handleDatabases(w http.ResponseWriter, r *http.Request) {
	metadata, err := s.localDatabases()
	if err != nil {
		s.logger.Error("error discovering databases", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(metadata); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// handleIndex returns local databases and mirrored archives as JSONL.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	local, err := s.localDatabases()
	if err != nil {
		s.logger.Error("error discovering databases", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	mirrored, err := s.mirroredArchives(r.Context())
	if err != nil {
		s.logger.Error("error listing archives", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	enc := json.NewEncoder(w)
	for _, m := range append(local, mirrored...) {
		if err := enc.Encode(m); err != nil {
			s.logger.Error("failed to write response", "error", err)
			return
		}
	}
}

// handleHealth provides a simple health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := api.HealthStatus{Status: "ok"}
	if s.storage != nil {
		status.StorageType = s.storage.Type()
	}
	if local, err := s.localDatabases(); err == nil {
		status.Databases = len(local)
	} else {
		status.Status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
