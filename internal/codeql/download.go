package codeql

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/data-douser/ghastoolkit-go/internal/repository"
)

// DownloadArchiveName is the file a downloaded database archive is written to.
const DownloadArchiveName = "codeql-database.zip"

// RemoteDatabase is a prebuilt database offered by a DatabaseSource.
type RemoteDatabase struct {
	// Language is the database language as reported by the source.
	Language string

	// Route locates the archive within the source, e.g. an API URL or an
	// object name.
	Route string

	// Size is the archive size in bytes, or 0 when unknown.
	Size int64
}

// DatabaseSource lists and streams prebuilt database archives.
type DatabaseSource interface {
	ListDatabases(ctx context.Context, repo repository.Repository) ([]RemoteDatabase, error)
	FetchDatabase(ctx context.Context, repo repository.Repository, language string) (io.ReadCloser, error)
}

// DownloaderConfig configures a Downloader.
type DownloaderConfig struct {
	// Source provides the archives (required).
	Source DatabaseSource

	// Root is where databases are stored. Defaults to DatabasesRoot.
	Root string

	// KeepArchive keeps codeql-database.zip after extraction.
	KeepArchive bool

	Env    Environment
	Logger *slog.Logger
}

// Downloader fetches prebuilt databases into
// <root>/<owner>/<repo>/<language>.
type Downloader struct {
	source      DatabaseSource
	root        string
	keepArchive bool
	logger      *slog.Logger
}

// NewDownloader creates a Downloader.
func NewDownloader(cfg DownloaderConfig) (*Downloader, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("downloader: source is required")
	}
	root := cfg.Root
	if root == "" {
		root = DatabasesRoot(cfg.Env)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{
		source:      cfg.Source,
		root:        root,
		keepArchive: cfg.KeepArchive,
		logger:      logger,
	}, nil
}

// List returns the databases the source has for repo.
func (d *Downloader) List(ctx context.Context, repo repository.Repository) ([]RemoteDatabase, error) {
	return d.source.ListDatabases(ctx, repo)
}

// Download fetches every database the source has for repo.
func (d *Downloader) Download(ctx context.Context, repo repository.Repository) ([]*Database, error) {
	remotes, err := d.source.ListDatabases(ctx, repo)
	if err != nil {
		return nil, err
	}

	var dbs []*Database
	for _, remote := range remotes {
		db, err := d.DownloadLanguage(ctx, repo, remote.Language)
		if err != nil {
			return dbs, err
		}
		dbs = append(dbs, db)
	}
	return dbs, nil
}

// DownloadLanguage fetches the database for one language, extracts it and
// loads it.
func (d *Downloader) DownloadLanguage(ctx context.Context, repo repository.Repository, language string) (*Database, error) {
	lang := CanonicalizeLanguage(language)
	if lang.IsNone() {
		return nil, &DatabaseError{Msg: "No language provided"}
	}

	dir := filepath.Join(d.root, repo.Owner, repo.Name, lang.ID())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &IOError{Op: "mkdir", Path: dir, Err: err}
	}

	d.logger.Info("downloading database", "repository", repo.FullName(), "language", lang.ID(), "path", dir)

	rc, err := d.source.FetchDatabase(ctx, repo, language)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rc.Close() //nolint:errcheck // Best effort close in defer
	}()

	archive := filepath.Join(dir, DownloadArchiveName)
	if err := writeFile(archive, rc); err != nil {
		return nil, err
	}
	if err := ExtractArchive(archive, dir); err != nil {
		return nil, err
	}
	if !d.keepArchive {
		if err := os.Remove(archive); err != nil {
			d.logger.Warn("failed to remove archive", "path", archive, "error", err)
		}
	}

	db, err := LoadDatabase(dir)
	if err != nil {
		return nil, err
	}
	r := repo
	db.SetRepository(&r)

	d.logger.Info("downloaded database", "repository", repo.FullName(), "language", lang.ID(), "version", db.Version())
	return db, nil
}

func writeFile(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return &IOError{Op: "create", Path: path, Err: err}
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close() //nolint:errcheck // Already failing
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &IOError{Op: "close", Path: path, Err: err}
	}
	return nil
}
