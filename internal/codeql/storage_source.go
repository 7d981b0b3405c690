package codeql

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/data-douser/ghastoolkit-go/internal/repository"
	"github.com/data-douser/ghastoolkit-go/internal/storage"
)

// StorageSource serves database archives published to a storage backend
// as <owner>/<repo>/<language>.zip.
type StorageSource struct {
	Backend storage.Backend
}

// ArchiveObjectName returns the object name a database archive is stored under.
func ArchiveObjectName(repo repository.Repository, language string) string {
	return path.Join(repo.Owner, repo.Name, CanonicalizeLanguage(language).ID()+".zip")
}

// ListDatabases lists the archives stored for repo.
func (s *StorageSource) ListDatabases(ctx context.Context, repo repository.Repository) ([]RemoteDatabase, error) {
	objects, err := s.Backend.List(ctx, path.Join(repo.Owner, repo.Name)+"/")
	if err != nil {
		return nil, err
	}

	var remotes []RemoteDatabase
	for _, obj := range objects {
		base := path.Base(obj.Name)
		lang, ok := strings.CutSuffix(base, ".zip")
		if !ok || path.Dir(obj.Name) != path.Join(repo.Owner, repo.Name) {
			continue
		}
		remotes = append(remotes, RemoteDatabase{
			Language: lang,
			Route:    obj.Name,
			Size:     obj.Size,
		})
	}
	return remotes, nil
}

// FetchDatabase opens the archive for language.
func (s *StorageSource) FetchDatabase(ctx context.Context, repo repository.Repository, language string) (io.ReadCloser, error) {
	rc, _, _, err := s.Backend.GetFile(ctx, ArchiveObjectName(repo, language))
	if err != nil {
		return nil, err
	}
	return rc, nil
}

// Publish zips db and stores it as <owner>/<repo>/<language>.zip.
func (s *StorageSource) Publish(ctx context.Context, db *Database, repo repository.Repository) (string, error) {
	name := ArchiveObjectName(repo, db.Language().ID())

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(ArchiveDatabase(db, pw))
	}()

	err := s.Backend.PutFile(ctx, name, pr, "application/zip")
	_ = pr.CloseWithError(err) //nolint:errcheck // Unblocks the archiver on failure
	if err != nil {
		return "", err
	}
	return name, nil
}
