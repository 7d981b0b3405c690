package codeql

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/data-douser/ghastoolkit-go/internal/repository"
)

// DatabaseArchive is a zipped CodeQL database.
type DatabaseArchive struct {
	// Path is the archive file.
	Path string

	// Name is the archive file name without its extension.
	Name string

	Language Language

	// Config is the codeql-database.yml found inside the archive.
	Config *DatabaseConfig

	// Size is the archive size in bytes.
	Size int64

	// ContentHash is the SHA-256 of the archive.
	ContentHash string

	// Repository is derived from the archive location, or from the source
	// location prefix when the location does not name one.
	Repository *repository.Repository
}

// Discovery is the result of scanning a directory tree for databases.
type Discovery struct {
	Root      string
	Databases []*Database
	Archives  []*DatabaseArchive
}

// DiscoverDatabases scans root for database directories and zip archives.
// Directories laid out as <owner>/<repo>/<language> below root get that
// repository attached. Unreadable candidates are logged and skipped.
func DiscoverDatabases(root string, logger *slog.Logger) (*Discovery, error) {
	if logger == nil {
		logger = slog.Default()
	}
	result := &Discovery{Root: root}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(d.Name()), ".zip") {
			archive, err := ReadDatabaseArchive(path)
			if err != nil {
				logger.Warn("failed to read archive", "path", path, "error", err)
				return nil
			}
			if archive != nil {
				if repo := repositoryFromLayout(root, strings.TrimSuffix(path, filepath.Ext(path))); repo != nil {
					archive.Repository = repo
				}
				result.Archives = append(result.Archives, archive)
			}
			return nil
		}

		if d.IsDir() {
			if _, err := os.Stat(filepath.Join(path, DatabaseConfigFile)); err != nil {
				return nil
			}
			db, err := LoadDatabase(path)
			if err != nil {
				logger.Warn("failed to load database", "path", path, "error", err)
				return filepath.SkipDir
			}
			if repo := repositoryFromLayout(root, path); repo != nil {
				db.SetRepository(repo)
			}
			result.Databases = append(result.Databases, db)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, &IOError{Op: "walk", Path: root, Err: err}
	}
	return result, nil
}

// repositoryFromLayout returns the repository for paths shaped
// <root>/<owner>/<repo>/<language>.
func repositoryFromLayout(root, path string) *repository.Repository {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return nil
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 || parts[0] == "." || parts[0] == ".." {
		return nil
	}
	if !IsKnownLanguage(parts[2]) {
		return nil
	}
	return &repository.Repository{Owner: parts[0], Name: parts[1]}
}

// ReadDatabaseArchive reads the metadata of a zipped database. It returns
// nil and no error when the zip holds no codeql-database.yml.
func ReadDatabaseArchive(path string) (*DatabaseArchive, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	defer func() {
		_ = reader.Close() //nolint:errcheck // Best effort close in defer
	}()

	var cfgFile *zip.File
	for _, f := range reader.File {
		if filepath.Base(f.Name) == DatabaseConfigFile {
			cfgFile = f
			break
		}
	}
	if cfgFile == nil {
		return nil, nil
	}

	cfg, err := readZippedConfig(cfgFile, path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &IOError{Op: "stat", Path: path, Err: err}
	}

	hash, err := hashFile(path)
	if err != nil {
		return nil, &IOError{Op: "hash", Path: path, Err: err}
	}

	lang := cfg.Language()
	if lang.IsNone() {
		lang = CanonicalizeLanguage(languageFromDatasetDirs(reader.File))
	}

	archive := &DatabaseArchive{
		Path:        path,
		Name:        strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Language:    lang,
		Config:      cfg,
		Size:        info.Size(),
		ContentHash: hash,
	}
	if owner, repo := ownerRepoFromSourcePrefix(cfg.SourceLocationPrefix); owner != "" {
		archive.Repository = &repository.Repository{Owner: owner, Name: repo}
	}
	return archive, nil
}

func readZippedConfig(f *zip.File, archivePath string) (*DatabaseConfig, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s in zip: %w", f.Name, err)
	}
	defer func() {
		_ = rc.Close() //nolint:errcheck // Best effort close in defer
	}()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s in zip: %w", f.Name, err)
	}
	return ParseDatabaseConfig(data, archivePath+"!"+f.Name)
}

// ownerRepoFromSourcePrefix takes the last two components of a source
// location prefix as owner and repo, e.g. "/src/octo/app" gives ("octo", "app").
func ownerRepoFromSourcePrefix(prefix string) (owner, repo string) {
	if prefix == "" {
		return "", ""
	}

	var parts []string
	for _, p := range strings.Split(filepath.ToSlash(filepath.Clean(prefix)), "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return "", ""
	}
	return parts[len(parts)-2], parts[len(parts)-1]
}

// languageFromDatasetDirs finds a db-<language> directory in the archive.
func languageFromDatasetDirs(files []*zip.File) string {
	for _, f := range files {
		for _, part := range strings.Split(f.Name, "/") {
			if lang, ok := strings.CutPrefix(part, "db-"); ok && lang != "" {
				return lang
			}
		}
	}
	return ""
}

// DirSize returns the total size of the regular files below dir.
func DirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return total, err
}

// hashFile computes the SHA-256 hash of a file.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close() //nolint:errcheck // Best effort close in defer
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
