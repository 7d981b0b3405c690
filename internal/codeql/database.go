package codeql

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/data-douser/ghastoolkit-go/internal/repository"
)

// DatabaseState is the lifecycle stage of a database.
type DatabaseState int

// Database states. Analysis does not change a database and is observed
// through the results file instead (see DatabaseHandler.Analyzed).
const (
	StateUnbound DatabaseState = iota
	StateSourceBound
	StateCreated
	StateConfigLoaded
)

func (s DatabaseState) String() string {
	switch s {
	case StateSourceBound:
		return "source-bound"
	case StateCreated:
		return "created"
	case StateConfigLoaded:
		return "config-loaded"
	default:
		return "unbound"
	}
}

// Sentinels returned when a database has no loaded configuration.
const (
	UnknownVersion = "0.0.0"
)

// DatabaseOptions describes a database to create or open.
type DatabaseOptions struct {
	// Name overrides the derived name.
	Name string

	// Path is the database directory. Defaults to a directory under
	// DatabasesRoot derived from the repository or name.
	Path string

	// Language is a language token or alias.
	Language string

	// Source is the source tree to extract.
	Source string

	// Repository is the repository the database belongs to.
	Repository *repository.Repository

	// Config is an already loaded configuration.
	Config *DatabaseConfig

	// Env resolves default paths.
	Env Environment
}

// Database is a CodeQL database on disk, or one that is about to be created.
type Database struct {
	name       string
	path       string
	language   Language
	source     string
	repository *repository.Repository
	config     *DatabaseConfig
	env        Environment
}

// NewDatabase builds a Database. The name is taken from, in order, the
// explicit name, the repository name, the last component of an explicit
// path, and the source directory name.
func NewDatabase(opts DatabaseOptions) *Database {
	env := envOrDefault(opts.Env)
	lang := CanonicalizeLanguage(opts.Language)

	if opts.Path != "" && opts.Language == "" {
		if cfg, err := ReadDatabaseConfig(filepath.Join(opts.Path, DatabaseConfigFile)); err == nil {
			lang = cfg.Language()
			if opts.Source == "" {
				opts.Source = cfg.SourceLocationPrefix
			}
		}
	}

	db := &Database{
		name:       databaseName(opts),
		path:       opts.Path,
		language:   lang,
		source:     opts.Source,
		repository: opts.Repository,
		config:     opts.Config,
		env:        env,
	}
	if db.path == "" {
		db.path = db.defaultPath()
	}
	return db
}

func databaseName(opts DatabaseOptions) string {
	switch {
	case opts.Name != "":
		return opts.Name
	case opts.Repository != nil && opts.Repository.Name != "":
		return opts.Repository.Name
	case opts.Path != "":
		return filepath.Base(filepath.Clean(opts.Path))
	case opts.Source != "":
		return filepath.Base(filepath.Clean(opts.Source))
	default:
		return ""
	}
}

// defaultPath returns <root>/<owner>/<repo>/<language> for repository
// databases, <root>/<language>-<name> for other primary languages and
// <root>/<name> otherwise.
func (d *Database) defaultPath() string {
	root := DatabasesRoot(d.env)
	switch {
	case d.repository != nil:
		return filepath.Join(root, d.repository.Owner, d.repository.Name, d.language.ID())
	case d.language.IsPrimary():
		return filepath.Join(root, d.language.ID()+"-"+d.name)
	default:
		return filepath.Join(root, d.name)
	}
}

// LoadDatabase opens the database at path. If path has no
// codeql-database.yml the tree below it is searched for one.
func LoadDatabase(path string) (*Database, error) {
	configPath := filepath.Join(path, DatabaseConfigFile)
	if info, err := os.Stat(path); err == nil && !info.IsDir() && filepath.Base(path) == DatabaseConfigFile {
		configPath = path
	} else if _, err := os.Stat(configPath); err != nil {
		found, findErr := findDatabaseConfig(path)
		if findErr != nil {
			return nil, findErr
		}
		configPath = found
	}

	cfg, err := ReadDatabaseConfig(configPath)
	if err != nil {
		return nil, &DatabaseError{Path: configPath, Msg: "Invalid CodeQL Database", Err: err}
	}

	dir := filepath.Dir(configPath)
	return NewDatabase(DatabaseOptions{
		Path:     dir,
		Language: cfg.PrimaryLanguage,
		Source:   cfg.SourceLocationPrefix,
		Config:   cfg,
	}), nil
}

func findDatabaseConfig(root string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == DatabaseConfigFile {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", &IOError{Op: "walk", Path: root, Err: err}
	}
	if found == "" {
		return "", &DatabaseError{Path: root, Msg: "Invalid CodeQL Database", Err: errors.New("no " + DatabaseConfigFile + " found")}
	}
	return found, nil
}

// Name returns the database name.
func (d *Database) Name() string { return d.name }

// Path returns the database directory.
func (d *Database) Path() string { return d.path }

// Language returns the database language.
func (d *Database) Language() Language { return d.language }

// Source returns the source root, or "" when none is bound.
func (d *Database) Source() string { return d.source }

// Repository returns the owning repository, or nil.
func (d *Database) Repository() *repository.Repository { return d.repository }

// SetRepository attaches the owning repository.
func (d *Database) SetRepository(repo *repository.Repository) { d.repository = repo }

// Config returns the loaded configuration, or nil before Reload.
func (d *Database) Config() *DatabaseConfig { return d.config }

// ConfigPath returns the path of codeql-database.yml.
func (d *Database) ConfigPath() string {
	return filepath.Join(d.path, DatabaseConfigFile)
}

// Validate reports whether codeql-database.yml exists.
func (d *Database) Validate() bool {
	info, err := os.Stat(d.ConfigPath())
	return err == nil && !info.IsDir()
}

// Reload re-reads codeql-database.yml and replaces the loaded configuration.
func (d *Database) Reload() error {
	if !d.Validate() {
		return &DatabaseError{Path: d.path, Msg: "Invalid CodeQL Database"}
	}
	cfg, err := ReadDatabaseConfig(d.ConfigPath())
	if err != nil {
		return &DatabaseError{Path: d.ConfigPath(), Msg: "Invalid CodeQL Database", Err: err}
	}
	d.config = cfg
	return nil
}

// State returns where the database is in its lifecycle.
func (d *Database) State() DatabaseState {
	switch {
	case d.config != nil:
		return StateConfigLoaded
	case d.Validate():
		return StateCreated
	case d.source != "":
		return StateSourceBound
	default:
		return StateUnbound
	}
}

// Version returns the CLI version that created the database, or "0.0.0".
func (d *Database) Version() string {
	if d.config == nil || d.config.CreationMetadata == nil || d.config.CreationMetadata.CLIVersion == "" {
		return UnknownVersion
	}
	return d.config.CreationMetadata.CLIVersion
}

// CreatedAt returns the creation time when the configuration records one.
func (d *Database) CreatedAt() (time.Time, bool) {
	if d.config == nil {
		return time.Time{}, false
	}
	return d.config.CreationMetadata.Time()
}

// LinesOfCode returns the baseline lines of code, or 0.
func (d *Database) LinesOfCode() int {
	if d.config == nil {
		return 0
	}
	return d.config.BaselineLinesOfCode
}

// DefaultResultsPath returns the SARIF file analysis writes to by default:
// <results>/<language>-<owner>-<repo>.sarif, or <results>/<language>-<name>.sarif.
func (d *Database) DefaultResultsPath() string {
	var file string
	if d.repository != nil {
		file = fmt.Sprintf("%s-%s-%s.sarif", d.language.ID(), d.repository.Owner, d.repository.Name)
	} else {
		file = fmt.Sprintf("%s-%s.sarif", d.language.ID(), d.name)
	}
	return filepath.Join(ResultsRoot(d.env), file)
}

func (d *Database) String() string {
	if d.repository != nil {
		return fmt.Sprintf("%s (%s, %s)", d.name, d.language, d.repository.FullName())
	}
	return fmt.Sprintf("%s (%s)", d.name, d.language)
}
