package codeql

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// File names of a pack's manifest and lock file.
const (
	PackManifestFile = "qlpack.yml"
	PackLockFile     = "codeql-pack.lock.yml"
)

// PackType classifies a pack by what it provides.
type PackType int

// Pack types in sort order. PackTypeUnknown is used for reference-only packs.
const (
	PackTypeUnknown PackType = iota
	PackTypeLibrary
	PackTypeQueries
	PackTypeModels
	PackTypeTesting
)

func (t PackType) String() string {
	switch t {
	case PackTypeLibrary:
		return "library"
	case PackTypeQueries:
		return "queries"
	case PackTypeModels:
		return "models"
	case PackTypeTesting:
		return "testing"
	default:
		return "unknown"
	}
}

// PackManifest mirrors qlpack.yml.
type PackManifest struct {
	Name             string            `yaml:"name"`
	Library          bool              `yaml:"library,omitempty"`
	Version          string            `yaml:"version,omitempty"`
	Groups           []string          `yaml:"groups,omitempty"`
	Dependencies     map[string]string `yaml:"dependencies,omitempty"`
	Suites           string            `yaml:"suites,omitempty"`
	DefaultSuiteFile string            `yaml:"defaultSuiteFile,omitempty"`
	Extractor        string            `yaml:"extractor,omitempty"`
	ExtensionTargets map[string]string `yaml:"extensionTargets,omitempty"`
	DataExtensions   []string          `yaml:"dataExtensions,omitempty"`
	Tests            string            `yaml:"tests,omitempty"`
}

// Type derives the pack type. A library with data extensions is a models
// pack; otherwise library, then tests, then queries.
func (m *PackManifest) Type() PackType {
	switch {
	case m.Library && len(m.DataExtensions) > 0:
		return PackTypeModels
	case m.Library:
		return PackTypeLibrary
	case m.Tests != "":
		return PackTypeTesting
	default:
		return PackTypeQueries
	}
}

// PackLock mirrors codeql-pack.lock.yml.
type PackLock struct {
	LockVersion  string                        `yaml:"lockVersion"`
	Compiled     bool                          `yaml:"compiled,omitempty"`
	Dependencies map[string]PackLockDependency `yaml:"dependencies,omitempty"`
}

// PackLockDependency is a pinned dependency in a lock file.
type PackLockDependency struct {
	Version string `yaml:"version"`
}

// Pack is a CodeQL pack. A reference-only pack has a specifier but no
// manifest and an empty Path.
type Pack struct {
	Specifier QuerySpecifier
	Path      string
	Manifest  *PackManifest
	Type      PackType
	Lock      *PackLock
}

// NewPackReference returns a pack that only carries its specifier.
func NewPackReference(spec QuerySpecifier) *Pack {
	return &Pack{Specifier: spec}
}

// LoadPack reads the pack at path. If path is a file its directory is used.
// The lock file is optional.
func LoadPack(path string) (*Pack, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &IOError{Op: "stat", Path: path, Err: err}
	}
	dir := path
	if !info.IsDir() {
		dir = filepath.Dir(path)
	}

	manifestPath := filepath.Join(dir, PackManifestFile)
	data, err := os.ReadFile(manifestPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &PackError{Path: dir, Msg: "no " + PackManifestFile + " found"}
	}
	if err != nil {
		return nil, &PackError{Path: manifestPath, Msg: "failed to read manifest", Err: err}
	}

	var manifest PackManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, &PackError{Path: manifestPath, Msg: "malformed manifest", Err: &FormatError{Path: manifestPath, Format: "yaml", Err: err}}
	}

	lock, err := loadPackLock(dir)
	if err != nil {
		return nil, err
	}

	spec, _ := ParseQuerySpecifier(manifest.Name)
	if manifest.Name == "" {
		spec = QuerySpecifier{}
	}

	return &Pack{
		Specifier: spec,
		Path:      dir,
		Manifest:  &manifest,
		Type:      manifest.Type(),
		Lock:      lock,
	}, nil
}

func loadPackLock(dir string) (*PackLock, error) {
	lockPath := filepath.Join(dir, PackLockFile)
	data, err := os.ReadFile(lockPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &PackError{Path: lockPath, Msg: "failed to read lock file", Err: err}
	}

	var lock PackLock
	if err := yaml.Unmarshal(data, &lock); err != nil {
		return nil, &PackError{Path: lockPath, Msg: "malformed lock file", Err: &FormatError{Path: lockPath, Format: "yaml", Err: err}}
	}
	return &lock, nil
}

// IsReference reports whether the pack was not found on disk.
func (p *Pack) IsReference() bool {
	return p.Manifest == nil
}

// Scope returns the pack's scope, e.g. "codeql".
func (p *Pack) Scope() string {
	return p.Specifier.Scope
}

// Name returns the pack's name without its scope.
func (p *Pack) Name() string {
	return p.Specifier.Name
}

// FullName returns "scope/name".
func (p *Pack) FullName() string {
	return p.Specifier.FullName()
}

// Version returns the manifest version, or the requested range for
// reference-only packs.
func (p *Pack) Version() string {
	if p.Manifest != nil && p.Manifest.Version != "" {
		return p.Manifest.Version
	}
	return p.Specifier.Range
}

// Reference returns "scope/name[@version]".
func (p *Pack) Reference() string {
	if v := p.Version(); v != "" {
		return p.FullName() + "@" + v
	}
	return p.FullName()
}

// Dependencies returns the pinned versions from the lock file when present,
// otherwise the ranges declared in the manifest.
func (p *Pack) Dependencies() map[string]string {
	deps := make(map[string]string)
	if p.Lock != nil {
		for name, dep := range p.Lock.Dependencies {
			deps[name] = dep.Version
		}
		return deps
	}
	if p.Manifest != nil {
		for name, r := range p.Manifest.Dependencies {
			deps[name] = r
		}
	}
	return deps
}

// Suite returns a specifier for a suite file inside the pack. A named suite
// such as "security-extended" expands using the pack's extractor language.
func (p *Pack) Suite(suite string) QuerySpecifier {
	spec := QuerySpecifier{Scope: p.Scope(), Name: p.Name()}
	if suite == "" {
		return spec
	}
	if IsNamedSuite(suite) && p.Manifest != nil && p.Manifest.Extractor != "" {
		named, _ := SuiteSpecifier(CanonicalizeLanguage(p.Manifest.Extractor), suite)
		return spec.WithPath(named.Path)
	}
	return spec.WithPath(suite)
}

// Relative strips the pack's directory from path.
func (p *Pack) Relative(path string) string {
	if p.Path == "" {
		return path
	}
	rel, err := filepath.Rel(p.Path, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

func (p *Pack) String() string {
	if p.Path == "" {
		return p.Reference()
	}
	return p.Reference() + " (" + p.Path + ")"
}
