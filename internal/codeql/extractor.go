package codeql

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// BuildMode is the way an extractor builds source code.
type BuildMode string

// Build modes understood by `codeql database create --build-mode`.
const (
	BuildModeNone      BuildMode = "none"
	BuildModeAutobuild BuildMode = "autobuild"
	BuildModeManual    BuildMode = "manual"
)

// ParseBuildMode parses a build mode name. "buildless" is accepted as an
// alias for "none".
func ParseBuildMode(s string) (BuildMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "buildless":
		return BuildModeNone, nil
	case "autobuild":
		return BuildModeAutobuild, nil
	case "manual":
		return BuildModeManual, nil
	default:
		return "", fmt.Errorf("unknown build mode: %q", s)
	}
}

// UnmarshalYAML normalizes the spellings ParseBuildMode accepts and keeps
// unknown modes verbatim.
func (m *BuildMode) UnmarshalYAML(value *yaml.Node) error {
	mode, err := ParseBuildMode(value.Value)
	if err != nil {
		mode = BuildMode(value.Value)
	}
	*m = mode
	return nil
}

// ExtractorFile is the name of an extractor's manifest.
const ExtractorFile = "codeql-extractor.yml"

// Extractor mirrors codeql-extractor.yml.
type Extractor struct {
	Name               string      `yaml:"name"`
	DisplayName        string      `yaml:"display_name"`
	Version            string      `yaml:"version"`
	BuildModes         []BuildMode `yaml:"build_modes,omitempty"`
	ColumnKind         string      `yaml:"column_kind,omitempty"`
	GitHubAPILanguages []string    `yaml:"github_api_languages,omitempty"`
	FileTypes          []FileType  `yaml:"file_types,omitempty"`

	// Path is the directory the manifest was loaded from.
	Path string `yaml:"-"`
}

// FileType is a file type handled by an extractor.
type FileType struct {
	Name        string   `yaml:"name"`
	DisplayName string   `yaml:"display_name"`
	Extensions  []string `yaml:"extensions"`
}

// LoadExtractor reads codeql-extractor.yml from dir.
func LoadExtractor(dir string) (*Extractor, error) {
	path := filepath.Join(dir, ExtractorFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}

	var ext Extractor
	if err := yaml.Unmarshal(data, &ext); err != nil {
		return nil, &FormatError{Path: path, Format: "yaml", Err: err}
	}
	ext.Path = dir
	return &ext, nil
}

// Language returns the canonical language handled by the extractor.
func (e *Extractor) Language() Language {
	return CanonicalizeLanguage(e.Name)
}

// SupportsBuildMode reports whether the extractor declares mode.
func (e *Extractor) SupportsBuildMode(mode BuildMode) bool {
	for _, m := range e.BuildModes {
		if m == mode {
			return true
		}
	}
	return false
}
