package codeql

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DatabaseConfigFile is the metadata file CodeQL writes into every database.
const DatabaseConfigFile = "codeql-database.yml"

// DatabaseConfig mirrors codeql-database.yml.
type DatabaseConfig struct {
	SourceLocationPrefix string            `yaml:"sourceLocationPrefix"`
	PrimaryLanguage      string            `yaml:"primaryLanguage"`
	BaselineLinesOfCode  int               `yaml:"baselineLinesOfCode"`
	UnicodeNewlines      bool              `yaml:"unicodeNewlines"`
	ColumnKind           string            `yaml:"columnKind"`
	CreationMetadata     *CreationMetadata `yaml:"creationMetadata,omitempty"`
	BuildMode            BuildMode         `yaml:"buildMode,omitempty"`
	Finalised            bool              `yaml:"finalised"`
}

// CreationMetadata holds creation details from codeql-database.yml.
type CreationMetadata struct {
	SHA          string `yaml:"sha,omitempty"`
	CLIVersion   string `yaml:"cliVersion"`
	CreationTime string `yaml:"creationTime"`
}

// Time parses CreationTime as an RFC 3339 timestamp in UTC.
func (m *CreationMetadata) Time() (time.Time, bool) {
	if m == nil || m.CreationTime == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, m.CreationTime)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// ParseDatabaseConfig decodes codeql-database.yml content.
func ParseDatabaseConfig(data []byte, path string) (*DatabaseConfig, error) {
	var cfg DatabaseConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &FormatError{Path: path, Format: "yaml", Err: err}
	}
	return &cfg, nil
}

// ReadDatabaseConfig reads and decodes the file at path.
func ReadDatabaseConfig(path string) (*DatabaseConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	return ParseDatabaseConfig(data, path)
}

// Language returns the canonical primary language.
func (c *DatabaseConfig) Language() Language {
	return CanonicalizeLanguage(c.PrimaryLanguage)
}
