// Package config loads the toolkit configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/data-douser/ghastoolkit-go/internal/codeql"
)

// FileName is the configuration file looked up in ~/.codeql.
const FileName = "ghastoolkit.yml"

// Config holds settings loaded from ghastoolkit.yml.
type Config struct {
	CodeQL  CodeQLConfig  `yaml:"codeql,omitempty"`
	Storage StorageConfig `yaml:"storage,omitempty"`
	GitHub  GitHubConfig  `yaml:"github,omitempty"`
	Server  ServerConfig  `yaml:"server,omitempty"`
}

// CodeQLConfig configures the codeql CLI.
type CodeQLConfig struct {
	Path            string   `yaml:"path,omitempty"`
	Threads         int      `yaml:"threads,omitempty"`
	RAM             int      `yaml:"ram,omitempty"`
	SearchPaths     []string `yaml:"searchPaths,omitempty"`
	AdditionalPacks []string `yaml:"additionalPacks,omitempty"`
	Suite           string   `yaml:"suite,omitempty"`
	ShowOutput      bool     `yaml:"showOutput,omitempty"`
	RegistryToken   string   `yaml:"registryToken,omitempty"`
	Databases       string   `yaml:"databases,omitempty"`
	Results         string   `yaml:"results,omitempty"`
}

// StorageConfig selects the archive mirror backend.
type StorageConfig struct {
	// Type is "local" or "gcs". Empty disables the mirror.
	Type        string `yaml:"type,omitempty"`
	Directory   string `yaml:"directory,omitempty"`
	Bucket      string `yaml:"bucket,omitempty"`
	Prefix      string `yaml:"prefix,omitempty"`
	Credentials string `yaml:"credentials,omitempty"`
}

// GitHubConfig configures the GitHub client.
type GitHubConfig struct {
	Instance string `yaml:"instance,omitempty"`
	Token    string `yaml:"token,omitempty"`
}

// ServerConfig configures `ghastoolkit serve`.
type ServerConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
}

// Defaults for the server.
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 8070
)

// DefaultPath returns ~/.codeql/ghastoolkit.yml.
func DefaultPath(env codeql.Environment) string {
	if env == nil {
		env = codeql.OSEnvironment{}
	}
	home, err := env.HomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".codeql", FileName)
}

// Load reads the file at path. A missing file yields the defaults rather
// than an error. Environment overrides are applied afterwards.
func Load(path string, env codeql.Environment) (*Config, error) {
	if env == nil {
		env = codeql.OSEnvironment{}
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv(env)
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv(env codeql.Environment) {
	for _, key := range []string{"GITHUB_TOKEN", "GH_TOKEN"} {
		if v := env.Getenv(key); v != "" {
			c.GitHub.Token = v
			break
		}
	}
	if v := env.Getenv("GITHUB_SERVER_URL"); v != "" && c.GitHub.Instance == "" {
		c.GitHub.Instance = v
	}
	if v := env.Getenv(codeql.EnvRegistriesAuth); v != "" {
		c.CodeQL.RegistryToken = v
	}
}

func (c *Config) applyDefaults() {
	if c.CodeQL.Suite == "" {
		c.CodeQL.Suite = codeql.DefaultSuite
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
}

// Environment layers the configured database and results roots over env.
func (c *Config) Environment(env codeql.Environment) codeql.Environment {
	if env == nil {
		env = codeql.OSEnvironment{}
	}
	overrides := map[string]string{}
	if c.CodeQL.Databases != "" && env.Getenv(codeql.EnvCodeQLDatabases) == "" {
		overrides[codeql.EnvCodeQLDatabases] = c.CodeQL.Databases
	}
	if c.CodeQL.Results != "" && env.Getenv(codeql.EnvCodeQLResults) == "" {
		overrides[codeql.EnvCodeQLResults] = c.CodeQL.Results
	}
	if len(overrides) == 0 {
		return env
	}
	return layeredEnv{base: env, overrides: overrides}
}

type layeredEnv struct {
	base      codeql.Environment
	overrides map[string]string
}

func (e layeredEnv) Getenv(key string) string {
	if v, ok := e.overrides[key]; ok {
		return v
	}
	return e.base.Getenv(key)
}

func (e layeredEnv) HomeDir() (string, error) {
	return e.base.HomeDir()
}
