package codeql

import (
	"os"
	"path/filepath"
	"strings"
)

// Environment variables read by the toolkit.
const (
	EnvCodeQLPath      = "CODEQL_PATH"
	EnvCodeQLBinary    = "CODEQL_BINARY"
	EnvCodeQLDatabases = "CODEQL_DATABASES"
	EnvCodeQLResults   = "CODEQL_RESULTS"
	EnvRegistriesAuth  = "CODEQL_REGISTRIES_AUTH"
)

// Environment provides access to environment variables and the user's home
// directory. Default path resolution goes through it so tests never need to
// touch the real process environment.
type Environment interface {
	Getenv(key string) string
	HomeDir() (string, error)
}

// OSEnvironment reads from the process environment.
type OSEnvironment struct{}

// Getenv returns the value of the environment variable key.
func (OSEnvironment) Getenv(key string) string {
	return os.Getenv(key)
}

// HomeDir returns the current user's home directory.
func (OSEnvironment) HomeDir() (string, error) {
	return os.UserHomeDir()
}

// MapEnvironment is an in-memory Environment. HomeDir is taken from "HOME".
type MapEnvironment map[string]string

// Getenv returns the value stored for key.
func (m MapEnvironment) Getenv(key string) string {
	return m[key]
}

// HomeDir returns the "HOME" entry, or os.ErrNotExist when it is unset.
func (m MapEnvironment) HomeDir() (string, error) {
	if home := m["HOME"]; home != "" {
		return home, nil
	}
	return "", os.ErrNotExist
}

func envOrDefault(env Environment) Environment {
	if env == nil {
		return OSEnvironment{}
	}
	return env
}

// codeqlHome returns ~/.codeql, or /tmp/codeql when no home directory is known.
func codeqlHome(env Environment) string {
	home, err := envOrDefault(env).HomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "codeql")
	}
	return filepath.Join(home, ".codeql")
}

// DatabasesRoot returns $CODEQL_DATABASES or ~/.codeql/databases.
func DatabasesRoot(env Environment) string {
	if p := envOrDefault(env).Getenv(EnvCodeQLDatabases); p != "" {
		return p
	}
	return filepath.Join(codeqlHome(env), "databases")
}

// ResultsRoot returns $CODEQL_RESULTS or ~/.codeql/results.
func ResultsRoot(env Environment) string {
	if p := envOrDefault(env).Getenv(EnvCodeQLResults); p != "" {
		return p
	}
	return filepath.Join(codeqlHome(env), "results")
}

// PackagesRoot returns the CodeQL package cache, ~/.codeql/packages.
func PackagesRoot(env Environment) string {
	return filepath.Join(codeqlHome(env), "packages")
}

// FindCodeQL locates the codeql executable. It checks $CODEQL_PATH/codeql,
// then $CODEQL_BINARY, then every entry of $PATH. It returns "" when nothing
// is found.
func FindCodeQL(env Environment) string {
	env = envOrDefault(env)

	if dir := env.Getenv(EnvCodeQLPath); dir != "" {
		if p := filepath.Join(dir, "codeql"); isExecutable(p) {
			return p
		}
	}
	if p := env.Getenv(EnvCodeQLBinary); p != "" && isExecutable(p) {
		return p
	}
	for _, dir := range filepath.SplitList(env.Getenv("PATH")) {
		if dir == "" {
			continue
		}
		if p := filepath.Join(dir, "codeql"); isExecutable(p) {
			return p
		}
	}
	return ""
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if strings.EqualFold(filepath.Ext(path), ".exe") {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
