package codeql

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrCodeQLNotFound is returned when no codeql executable can be located.
var ErrCodeQLNotFound = errors.New("codeql executable not found")

// maxLineSize bounds a single line of codeql stdout.
const maxLineSize = 16 * 1024 * 1024

// Runner runs a codeql subcommand and returns its stdout.
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// Observer is notified after every codeql invocation.
type Observer interface {
	ObserveCommand(subcommand string, elapsed time.Duration, err error)
}

// Config configures a CLI.
type Config struct {
	// Path is the codeql executable. If empty it is located with FindCodeQL.
	Path string

	// Threads is passed as --threads to create and analyze when non-zero.
	Threads int

	// RAM is the memory limit in MB passed as --ram when non-zero.
	RAM int

	// SearchPaths are extra directories passed as --search-path.
	SearchPaths []string

	// AdditionalPacks are directories passed as --additional-packs.
	AdditionalPacks []string

	// Token authenticates against pack registries. It is handed to the child
	// process as CODEQL_REGISTRIES_AUTH.
	Token string

	// Suite is the default query suite (default: "code-scanning").
	Suite string

	// ShowOutput echoes codeql stdout line by line while it runs.
	ShowOutput bool

	// Stdout receives echoed output (default: os.Stdout).
	Stdout io.Writer

	// Stderr receives the child's stderr (default: os.Stderr).
	Stderr io.Writer

	// Env is used to locate the executable and default directories.
	Env Environment

	// Observer, if set, is called after each invocation.
	Observer Observer

	Logger *slog.Logger
}

// CLI runs the codeql executable. It is immutable once created; Silent and
// WithSearchPaths return modified copies.
type CLI struct {
	path            string
	threads         int
	ram             int
	searchPaths     []string
	additionalPacks []string
	token           string
	suite           string
	showOutput      bool
	stdout          io.Writer
	stderr          io.Writer
	env             Environment
	observer        Observer
	logger          *slog.Logger
}

// New creates a CLI from cfg.
func New(cfg Config) (*CLI, error) {
	env := envOrDefault(cfg.Env)

	path := cfg.Path
	if path == "" {
		path = FindCodeQL(env)
	}
	if path == "" {
		return nil, &ToolError{ExitCode: -1, Err: ErrCodeQLNotFound}
	}

	suite := cfg.Suite
	if suite == "" {
		suite = DefaultSuite
	}

	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := cfg.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &CLI{
		path:            path,
		threads:         cfg.Threads,
		ram:             cfg.RAM,
		searchPaths:     append([]string(nil), cfg.SearchPaths...),
		additionalPacks: append([]string(nil), cfg.AdditionalPacks...),
		token:           cfg.Token,
		suite:           suite,
		showOutput:      cfg.ShowOutput,
		stdout:          stdout,
		stderr:          stderr,
		env:             env,
		observer:        cfg.Observer,
		logger:          logger,
	}, nil
}

// Path returns the codeql executable path.
func (c *CLI) Path() string { return c.path }

// SearchPaths returns the configured search paths.
func (c *CLI) SearchPaths() []string { return append([]string(nil), c.searchPaths...) }

// AdditionalPacks returns the configured additional pack directories.
func (c *CLI) AdditionalPacks() []string { return append([]string(nil), c.additionalPacks...) }

// DefaultSuite returns the configured default suite name.
func (c *CLI) DefaultSuite() string { return c.suite }

// Env returns the environment the CLI resolves defaults from.
func (c *CLI) Env() Environment { return c.env }

func (c *CLI) clone() *CLI {
	cp := *c
	cp.searchPaths = append([]string(nil), c.searchPaths...)
	cp.additionalPacks = append([]string(nil), c.additionalPacks...)
	return &cp
}

// Silent returns a copy of c that does not echo stdout.
func (c *CLI) Silent() *CLI {
	cp := c.clone()
	cp.showOutput = false
	return cp
}

// WithSearchPaths returns a copy of c with paths appended to its search paths.
func (c *CLI) WithSearchPaths(paths ...string) *CLI {
	cp := c.clone()
	cp.searchPaths = append(cp.searchPaths, paths...)
	return cp
}

// Run runs codeql with args and returns its stdout lines joined by "\n".
// stderr is passed through live. A non-zero exit status yields a *ToolError.
// Cancelling ctx kills the child process.
func (c *CLI) Run(ctx context.Context, args ...string) (string, error) {
	start := time.Now()
	out, err := c.run(ctx, args)
	if c.observer != nil {
		c.observer.ObserveCommand(subcommandName(args), time.Since(start), err)
	}
	return out, err
}

func (c *CLI) run(ctx context.Context, args []string) (string, error) {
	c.logger.Debug("running codeql", "path", c.path, "args", args)

	cmd := exec.CommandContext(ctx, c.path, args...)
	cmd.Env = os.Environ()
	if c.token != "" {
		cmd.Env = append(cmd.Env, EnvRegistriesAuth+"="+c.token)
	}

	var stderr bytes.Buffer
	cmd.Stderr = io.MultiWriter(c.stderr, &stderr)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", c.toolError(args, -1, "", err)
	}
	if err := cmd.Start(); err != nil {
		return "", c.toolError(args, -1, "", err)
	}

	var lines []string
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		if c.showOutput {
			_, _ = fmt.Fprintln(c.stdout, line) //nolint:errcheck // Echo is best effort
		}
		lines = append(lines, line)
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		_, _ = io.Copy(io.Discard, stdout) //nolint:errcheck // Drain so the child can exit
	}

	waitErr := cmd.Wait()
	output := strings.Join(lines, "\n")

	if waitErr != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			waitErr = fmt.Errorf("%w: %v", ctxErr, waitErr)
		}
		diag := stderr.String()
		if strings.TrimSpace(diag) == "" {
			diag = output
		}
		return output, c.toolError(args, code, diag, waitErr)
	}
	if scanErr != nil {
		return output, c.toolError(args, 0, stderr.String(), fmt.Errorf("failed to read stdout: %w", scanErr))
	}

	return output, nil
}

func (c *CLI) toolError(args []string, code int, output string, err error) *ToolError {
	return &ToolError{
		Path:     c.path,
		Args:     append([]string(nil), args...),
		ExitCode: code,
		Output:   output,
		Err:      err,
	}
}

// subcommandName returns the leading non-flag arguments, e.g. "database create".
func subcommandName(args []string) string {
	var parts []string
	for _, a := range args {
		if strings.HasPrefix(a, "-") || len(parts) == 2 {
			break
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// searchPathArgs returns --search-path with the configured search paths.
func (c *CLI) searchPathArgs() []string {
	return searchPathArgs(c.searchPaths)
}

func searchPathArgs(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	return []string{"--search-path", strings.Join(paths, string(filepath.ListSeparator))}
}

// additionalPacksArgs returns --additional-packs with the configured directories.
func (c *CLI) additionalPacksArgs() []string {
	if len(c.additionalPacks) == 0 {
		return nil
	}
	return []string{"--additional-packs", strings.Join(c.additionalPacks, ",")}
}

// resourceArgs returns --threads and --ram when set.
func (c *CLI) resourceArgs() []string {
	var args []string
	if c.threads != 0 {
		args = append(args, "--threads", strconv.Itoa(c.threads))
	}
	if c.ram != 0 {
		args = append(args, "--ram", strconv.Itoa(c.ram))
	}
	return args
}

// Version returns the CLI version, e.g. "2.19.3".
func (c *CLI) Version(ctx context.Context) (string, error) {
	out, err := c.Silent().Run(ctx, "version", "--format", "terse")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ResolveLanguages returns the languages the CLI can extract, mapped to their
// extractor directories.
func (c *CLI) ResolveLanguages(ctx context.Context) (map[string][]string, error) {
	args := append([]string{"resolve", "languages", "--format", "json"}, c.searchPathArgs()...)
	out, err := c.Silent().Run(ctx, args...)
	if err != nil {
		return nil, err
	}

	var langs map[string][]string
	if err := json.Unmarshal([]byte(out), &langs); err != nil {
		return nil, &FormatError{Path: "codeql resolve languages", Format: "json", Err: err}
	}
	return langs, nil
}

// Languages returns the primary languages supported by the CLI, sorted by id.
func (c *CLI) Languages(ctx context.Context) ([]Language, error) {
	return c.filterLanguages(ctx, func(l Language) bool { return !l.IsSecondary() })
}

// SecondaryLanguages returns the secondary languages supported by the CLI.
func (c *CLI) SecondaryLanguages(ctx context.Context) ([]Language, error) {
	return c.filterLanguages(ctx, Language.IsSecondary)
}

func (c *CLI) filterLanguages(ctx context.Context, keep func(Language) bool) ([]Language, error) {
	resolved, err := c.ResolveLanguages(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var langs []Language
	for name := range resolved {
		lang := CanonicalizeLanguage(name)
		if lang.IsNone() || seen[lang.ID()] || !keep(lang) {
			continue
		}
		seen[lang.ID()] = true
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i].ID() < langs[j].ID() })
	return langs, nil
}

// Extractors loads the extractor manifest of every resolved language.
// Languages whose manifest cannot be read are skipped.
func (c *CLI) Extractors(ctx context.Context) ([]*Extractor, error) {
	resolved, err := c.ResolveLanguages(ctx)
	if err != nil {
		return nil, err
	}

	var extractors []*Extractor
	for name, dirs := range resolved {
		if len(dirs) == 0 {
			continue
		}
		ext, err := LoadExtractor(dirs[0])
		if err != nil {
			c.logger.Debug("skipping extractor", "language", name, "error", err)
			continue
		}
		extractors = append(extractors, ext)
	}
	sort.Slice(extractors, func(i, j int) bool { return extractors[i].Name < extractors[j].Name })
	return extractors, nil
}

type resolvedPacks struct {
	Steps []resolvedPackStep `json:"steps"`
}

type resolvedPackStep struct {
	Type  string                                    `json:"type"`
	Found map[string]map[string]resolvedPackLocation `json:"found"`
}

type resolvedPackLocation struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
}

// ResolvePacks returns the packs visible to the CLI.
func (c *CLI) ResolvePacks(ctx context.Context) (Packs, error) {
	args := append([]string{"resolve", "packs", "--format", "json"}, c.searchPathArgs()...)
	args = append(args, c.additionalPacksArgs()...)
	out, err := c.Silent().Run(ctx, args...)
	if err != nil {
		return nil, err
	}

	var resolved resolvedPacks
	if err := json.Unmarshal([]byte(out), &resolved); err != nil {
		return nil, &FormatError{Path: "codeql resolve packs", Format: "json", Err: err}
	}

	var packs Packs
	for _, step := range resolved.Steps {
		if step.Type != "by-name-and-version" {
			continue
		}
		for name, versions := range step.Found {
			for version, loc := range versions {
				pack, err := LoadPack(loc.Path)
				if err != nil {
					c.logger.Warn("failed to load resolved pack", "pack", name, "version", version, "path", loc.Path, "error", err)
					continue
				}
				packs = append(packs, pack)
			}
		}
	}
	packs.Sort()
	return packs, nil
}
