package codeql

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Result formats accepted by `codeql database analyze --format`.
const (
	FormatSARIF = "sarif-latest"
	FormatCSV   = "csv"
)

// DatabaseHandler builds and runs create and analyze commands for a database.
// Setters return the handler so calls can be chained.
type DatabaseHandler struct {
	db     *Database
	runner Runner

	searchPaths     []string
	additionalPacks []string
	resourceArgs    []string

	queries      QuerySpecifier
	queriesErr   error
	output       string
	format       string
	threatModels []string
	modelPacks   []string
	category     string
	command      string
	buildMode    BuildMode
	overwrite    bool
	summary      bool
}

// NewDatabaseHandler returns a handler that runs commands through runner.
func NewDatabaseHandler(db *Database, runner Runner) *DatabaseHandler {
	return &DatabaseHandler{
		db:      db,
		runner:  runner,
		queries: LanguageDefault(db.Language()),
		format:  FormatSARIF,
		summary: true,
	}
}

// Database returns a handler for db that inherits the CLI's search paths,
// additional packs and resource limits.
func (c *CLI) Database(db *Database) *DatabaseHandler {
	h := NewDatabaseHandler(db, c)
	h.searchPaths = c.SearchPaths()
	h.additionalPacks = c.AdditionalPacks()
	h.resourceArgs = c.resourceArgs()
	if c.suite != "" && c.suite != DefaultSuite {
		h.Suite(c.suite)
	}
	return h
}

// Database returns the handled database.
func (h *DatabaseHandler) Database() *Database { return h.db }

// SearchPaths sets the directories passed as --search-path.
func (h *DatabaseHandler) SearchPaths(paths ...string) *DatabaseHandler {
	h.searchPaths = append([]string(nil), paths...)
	return h
}

// Queries sets the queries to analyze with.
func (h *DatabaseHandler) Queries(spec QuerySpecifier) *DatabaseHandler {
	h.queries = spec
	h.queriesErr = nil
	return h
}

// Suite sets the queries from a suite name such as "security-extended", or
// from any query specifier string.
func (h *DatabaseHandler) Suite(suite string) *DatabaseHandler {
	h.queries, h.queriesErr = SuiteSpecifier(h.db.Language(), suite)
	return h
}

// QuerySpecifier returns the queries analyze will run.
func (h *DatabaseHandler) QuerySpecifier() (QuerySpecifier, error) {
	return h.queries, h.queriesErr
}

// SARIF writes results as SARIF to path.
func (h *DatabaseHandler) SARIF(path string) *DatabaseHandler {
	h.output = path
	h.format = FormatSARIF
	return h
}

// CSV writes results as CSV to path.
func (h *DatabaseHandler) CSV(path string) *DatabaseHandler {
	h.output = path
	h.format = FormatCSV
	return h
}

// ThreatModels adds threat models to enable.
func (h *DatabaseHandler) ThreatModels(models ...string) *DatabaseHandler {
	h.threatModels = append(h.threatModels, models...)
	return h
}

// DisableDefaultThreatModel disables the "default" threat model.
func (h *DatabaseHandler) DisableDefaultThreatModel() *DatabaseHandler {
	return h.ThreatModels("!default")
}

// ModelPacks adds model packs used during extraction.
func (h *DatabaseHandler) ModelPacks(packs ...string) *DatabaseHandler {
	h.modelPacks = append(h.modelPacks, packs...)
	return h
}

// Category sets the SARIF category.
func (h *DatabaseHandler) Category(category string) *DatabaseHandler {
	h.category = category
	return h
}

// Command sets the build command for compiled languages.
func (h *DatabaseHandler) Command(command string) *DatabaseHandler {
	h.command = command
	return h
}

// BuildMode sets the extractor build mode.
func (h *DatabaseHandler) BuildMode(mode BuildMode) *DatabaseHandler {
	h.buildMode = mode
	return h
}

// Overwrite replaces an existing database on create.
func (h *DatabaseHandler) Overwrite(overwrite bool) *DatabaseHandler {
	h.overwrite = overwrite
	return h
}

// Summary toggles the diagnostics and metrics summaries on create.
func (h *DatabaseHandler) Summary(summary bool) *DatabaseHandler {
	h.summary = summary
	return h
}

// OutputPath returns where analyze writes results.
func (h *DatabaseHandler) OutputPath() string {
	if h.output != "" {
		return h.output
	}
	return h.db.DefaultResultsPath()
}

// CreateArgs returns the arguments for `codeql database create`.
func (h *DatabaseHandler) CreateArgs() ([]string, error) {
	if h.db.Source() == "" {
		return nil, &DatabaseError{Path: h.db.Path(), Msg: "No source root provided"}
	}
	lang := h.db.Language()
	if lang.IsNone() {
		return nil, &DatabaseError{Path: h.db.Path(), Msg: "No language provided"}
	}
	if lang.IsSecondary() {
		return nil, &DatabaseError{Path: h.db.Path(), Msg: "Secondary language " + lang.ID() + " cannot be used to create a database"}
	}

	args := []string{"database", "create", "-l", lang.ID(), "-s", h.db.Source()}
	if len(h.threatModels) > 0 {
		args = append(args, "--threat-models", strings.Join(h.threatModels, ","))
	}
	if len(h.modelPacks) > 0 {
		args = append(args, "--model-packs", strings.Join(h.modelPacks, ","))
	}
	args = append(args, searchPathArgs(h.searchPaths)...)
	if h.overwrite {
		args = append(args, "--overwrite")
	}
	if h.summary {
		args = append(args, "--print-diagnostics-summary", "--print-metrics-summary")
	}
	if h.category != "" {
		args = append(args, "--sarif-category", h.category)
	}
	if h.buildMode != "" {
		args = append(args, "--build-mode", string(h.buildMode))
	}
	if h.command != "" {
		args = append(args, "--command", h.command)
	}
	args = append(args, h.resourceArgs...)
	args = append(args, h.db.Path())
	return args, nil
}

// AnalyzeArgs returns the arguments for `codeql database analyze`.
func (h *DatabaseHandler) AnalyzeArgs() ([]string, error) {
	if h.queriesErr != nil {
		return nil, h.queriesErr
	}
	queries := h.queries
	if queries.IsZero() {
		queries = LanguageDefault(h.db.Language())
	}

	args := []string{"database", "analyze", "--output", h.OutputPath(), "--format", h.format}
	args = append(args, searchPathArgs(h.searchPaths)...)
	if len(h.additionalPacks) > 0 {
		args = append(args, "--additional-packs", strings.Join(h.additionalPacks, ","))
	}
	args = append(args, h.resourceArgs...)
	args = append(args, h.db.Path(), queries.String())
	return args, nil
}

// Create creates the database directory and runs `codeql database create`.
func (h *DatabaseHandler) Create(ctx context.Context) error {
	args, err := h.CreateArgs()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(h.db.Path(), 0o755); err != nil {
		return &IOError{Op: "mkdir", Path: h.db.Path(), Err: err}
	}
	_, err = h.runner.Run(ctx, args...)
	return err
}

// Analyze runs `codeql database analyze` and returns the results path.
func (h *DatabaseHandler) Analyze(ctx context.Context) (string, error) {
	args, err := h.AnalyzeArgs()
	if err != nil {
		return "", err
	}
	output := h.OutputPath()
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return "", &IOError{Op: "mkdir", Path: filepath.Dir(output), Err: err}
	}
	if _, err := h.runner.Run(ctx, args...); err != nil {
		return "", err
	}
	return output, nil
}

// Analyzed reports whether a results file exists at the output path.
func (h *DatabaseHandler) Analyzed() bool {
	info, err := os.Stat(h.OutputPath())
	return err == nil && !info.IsDir()
}

// Scan creates the database (overwriting any existing one), reloads its
// configuration and analyzes it. It returns the results path.
func (h *DatabaseHandler) Scan(ctx context.Context) (string, error) {
	if err := h.Overwrite(true).Create(ctx); err != nil {
		return "", err
	}
	if err := h.db.Reload(); err != nil {
		return "", err
	}
	return h.Analyze(ctx)
}

// Threads sets the thread count passed as --threads. Zero removes it.
func (h *DatabaseHandler) Threads(threads int) *DatabaseHandler {
	h.resourceArgs = withIntFlag(h.resourceArgs, "--threads", threads)
	return h
}

// RAM sets the memory limit in MB.
func (h *DatabaseHandler) RAM(mb int) *DatabaseHandler {
	h.resourceArgs = withIntFlag(h.resourceArgs, "--ram", mb)
	return h
}

func withIntFlag(args []string, flag string, v int) []string {
	out := make([]string, 0, len(args)+2)
	for i := 0; i < len(args); i++ {
		if args[i] == flag {
			i++
			continue
		}
		out = append(out, args[i])
	}
	if v != 0 {
		out = append(out, flag, strconv.Itoa(v))
	}
	return out
}
