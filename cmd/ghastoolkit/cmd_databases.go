package main

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/data-douser/ghastoolkit-go/internal/codeql"
	"github.com/data-douser/ghastoolkit-go/internal/repository"
	"github.com/data-douser/ghastoolkit-go/internal/sarif"
)

func newDatabasesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "databases",
		Aliases: []string{"database", "db"},
		Short:   "Create, analyze, download and publish CodeQL databases",
	}
	cmd.AddCommand(
		newDatabasesListCmd(a),
		newDatabasesCreateCmd(a),
		newDatabasesAnalyzeCmd(a),
		newDatabasesScanCmd(a),
		newDatabasesDownloadCmd(a),
		newDatabasesPublishCmd(a),
	)
	return cmd
}

func parseRepo(s string) (*repository.Repository, error) {
	if s == "" {
		return nil, nil
	}
	repo, err := repository.Parse(s)
	if err != nil {
		return nil, err
	}
	return &repo, nil
}

func newDatabasesListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [dir]",
		Short: "List databases and database archives under a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := codeql.DatabasesRoot(a.env)
			if len(args) == 1 {
				root = args[0]
			}

			found, err := codeql.DiscoverDatabases(root, a.logger)
			if err != nil {
				return err
			}
			if a.format == "json" {
				return writeJSON(a.stdout, found.Metadata())
			}

			rows := make([][]string, 0, len(found.Databases)+len(found.Archives))
			for _, db := range found.Databases {
				repo := ""
				if db.Repository() != nil {
					repo = db.Repository().FullName()
				}
				rows = append(rows, []string{db.Name(), db.Language().ID(), repo, db.Version(), db.Path()})
			}
			for _, ar := range found.Archives {
				repo := ""
				if ar.Repository != nil {
					repo = ar.Repository.FullName()
				}
				version := codeql.UnknownVersion
				if ar.Config != nil && ar.Config.CreationMetadata != nil && ar.Config.CreationMetadata.CLIVersion != "" {
					version = ar.Config.CreationMetadata.CLIVersion
				}
				rows = append(rows, []string{ar.Name + " (" + humanSize(ar.Size) + ")", ar.Language.ID(), repo, version, ar.Path})
			}
			return writeTable(a.stdout, []string{"NAME", "LANGUAGE", "REPOSITORY", "CLI VERSION", "PATH"}, rows)
		},
	}
}

// createFlags are shared by create and scan.
type createFlags struct {
	source       string
	name         string
	path         string
	repo         string
	command      string
	buildMode    string
	threatModels []string
	modelPacks   []string
	category     string
	noSummary    bool
}

func (f *createFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.source, "source", "s", ".", "source root to extract")
	cmd.Flags().StringVar(&f.name, "name", "", "database name (default: derived from repository, path or source)")
	cmd.Flags().StringVar(&f.path, "path", "", "database directory (default: under the databases root)")
	cmd.Flags().StringVar(&f.repo, "repo", "", "repository the database belongs to (owner/repo)")
	cmd.Flags().StringVar(&f.command, "command", "", "build command for compiled languages")
	cmd.Flags().StringVar(&f.buildMode, "build-mode", "", "build mode: none, autobuild or manual")
	cmd.Flags().StringSliceVar(&f.threatModels, "threat-model", nil, "threat models to enable")
	cmd.Flags().StringSliceVar(&f.modelPacks, "model-pack", nil, "model packs to apply")
	cmd.Flags().StringVar(&f.category, "category", "", "SARIF category")
	cmd.Flags().BoolVar(&f.noSummary, "no-summary", false, "do not print diagnostics and metrics summaries")
}

// handler builds a database and its handler for one language.
func (f *createFlags) handler(a *app, cli *codeql.CLI, language string, multi bool) (*codeql.DatabaseHandler, error) {
	repo, err := parseRepo(f.repo)
	if err != nil {
		return nil, err
	}

	path := f.path
	if multi && path != "" {
		path = path + "-" + codeql.CanonicalizeLanguage(language).ID()
	}
	db := codeql.NewDatabase(codeql.DatabaseOptions{
		Name:       f.name,
		Path:       path,
		Language:   language,
		Source:     f.source,
		Repository: repo,
		Env:        a.env,
	})

	h := cli.Database(db).
		ThreatModels(f.threatModels...).
		ModelPacks(f.modelPacks...).
		Category(f.category).
		Command(f.command).
		Summary(!f.noSummary)
	if f.buildMode != "" {
		mode, err := codeql.ParseBuildMode(f.buildMode)
		if err != nil {
			return nil, err
		}
		h.BuildMode(mode)
	}
	return h, nil
}

func newDatabasesCreateCmd(a *app) *cobra.Command {
	var (
		flags     createFlags
		language  string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a CodeQL database from a source tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := a.codeql()
			if err != nil {
				return err
			}
			h, err := flags.handler(a, cli, language, false)
			if err != nil {
				return err
			}
			if err := h.Overwrite(overwrite).Create(cmd.Context()); err != nil {
				return err
			}
			db := h.Database()
			if err := db.Reload(); err != nil {
				return err
			}
			if a.format == "json" {
				return writeJSON(a.stdout, db.Metadata())
			}
			_, err = fmt.Fprintf(a.stdout, "Created %s\n", db)
			return err
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&language, "language", "l", "", "language to extract")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "overwrite an existing database")
	_ = cmd.MarkFlagRequired("language") //nolint:errcheck // Flag is registered above
	return cmd
}

// analyzeFlags are shared by analyze and scan.
type analyzeFlags struct {
	output string
	csv    bool
}

func (f *analyzeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "results file (default: under the results root)")
	cmd.Flags().BoolVar(&f.csv, "csv", false, "write CSV instead of SARIF")
}

func (f *analyzeFlags) apply(h *codeql.DatabaseHandler, suffix string) {
	output := f.output
	if output != "" && suffix != "" {
		output = output + "-" + suffix
	}
	if f.csv {
		h.CSV(output)
	} else {
		h.SARIF(output)
	}
}

func newDatabasesAnalyzeCmd(a *app) *cobra.Command {
	var (
		flags   analyzeFlags
		repo    string
		queries string
	)

	cmd := &cobra.Command{
		Use:   "analyze <database>",
		Short: "Analyze an existing CodeQL database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := a.codeql()
			if err != nil {
				return err
			}
			db, err := codeql.LoadDatabase(args[0])
			if err != nil {
				return err
			}
			r, err := parseRepo(repo)
			if err != nil {
				return err
			}
			if r != nil {
				db.SetRepository(r)
			}

			h := cli.Database(db)
			if queries != "" {
				spec, err := codeql.ParseQuerySpecifier(queries)
				if err != nil {
					return err
				}
				h.Queries(spec)
			}
			flags.apply(h, "")

			output, err := h.Analyze(cmd.Context())
			if err != nil {
				return err
			}
			return a.reportResults(db, output, flags.csv)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&repo, "repo", "", "repository the database belongs to (owner/repo)")
	cmd.Flags().StringVar(&queries, "queries", "", "query pack, suite or path (default: the language's default pack and suite)")
	return cmd
}

// scanResult is one language of a scan.
type scanResult struct {
	Language string `json:"language"`
	Database string `json:"database"`
	Output   string `json:"output"`
	Results  int    `json:"results"`
}

func newDatabasesScanCmd(a *app) *cobra.Command {
	var (
		create    createFlags
		analyze   analyzeFlags
		languages []string
		jobs      int
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Create and analyze databases for one or more languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := a.codeql()
			if err != nil {
				return err
			}
			if len(languages) == 0 {
				langs, err := cli.Languages(cmd.Context())
				if err != nil {
					return err
				}
				for _, l := range langs {
					languages = append(languages, l.ID())
				}
			}
			multi := len(languages) > 1

			var (
				mu      sync.Mutex
				results []scanResult
			)
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(jobs, 1))
			for _, language := range languages {
				h, err := create.handler(a, cli, language, multi)
				if err != nil {
					return err
				}
				suffix := ""
				if multi {
					suffix = h.Database().Language().ID()
				}
				analyze.apply(h, suffix)

				g.Go(func() error {
					output, err := h.Scan(ctx)
					if err != nil {
						return fmt.Errorf("%s: %w", language, err)
					}
					res := scanResult{
						Language: h.Database().Language().ID(),
						Database: h.Database().Path(),
						Output:   output,
					}
					if !analyze.csv {
						log, err := sarif.Load(output)
						if err != nil {
							return err
						}
						res.Results = log.ResultCount()
					}
					mu.Lock()
					results = append(results, res)
					mu.Unlock()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			if a.format == "json" {
				return writeJSON(a.stdout, results)
			}
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.Language, strconv.Itoa(r.Results), r.Output})
			}
			return writeTable(a.stdout, []string{"LANGUAGE", "RESULTS", "OUTPUT"}, rows)
		},
	}
	create.register(cmd)
	analyze.register(cmd)
	cmd.Flags().StringSliceVarP(&languages, "language", "l", nil, "languages to scan (default: every primary language the CLI supports)")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 1, "languages scanned in parallel")
	return cmd
}

// reportResults prints where results were written and, for SARIF, a per-rule
// summary.
func (a *app) reportResults(db *codeql.Database, output string, csv bool) error {
	if csv {
		if a.format == "json" {
			return writeJSON(a.stdout, map[string]string{"database": db.Path(), "output": output})
		}
		_, err := fmt.Fprintf(a.stdout, "Results written to %s\n", output)
		return err
	}

	log, err := sarif.Load(output)
	if err != nil {
		return err
	}
	if a.format == "json" {
		return writeJSON(a.stdout, map[string]any{
			"database": db.Path(),
			"output":   output,
			"results":  log.ResultCount(),
			"rules":    log.CountByRule(),
		})
	}

	counts := log.CountByRule()
	rows := make([][]string, 0, len(counts))
	for _, rule := range log.Rules() {
		if n := counts[rule]; n > 0 {
			rows = append(rows, []string{rule, strconv.Itoa(n)})
		}
	}
	if _, err := fmt.Fprintf(a.stdout, "%d results written to %s\n", log.ResultCount(), output); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return writeTable(a.stdout, []string{"RULE", "RESULTS"}, rows)
}

func newDatabasesDownloadCmd(a *app) *cobra.Command {
	var (
		repo        string
		languages   []string
		from        string
		keepArchive bool
		list        bool
		jobs        int
		store       storageFlags
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download prebuilt databases from GitHub code scanning or archive storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := repository.Parse(repo)
			if err != nil {
				return err
			}

			var source codeql.DatabaseSource
			switch from {
			case "github":
				client, err := a.github(ctx)
				if err != nil {
					return err
				}
				source = client
			case "storage":
				backend, err := a.requireStorage(ctx, &store)
				if err != nil {
					return err
				}
				defer closeStorage(a, backend)
				source = &codeql.StorageSource{Backend: backend}
			default:
				return fmt.Errorf("unknown source %q (supported: github, storage)", from)
			}

			dl, err := codeql.NewDownloader(codeql.DownloaderConfig{
				Source:      source,
				KeepArchive: keepArchive,
				Env:         a.env,
				Logger:      a.logger,
			})
			if err != nil {
				return err
			}

			if list || len(languages) == 0 {
				remotes, err := dl.List(ctx, r)
				if err != nil {
					return err
				}
				if list {
					return a.printRemotes(remotes)
				}
				for _, remote := range remotes {
					languages = append(languages, remote.Language)
				}
			}

			var (
				mu  sync.Mutex
				dbs []*codeql.Database
			)
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(max(jobs, 1))
			for _, language := range languages {
				g.Go(func() error {
					db, err := dl.DownloadLanguage(gctx, r, language)
					a.metrics.ObserveDownload(codeql.CanonicalizeLanguage(language).ID(), err)
					if err != nil {
						return fmt.Errorf("%s: %w", language, err)
					}
					mu.Lock()
					dbs = append(dbs, db)
					mu.Unlock()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			if a.format == "json" {
				out := make([]any, 0, len(dbs))
				for _, db := range dbs {
					out = append(out, db.Metadata())
				}
				return writeJSON(a.stdout, out)
			}
			for _, db := range dbs {
				if _, err := fmt.Fprintf(a.stdout, "Downloaded %s\n", db); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&repo, "repo", "", "repository to download databases for (owner/repo)")
	cmd.Flags().StringSliceVarP(&languages, "language", "l", nil, "languages to download (default: all available)")
	cmd.Flags().StringVar(&from, "from", "github", "database source: github or storage")
	cmd.Flags().BoolVar(&keepArchive, "keep-archive", false, "keep the downloaded zip next to the extracted database")
	cmd.Flags().BoolVar(&list, "list", false, "only list the available databases")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 2, "concurrent downloads")
	store.register(cmd)
	_ = cmd.MarkFlagRequired("repo") //nolint:errcheck // Flag is registered above
	return cmd
}

func (a *app) printRemotes(remotes []codeql.RemoteDatabase) error {
	if a.format == "json" {
		return writeJSON(a.stdout, remotes)
	}
	rows := make([][]string, 0, len(remotes))
	for _, r := range remotes {
		rows = append(rows, []string{r.Language, humanSize(r.Size), r.Route})
	}
	return writeTable(a.stdout, []string{"LANGUAGE", "SIZE", "LOCATION"}, rows)
}

func newDatabasesPublishCmd(a *app) *cobra.Command {
	var (
		repo  string
		store storageFlags
	)

	cmd := &cobra.Command{
		Use:   "publish <database>...",
		Short: "Archive databases into the configured storage",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			backend, err := a.requireStorage(ctx, &store)
			if err != nil {
				return err
			}
			defer closeStorage(a, backend)
			source := &codeql.StorageSource{Backend: backend}

			for _, path := range args {
				name, err := a.publishDatabase(ctx, source, path, repo)
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintf(a.stdout, "Published %s to %s:%s\n", path, backend.Type(), name); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&repo, "repo", "", "repository the databases belong to (default: from the database location)")
	store.register(cmd)
	return cmd
}

func (a *app) publishDatabase(ctx context.Context, source *codeql.StorageSource, path, repo string) (string, error) {
	db, err := codeql.LoadDatabase(path)
	if err != nil {
		return "", err
	}

	r, err := parseRepo(repo)
	if err != nil {
		return "", err
	}
	if r == nil {
		r = db.Repository()
	}
	if r == nil {
		return "", fmt.Errorf("%s: no repository known, pass --repo", path)
	}
	return source.Publish(ctx, db, *r)
}
