package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/data-douser/ghastoolkit-go/internal/codeql"
	"github.com/data-douser/ghastoolkit-go/internal/config"
	"github.com/data-douser/ghastoolkit-go/internal/github"
	"github.com/data-douser/ghastoolkit-go/internal/logging"
	"github.com/data-douser/ghastoolkit-go/internal/metrics"
)

// app holds global flags and the objects built from them.
type app struct {
	configPath      string
	codeqlPath      string
	threads         int
	ram             int
	searchPaths     []string
	additionalPacks []string
	suite           string
	debug           bool
	quiet           bool
	format          string
	metricsFile     string

	stdout  io.Writer
	stderr  io.Writer
	env     codeql.Environment
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Collector
}

func newRootCmd() *cobra.Command {
	a := &app{env: codeql.OSEnvironment{}}

	root := &cobra.Command{
		Use:           "ghastoolkit",
		Short:         "Drive the CodeQL CLI and GitHub code scanning databases",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.finish()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default: ~/.codeql/ghastoolkit.yml)")
	flags.StringVar(&a.codeqlPath, "codeql", "", "path to the codeql executable (default: $CODEQL_PATH, $CODEQL_BINARY or $PATH)")
	flags.IntVar(&a.threads, "threads", 0, "threads passed to codeql (0: codeql default)")
	flags.IntVar(&a.ram, "ram", 0, "memory limit in MB passed to codeql (0: codeql default)")
	flags.StringSliceVar(&a.searchPaths, "search-path", nil, "extra directories to search for extractors and packs")
	flags.StringSliceVar(&a.additionalPacks, "additional-packs", nil, "extra directories to search for packs")
	flags.StringVar(&a.suite, "suite", "", "default query suite (default: code-scanning)")
	flags.BoolVar(&a.debug, "debug", false, "enable debug logging")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "do not echo codeql output")
	flags.StringVar(&a.format, "format", "text", "output format: text|json")
	flags.StringVar(&a.metricsFile, "metrics-textfile", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(
		newVersionCmd(a),
		newLanguagesCmd(a),
		newDatabasesCmd(a),
		newPacksCmd(a),
		newResultsCmd(a),
		newServeCmd(a),
	)
	return root
}

// setup loads configuration and builds the logger and metrics.
func (a *app) setup(cmd *cobra.Command) error {
	if a.format != "text" && a.format != "json" {
		return fmt.Errorf("invalid --format %q: expected text or json", a.format)
	}
	if a.stdout == nil {
		a.stdout = cmd.OutOrStdout()
	}
	if a.stderr == nil {
		a.stderr = cmd.ErrOrStderr()
	}

	opts := logging.FromEnv(logging.Options{Writer: a.stderr})
	if a.debug {
		opts.Level = "debug"
	}
	a.logger = logging.New(opts)
	slog.SetDefault(a.logger)

	path := a.configPath
	if path == "" {
		path = config.DefaultPath(a.env)
	}
	cfg, err := config.Load(path, a.env)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.env = cfg.Environment(a.env)
	a.metrics = metrics.New(nil)
	return nil
}

func (a *app) finish() error {
	if a.metricsFile == "" || a.metrics == nil {
		return nil
	}
	if err := a.metrics.WriteTextfile(a.metricsFile); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

// codeql builds the CLI from flags layered over the config file.
func (a *app) codeql() (*codeql.CLI, error) {
	cc := a.cfg.CodeQL

	path := firstNonEmpty(a.codeqlPath, cc.Path)
	suite := firstNonEmpty(a.suite, cc.Suite)
	threads := cc.Threads
	if a.threads != 0 {
		threads = a.threads
	}
	ram := cc.RAM
	if a.ram != 0 {
		ram = a.ram
	}

	return codeql.New(codeql.Config{
		Path:            path,
		Threads:         threads,
		RAM:             ram,
		SearchPaths:     append(append([]string(nil), cc.SearchPaths...), a.searchPaths...),
		AdditionalPacks: append(append([]string(nil), cc.AdditionalPacks...), a.additionalPacks...),
		Token:           cc.RegistryToken,
		Suite:           suite,
		ShowOutput:      !a.quiet && (cc.ShowOutput || a.format == "text"),
		Stdout:          a.stderr,
		Stderr:          a.stderr,
		Env:             a.env,
		Observer:        a.metrics,
		Logger:          a.logger,
	})
}

func (a *app) github(ctx context.Context) (*github.Client, error) {
	return github.New(ctx, github.Config{
		Token:    a.cfg.GitHub.Token,
		Instance: a.cfg.GitHub.Instance,
		Logger:   a.logger,
	})
}

func (a *app) packResolver() *codeql.PackResolver {
	return codeql.NewPackResolver(codeql.PackResolverConfig{Env: a.env, Logger: a.logger})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
