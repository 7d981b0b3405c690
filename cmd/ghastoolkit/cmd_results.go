package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/data-douser/ghastoolkit-go/internal/sarif"
	"github.com/data-douser/ghastoolkit-go/internal/storage"
)

// ResultsPrefix is where result files are stored in the archive storage.
const ResultsPrefix = "results"

func newResultsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Summarize and publish analysis results",
	}
	cmd.AddCommand(newResultsSummaryCmd(a), newResultsPublishCmd(a))
	return cmd
}

func newResultsSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <file.sarif>...",
		Short: "Count results per rule in SARIF files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			counts := make(map[string]int)
			var rules []string
			total := 0
			for _, file := range args {
				log, err := sarif.Load(file)
				if err != nil {
					return err
				}
				for rule, n := range log.CountByRule() {
					if _, seen := counts[rule]; !seen {
						rules = append(rules, rule)
					}
					counts[rule] += n
				}
				total += log.ResultCount()
			}

			if a.format == "json" {
				return writeJSON(a.stdout, map[string]any{"results": total, "rules": counts})
			}
			slices.Sort(rules)
			rows := make([][]string, 0, len(rules))
			for _, rule := range rules {
				rows = append(rows, []string{rule, strconv.Itoa(counts[rule])})
			}
			if _, err := fmt.Fprintf(a.stdout, "%d results\n", total); err != nil {
				return err
			}
			return writeTable(a.stdout, []string{"RULE", "RESULTS"}, rows)
		},
	}
}

func newResultsPublishCmd(a *app) *cobra.Command {
	var (
		prefix string
		store  storageFlags
	)

	cmd := &cobra.Command{
		Use:   "publish <file>...",
		Short: "Copy result files into the configured storage",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			backend, err := a.requireStorage(ctx, &store)
			if err != nil {
				return err
			}
			defer closeStorage(a, backend)

			for _, file := range args {
				name := path.Join(prefix, filepath.Base(file))
				if err := publishFile(ctx, backend, file, name); err != nil {
					return err
				}
				a.logger.Info("published results", "file", file, "object", name)
				if _, err := fmt.Fprintf(a.stdout, "Published %s to %s:%s\n", file, backend.Type(), name); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", ResultsPrefix, "object prefix within the storage")
	store.register(cmd)
	return cmd
}

func publishFile(ctx context.Context, backend storage.Backend, file, name string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer func() {
		_ = f.Close() //nolint:errcheck // Best effort close in defer
	}()

	contentType := "application/octet-stream"
	if filepath.Ext(file) == ".sarif" {
		contentType = "application/sarif+json"
	}
	return backend.PutFile(ctx, name, f, contentType)
}
