package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/data-douser/ghastoolkit-go/internal/codeql"
)

func newPacksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "packs",
		Aliases: []string{"pack"},
		Short:   "Inspect, resolve and download CodeQL packs",
	}
	cmd.AddCommand(
		newPacksListCmd(a),
		newPacksResolveCmd(a),
		newPacksDownloadCmd(a),
		newPacksQueriesCmd(a),
	)
	return cmd
}

func (a *app) printPacks(packs codeql.Packs) error {
	if a.format == "json" {
		type packInfo struct {
			Name    string `json:"name"`
			Version string `json:"version"`
			Type    string `json:"type"`
			Path    string `json:"path,omitempty"`
		}
		out := make([]packInfo, 0, len(packs))
		for _, p := range packs {
			out = append(out, packInfo{Name: p.FullName(), Version: p.Version(), Type: p.Type.String(), Path: p.Path})
		}
		return writeJSON(a.stdout, out)
	}

	rows := make([][]string, 0, len(packs))
	for _, p := range packs {
		rows = append(rows, []string{p.FullName(), p.Version(), p.Type.String(), p.Path})
	}
	return writeTable(a.stdout, []string{"PACK", "VERSION", "TYPE", "PATH"}, rows)
}

func newPacksListCmd(a *app) *cobra.Command {
	var packType string

	cmd := &cobra.Command{
		Use:   "list [dir]",
		Short: "List packs under a directory, or the packs the CLI can see",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				packs codeql.Packs
				err   error
			)
			if len(args) == 1 {
				packs, err = codeql.LoadPacks(args[0])
			} else {
				var cli *codeql.CLI
				if cli, err = a.codeql(); err != nil {
					return err
				}
				packs, err = cli.ResolvePacks(cmd.Context())
			}
			if err != nil {
				return err
			}

			if packType != "" {
				t, err := parsePackType(packType)
				if err != nil {
					return err
				}
				packs = packs.OfType(t)
			}
			return a.printPacks(packs)
		},
	}
	cmd.Flags().StringVar(&packType, "type", "", "only list packs of this type: library, queries, models or testing")
	return cmd
}

func parsePackType(s string) (codeql.PackType, error) {
	for _, t := range []codeql.PackType{codeql.PackTypeLibrary, codeql.PackTypeQueries, codeql.PackTypeModels, codeql.PackTypeTesting} {
		if t.String() == s {
			return t, nil
		}
	}
	return codeql.PackTypeUnknown, fmt.Errorf("unknown pack type %q", s)
}

func newPacksResolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <pack>...",
		Short: "Resolve pack references against local paths and the package cache",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver := a.packResolver()
			packs := make(codeql.Packs, 0, len(args))
			for _, ref := range args {
				pack, err := resolver.Resolve(ref)
				if err != nil {
					return err
				}
				if pack.IsReference() {
					a.logger.Warn("pack not found locally", "pack", ref, "cache", resolver.PackagesRoot())
				}
				packs = append(packs, pack)
			}
			return a.printPacks(packs)
		},
	}
}

func newPacksDownloadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "download <pack>...",
		Short: "Download packs from the registry into the package cache",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := a.codeql()
			if err != nil {
				return err
			}
			resolver := a.packResolver()

			packs := make(codeql.Packs, 0, len(args))
			for _, ref := range args {
				spec, err := codeql.ParseQuerySpecifier(ref)
				if err != nil {
					return err
				}
				if err := cli.Pack(codeql.NewPackReference(spec)).Download(cmd.Context()); err != nil {
					return err
				}
				pack, err := resolver.ResolveSpecifier(spec)
				if err != nil {
					return err
				}
				packs = append(packs, pack)
			}
			return a.printPacks(packs)
		},
	}
}

func newPacksQueriesCmd(a *app) *cobra.Command {
	var suite string

	cmd := &cobra.Command{
		Use:   "queries <pack>",
		Short: "List the queries a pack suite selects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := a.codeql()
			if err != nil {
				return err
			}
			pack, err := a.packResolver().Resolve(args[0])
			if err != nil {
				return err
			}

			if pack.Path != "" {
				cli = cli.WithSearchPaths(pack.Path)
			}
			queries, err := cli.Pack(pack).ResolveQueries(cmd.Context(), suite)
			if err != nil {
				return err
			}
			if a.format == "json" {
				return writeJSON(a.stdout, queries)
			}
			for _, q := range queries {
				if _, err := fmt.Fprintln(a.stdout, q); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&suite, "suite", "", "suite within the pack (default: the pack's default queries)")
	return cmd
}
