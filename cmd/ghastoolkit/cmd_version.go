package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/data-douser/ghastoolkit-go/internal/codeql"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CodeQL CLI version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := a.codeql()
			if err != nil {
				return err
			}
			version, err := cli.Version(cmd.Context())
			if err != nil {
				return err
			}
			if a.format == "json" {
				return writeJSON(a.stdout, map[string]string{"version": version, "path": cli.Path()})
			}
			_, err = fmt.Fprintf(a.stdout, "codeql %s (%s)\n", version, cli.Path())
			return err
		},
	}
}

func newLanguagesCmd(a *app) *cobra.Command {
	var secondary, extractors bool

	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List the languages the CodeQL CLI can extract",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := a.codeql()
			if err != nil {
				return err
			}

			if extractors {
				exts, err := cli.Extractors(cmd.Context())
				if err != nil {
					return err
				}
				if a.format == "json" {
					return writeJSON(a.stdout, exts)
				}
				rows := make([][]string, 0, len(exts))
				for _, e := range exts {
					rows = append(rows, []string{e.Name, e.DisplayName, e.Version, e.Path})
				}
				return writeTable(a.stdout, []string{"NAME", "DISPLAY NAME", "VERSION", "PATH"}, rows)
			}

			var langs []codeql.Language
			if secondary {
				langs, err = cli.SecondaryLanguages(cmd.Context())
			} else {
				langs, err = cli.Languages(cmd.Context())
			}
			if err != nil {
				return err
			}

			if a.format == "json" {
				ids := make([]string, 0, len(langs))
				for _, l := range langs {
					ids = append(ids, l.ID())
				}
				return writeJSON(a.stdout, ids)
			}
			rows := make([][]string, 0, len(langs))
			for _, l := range langs {
				rows = append(rows, []string{l.ID(), l.Name()})
			}
			return writeTable(a.stdout, []string{"LANGUAGE", "NAME"}, rows)
		},
	}
	cmd.Flags().BoolVar(&secondary, "secondary", false, "list secondary languages (yaml, html, ...)")
	cmd.Flags().BoolVar(&extractors, "extractors", false, "show extractor details")
	return cmd
}
