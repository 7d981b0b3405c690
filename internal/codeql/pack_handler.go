package codeql

import (
	"context"
	"encoding/json"
)

// PackHandler runs codeql pack commands for a single pack.
type PackHandler struct {
	pack *Pack
	cli  *CLI
}

// Pack returns a handler for pack.
func (c *CLI) Pack(pack *Pack) *PackHandler {
	return &PackHandler{pack: pack, cli: c}
}

// Download fetches the pack into the package cache with `codeql pack download`.
func (h *PackHandler) Download(ctx context.Context) error {
	_, err := h.cli.Run(ctx, "pack", "download", h.pack.Reference())
	return err
}

// Install installs the dependencies of a local pack with `codeql pack install`.
func (h *PackHandler) Install(ctx context.Context) error {
	if h.pack.Path == "" {
		return &PackError{Path: h.pack.Reference(), Msg: "pack has no local path to install"}
	}
	_, err := h.cli.Run(ctx, "pack", "install", h.pack.Path)
	return err
}

// ResolveQueries lists the queries selected by suite within the pack, relative
// to the pack directory. An empty suite uses the pack's default queries.
func (h *PackHandler) ResolveQueries(ctx context.Context, suite string) ([]string, error) {
	args := []string{"resolve", "queries", "--format=json"}
	args = append(args, h.cli.searchPathArgs()...)
	args = append(args, h.cli.additionalPacksArgs()...)
	args = append(args, h.pack.Suite(suite).String())

	out, err := h.cli.Silent().Run(ctx, args...)
	if err != nil {
		return nil, err
	}

	var queries []string
	if err := json.Unmarshal([]byte(out), &queries); err != nil {
		return nil, &FormatError{Path: "codeql resolve queries", Format: "json", Err: err}
	}
	for i, q := range queries {
		queries[i] = h.pack.Relative(q)
	}
	return queries, nil
}
