package main

import (
	"github.com/spf13/cobra"

	"github.com/data-douser/ghastoolkit-go/internal/codeql"
	"github.com/data-douser/ghastoolkit-go/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		host        string
		port        int
		root        string
		endpointURL string
		store       storageFlags
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve database listings and archives over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			backend, err := a.initStorage(ctx, &store)
			if err != nil {
				return err
			}
			defer closeStorage(a, backend)

			if !cmd.Flags().Changed("host") {
				host = a.cfg.Server.Host
			}
			if !cmd.Flags().Changed("port") {
				port = a.cfg.Server.Port
			}
			if root == "" {
				root = codeql.DatabasesRoot(a.env)
			}

			srv := server.New(server.Config{
				Host:          host,
				Port:          port,
				DatabasesRoot: root,
				EndpointURL:   endpointURL,
			}, backend, a.metrics.Handler(), a.logger)
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "host to bind to (default: 127.0.0.1)")
	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (default: 8070)")
	cmd.Flags().StringVar(&root, "databases", "", "databases root to list (default: $CODEQL_DATABASES or ~/.codeql/databases)")
	cmd.Flags().StringVar(&endpointURL, "endpoint-url", "", "base URL for archive download links (default: http://<host>:<port>)")
	store.register(cmd)
	return cmd
}
