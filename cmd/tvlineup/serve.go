package main

import (
	"github.com/spf13/cobra"

	"github.com/voyagen/tvlineup/internal/logo"
	"github.com/voyagen/tvlineup/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve runs the HTTP API on SERVER_PORT. Without REDIS_URL, logos are
fetched in-process; with it, they are queued for "tvlineup logo-worker".`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			defer a.close()
			if err := a.open(ctx); err != nil {
				return err
			}

			pool := logo.NewPool(a.fetcher(), a.cfg.LogoWorkers)
			defer pool.Wait()

			srv := server.New(a.store, a.reconciler(pool), a.sink, a.cfg)
			return srv.ListenAndServe(ctx)
		},
	}
}
