package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/voyagen/tvlineup/internal/cache"
	"github.com/voyagen/tvlineup/internal/logo"
)

func newLogoWorkerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logo-worker",
		Short: "Fetch queued channel logos",
		Long: `Logo-worker consumes logo jobs queued by "serve" and "sync" from Redis
and copies each logo into the configured sink until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.RedisURL == "" {
				return errors.New("logo-worker needs REDIS_URL")
			}
			ctx := cmd.Context()
			defer a.close()
			if err := a.open(ctx); err != nil {
				return err
			}

			logo.Work(ctx, a.rds, cache.LogoQueue, a.fetcher(), a.cfg.LogoWorkers)
			return nil
		},
	}
}
