package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voyagen/tvlineup/internal/logo"
	"github.com/voyagen/tvlineup/internal/service"
)

func newSyncCmd(a *app) *cobra.Command {
	var inputID, feedLocation string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile one input source with a lineup document",
		Long: `Sync loads a lineup (YAML, JSON or M3U; local path or http(s) URL),
reconciles the catalog partition of the input source with it and stores the
programs the lineup carries. Without REDIS_URL, logo fetches finish before
the command exits.`,
		Example: `  tvlineup sync --feed lineup.yaml
  tvlineup sync --input com.example.tuner/.Input --feed https://example.com/channels.m3u`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			defer a.close()
			if err := a.open(ctx); err != nil {
				return err
			}

			pool := logo.NewPool(a.fetcher(), a.cfg.LogoWorkers)
			defer pool.Wait()

			rep, err := service.Ingest(ctx, a.store, a.reconciler(pool), feedLocation, inputID, a.cfg.UserAgent, a.cfg.Timeout)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(rep); err != nil {
				return fmt.Errorf("encode report: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inputID, "input", "", "input source id (overrides input_id in the document)")
	cmd.Flags().StringVar(&feedLocation, "feed", "", "lineup document path or URL")
	_ = cmd.MarkFlagRequired("feed")
	return cmd
}
