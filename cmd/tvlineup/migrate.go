package main

import (
	"github.com/spf13/cobra"

	"github.com/voyagen/tvlineup/internal/logging"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.migrate(cmd.Context()); err != nil {
				return err
			}
			logging.FromContext(cmd.Context()).Info().Msg("migrations applied")
			return nil
		},
	}
}
