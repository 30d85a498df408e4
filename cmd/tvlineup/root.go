package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/voyagen/tvlineup/internal/config"
	"github.com/voyagen/tvlineup/internal/logging"
)

type rootFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	a := &app{}

	cmd := &cobra.Command{
		Use:   "tvlineup",
		Short: "Broadcast channel lineup reconciler",
		Long: `tvlineup keeps a channel catalog in agreement with externally supplied
channel lineups, one input source at a time, and serves channels, programs
and logos from the catalog.

Configuration comes from the environment (DATABASE_URL, REDIS_URL, ...),
.env.local / .env files, or a YAML file given with --config.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if flags.logLevel != "" {
				lvl, err := zerolog.ParseLevel(flags.logLevel)
				if err != nil {
					return fmt.Errorf("invalid --log-level: %w", err)
				}
				logging.SetDefault(logging.Default().Level(lvl))
			}
			cfg, err := loadConfig(flags.configPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			a.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "optional config file path (YAML); else use env DATABASE_URL")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (trace, debug, info, warn, error); overrides LOG_LEVEL")

	cmd.AddCommand(
		newServeCmd(a),
		newSyncCmd(a),
		newMigrateCmd(a),
		newLogoWorkerCmd(a),
	)
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}
