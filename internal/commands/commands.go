// Package commands holds the cobra command tree of the remindbot binary.
package commands

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hray3182/remindbot/internal/config"
	"github.com/hray3182/remindbot/internal/logx"
)

type rootOptions struct {
	configPath string
}

func New() *cobra.Command {
	ro := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "remindbot",
		Short:        "Telegram reminder bot with due-window notifications.",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&ro.configPath, "config", "", "path to a YAML config file (default $REMINDBOT_CONFIG)")

	serve := addServe(cmd, ro)
	// `remindbot` with no subcommand serves.
	cmd.RunE = serve.RunE

	addScan(cmd, ro)
	addMigrate(cmd, ro)
	addMCP(cmd, ro)
	return cmd
}

// load reads and validates the configuration and builds the root logger.
func (ro *rootOptions) load() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(ro.configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}
	log := logx.New(logx.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	return cfg, log, nil
}
