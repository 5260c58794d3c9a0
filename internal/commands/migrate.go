package commands

import (
	"github.com/spf13/cobra"

	"github.com/hray3182/remindbot/internal/app"
)

func addMigrate(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := ro.load()
			if err != nil {
				return err
			}
			if err := app.Migrate(cmd.Context(), cfg.Database, log); err != nil {
				return err
			}
			log.Info().Msg("migrations completed")
			return nil
		},
	}

	topLevel.AddCommand(cmd)
}
