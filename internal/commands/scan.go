package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hray3182/remindbot/internal/app"
)

func addScan(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "run one notification scan and exit",
		Long: `Notify every reminder due within the lookahead window that has not been
notified yet, then exit. Meant for an external cron when the in-process
schedule is disabled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := ro.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			stores, err := app.OpenStores(ctx, cfg.Database, log)
			if err != nil {
				return err
			}
			defer stores.Close()

			_, notifier, err := app.NewTelegram(cfg, log)
			if err != nil {
				return err
			}

			sum, err := app.NewScanner(cfg.Scan, stores.Reminders, notifier, log).Run(ctx, time.Now())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "candidates=%d notified=%d failed=%d skipped=%d\n",
				sum.Candidates, sum.Notified, sum.Failed, sum.Skipped)
			return nil
		},
	}

	topLevel.AddCommand(cmd)
}
