package commands

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hray3182/remindbot/internal/ai"
	"github.com/hray3182/remindbot/internal/app"
	"github.com/hray3182/remindbot/internal/bot"
	"github.com/hray3182/remindbot/internal/bot/handlers"
	"github.com/hray3182/remindbot/internal/scheduler"
	"github.com/hray3182/remindbot/internal/server"
)

func addServe(topLevel *cobra.Command, ro *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the bot, the scan trigger endpoint and the scan schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := ro.load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			stores, err := app.OpenStores(ctx, cfg.Database, log)
			if err != nil {
				return err
			}
			defer stores.Close()

			svc, err := app.NewService(cfg, stores.Reminders, log)
			if err != nil {
				return err
			}
			api, notifier, err := app.NewTelegram(cfg, log)
			if err != nil {
				return err
			}

			scanner := app.NewScanner(cfg.Scan, stores.Reminders, notifier, log)
			sched := scheduler.New(scanner, cfg.Scan.Schedule, svc.Location(), log)
			svc.OnCreate(sched.ReminderCreated)

			var parser handlers.IntentParser
			if cfg.AI.APIKey != "" {
				parser = ai.New(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model)
				log.Info().Str("model", cfg.AI.Model).Msg("ai fallback enabled")
			} else {
				log.Info().Msg("ai fallback disabled, free text gets the usage hint")
			}
			h := handlers.New(api, stores.Users, svc, parser, log)
			h.SetAITimeout(cfg.AI.Timeout)

			g, gctx := errgroup.WithContext(ctx)
			if cfg.Scan.Enabled {
				g.Go(func() error { return sched.Start(gctx) })
			} else {
				log.Info().Msg("scan schedule disabled, scans run only through the trigger endpoint")
			}
			g.Go(func() error { return server.New(cfg.HTTP.Addr, sched, log).Start(gctx) })
			g.Go(func() error { return bot.New(api, h, log).Start(gctx) })

			err = g.Wait()
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			log.Info().Msg("shut down")
			return nil
		},
	}

	topLevel.AddCommand(cmd)
	return cmd
}
