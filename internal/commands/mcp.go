package commands

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/hray3182/remindbot/internal/app"
	"github.com/hray3182/remindbot/internal/mcpserver"
)

func addMCP(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "start the Model Context Protocol server on stdio",
		Long: `Launch an MCP server that exposes adding, listing, completing and deleting
reminders. The notification scan tool is only offered when a Telegram token
is configured.`,
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

			svc, err := app.NewService(cfg, stores.Reminders, log)
			if err != nil {
				return err
			}

			var trigger mcpserver.Trigger
			if cfg.Telegram.Token != "" {
				_, notifier, err := app.NewTelegram(cfg, log)
				if err != nil {
					return err
				}
				trigger = app.NewScanner(cfg.Scan, stores.Reminders, notifier, log)
			}

			// stdout carries the protocol; logs stay on stderr.
			return server.ServeStdio(mcpserver.NewServer(svc, trigger).MCPServer())
		},
	}

	topLevel.AddCommand(cmd)
}
