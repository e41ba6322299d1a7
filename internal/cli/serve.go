package cli

import (
	"os/signal"
	"syscall"

	"github.com/Houeta/pricewatch/internal/bot"
	"github.com/Houeta/pricewatch/internal/dashboard"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only dashboards",
		Long: `Serves the HTTP JSON dashboard and, when telegram.token is set,
the Telegram bot. Both only read collected data.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Create a context that will be canceled when an interrupt signal is received.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := openStore(ctx, a.log, a.cfg.Storage)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			if a.cfg.Env != envLocal {
				gin.SetMode(gin.ReleaseMode)
			}
			if addr == "" {
				addr = a.cfg.Dashboard.Addr
			}

			if a.cfg.Tg.Token != "" {
				priceBot, botErr := bot.NewBot(a.log, a.cfg.Tg.Token, a.cfg.Tg.Timeout, store)
				if botErr != nil {
					return botErr
				}
				go priceBot.Start()
				defer priceBot.Stop()
			} else {
				a.log.InfoContext(ctx, "telegram.token is empty, Telegram bot disabled")
			}

			a.log.InfoContext(ctx, "Application started. Press Ctrl+C to stop.")

			if err = dashboard.NewServer(a.log, addr, store).Run(ctx); err != nil {
				return err
			}

			a.log.InfoContext(ctx, "Application stopped gracefully.")

			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: dashboard.addr)")

	return cmd
}
