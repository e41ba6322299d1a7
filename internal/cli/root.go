// Package cli wires configuration, storage and the collection pipeline into cobra commands.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Houeta/pricewatch/internal/config"
	"github.com/spf13/cobra"
)

// errRunFailed makes the process exit non-zero after a run finished with status error.
var errRunFailed = errors.New("collection run failed")

type app struct {
	cfgFile  string
	logLevel string

	cfg *config.Config
	log *slog.Logger
}

// Execute runs the root command and exits with status 1 on any error.
// This is called by main.main().
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "pricewatch",
		Short: "Price monitoring for Mercado Livre listings.",
		Long: `pricewatch collects product listings of configured Mercado Livre searches,
keeps a price history per product and serves read-only reports over HTTP and Telegram.`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.pricewatch.yaml)")
	rootCmd.PersistentFlags().StringVarP(&a.logLevel, "loglevel", "l", "",
		"Override the environment log level. Available: debug, info, warn, error")

	rootCmd.AddCommand(
		newScrapeCmd(a),
		newCollectCmd(a),
		newServeCmd(a),
		newCleanupCmd(a),
	)

	return rootCmd
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := setupLogger(cmd.ErrOrStderr(), cfg.Env, a.logLevel)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log

	return nil
}
