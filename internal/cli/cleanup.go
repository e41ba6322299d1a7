package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Houeta/pricewatch/internal/pricing"
	"github.com/Houeta/pricewatch/internal/repository"
	"github.com/spf13/cobra"
)

type cleanupOptions struct {
	days        int
	historyDays int
	dryRun      bool
}

func newCleanupCmd(a *app) *cobra.Command {
	var opts cleanupOptions

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete stale products and old price history",
		Long: `Deletes products that were not seen for --days days together with their history.
With --history-days, history entries older than that are pruned as well; the latest
entry of every product is always kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.days <= 0 {
				return fmt.Errorf("--days must be positive, got %d", opts.days)
			}
			if opts.historyDays < 0 {
				return fmt.Errorf("--history-days must not be negative, got %d", opts.historyDays)
			}

			store, err := openStore(cmd.Context(), a.log, a.cfg.Storage)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			return cleanup(cmd.Context(), cmd.OutOrStdout(), store, opts, time.Now().UTC())
		},
	}

	cmd.Flags().IntVar(&opts.days, "days", 0, "delete products not updated for this many days")
	cmd.Flags().IntVar(&opts.historyDays, "history-days", 0, "prune price history older than this many days")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "only list what would be deleted")
	_ = cmd.MarkFlagRequired("days")

	return cmd
}

func cleanup(ctx context.Context, w io.Writer, store repository.Maintenance, opts cleanupOptions, now time.Time) error {
	staleBefore := now.AddDate(0, 0, -opts.days)

	if opts.dryRun {
		stale, err := store.ListStaleProducts(ctx, staleBefore)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "%d products not updated since %s would be deleted\n", len(stale), staleBefore.Format(time.DateOnly))
		for _, p := range stale {
			fmt.Fprintf(w, "  #%d %s (R$ %s, last updated %s)\n",
				p.ID, p.Name, pricing.FormatBRL(p.CurrentPrice), p.LastUpdatedAt.Format(time.DateOnly))
		}
		return nil
	}

	deleted, err := store.DeleteStaleProducts(ctx, staleBefore)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "deleted %d stale products\n", deleted)

	if opts.historyDays > 0 {
		pruned, pruneErr := store.PruneHistory(ctx, now.AddDate(0, 0, -opts.historyDays))
		if pruneErr != nil {
			return pruneErr
		}
		fmt.Fprintf(w, "pruned %d price history entries\n", pruned)
	}

	return nil
}
