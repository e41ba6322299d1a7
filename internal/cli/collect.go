package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/Houeta/pricewatch/internal/config"
	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/repository"
	"github.com/Houeta/pricewatch/internal/services/collector"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"
)

type collectOptions struct {
	parallel int
	interval time.Duration
}

func newCollectCmd(a *app) *cobra.Command {
	var opts collectOptions

	cmd := &cobra.Command{
		Use:   "collect [category...]",
		Short: "Collect configured categories",
		Long: `Runs the configured categories, all of them when none is named.
Categories run one after another unless --parallel is greater than 1.
With --interval the batch repeats until the process is interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			categories, err := selectCategories(a.cfg, args)
			if err != nil {
				return err
			}
			if opts.parallel < 1 {
				return fmt.Errorf("--parallel must be at least 1, got %d", opts.parallel)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := openStore(ctx, a.log, a.cfg.Storage)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			b := &batch{log: a.log, cfg: a.cfg, store: store, parallel: opts.parallel, run: runCategory}

			if opts.interval <= 0 {
				return printBatch(cmd, b.collect(ctx, categories))
			}

			return b.repeat(ctx, categories, opts.interval)
		},
	}

	cmd.Flags().IntVarP(&opts.parallel, "parallel", "p", 1, "number of categories collected concurrently")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "repeat the batch on this interval (e.g. 6h)")

	return cmd
}

// selectCategories resolves named categories against the configuration, keeping the given order.
func selectCategories(cfg *config.Config, names []string) ([]config.Category, error) {
	if len(names) == 0 {
		if len(cfg.Categories) == 0 {
			return nil, config.ErrNoCategories
		}
		return cfg.Categories, nil
	}

	selected := make([]config.Category, 0, len(names))
	for _, name := range names {
		cat, ok := cfg.Category(name)
		if !ok {
			return nil, fmt.Errorf("unknown category %q", name)
		}
		selected = append(selected, cat)
	}

	return selected, nil
}

type runFunc func(
	ctx context.Context,
	log *slog.Logger,
	cfg *config.Config,
	store repository.Store,
	req collector.RunRequest,
) models.RunResult

type batch struct {
	log      *slog.Logger
	cfg      *config.Config
	store    repository.Store
	parallel int
	run      runFunc
}

func (b *batch) collect(ctx context.Context, categories []config.Category) []models.RunResult {
	log := b.log.With("op", "cli.collect", "batch_id", uuid.NewString())
	log.InfoContext(ctx, "collection batch started", "categories", len(categories), "parallel", b.parallel)

	if b.parallel > 1 {
		p := pool.NewWithResults[models.RunResult]().WithMaxGoroutines(b.parallel)
		for _, cat := range categories {
			p.Go(func() models.RunResult {
				return b.run(ctx, log, b.cfg, b.store, requestFor(cat))
			})
		}
		return p.Wait()
	}

	results := make([]models.RunResult, 0, len(categories))
	for i, cat := range categories {
		if i > 0 {
			if err := sleepContext(ctx, b.cfg.Collect.InterCategoryDelay); err != nil {
				log.WarnContext(ctx, "collection batch interrupted", "error", err)
				break
			}
		}
		results = append(results, b.run(ctx, log, b.cfg, b.store, requestFor(cat)))
	}

	return results
}

// repeat runs the batch immediately and then on every tick until ctx is canceled.
func (b *batch) repeat(ctx context.Context, categories []config.Category, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for _, res := range b.collect(ctx, categories) {
			if res.Status == models.RunError {
				b.log.WarnContext(ctx, "category run failed", "category", res.Category, "error", res.Error)
			}
		}

		select {
		case <-ctx.Done():
			b.log.InfoContext(ctx, "scheduled collection stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func printBatch(cmd *cobra.Command, results []models.RunResult) error {
	failed := 0
	for _, res := range results {
		if err := printResult(cmd.OutOrStdout(), res); err != nil {
			return err
		}
		if res.Status == models.RunError {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d categories", errRunFailed, failed, len(results))
	}

	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
