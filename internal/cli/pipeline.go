package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Houeta/pricewatch/internal/config"
	"github.com/Houeta/pricewatch/internal/fetcher"
	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/parser"
	"github.com/Houeta/pricewatch/internal/repository"
	"github.com/Houeta/pricewatch/internal/services/collector"
	"github.com/Houeta/pricewatch/internal/services/reconciler"
	"github.com/Houeta/pricewatch/internal/snapshot"
)

// runCategory executes one collection run with a dedicated fetcher, so browser sessions
// and cookie jars are never shared between concurrent runs.
func runCategory(
	ctx context.Context,
	log *slog.Logger,
	cfg *config.Config,
	store repository.Store,
	req collector.RunRequest,
) models.RunResult {
	f, err := fetcher.New(log, cfg.Fetch)
	if err != nil {
		log.ErrorContext(ctx, "failed to build fetcher", "category", req.Category, "error", err)
		return models.RunResult{
			Category: req.Category,
			Status:   models.RunError,
			Error:    fmt.Sprintf("failed to build fetcher: %v", err),
		}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			log.WarnContext(ctx, "failed to close fetcher", "error", cerr)
		}
	}()

	c := collector.New(
		log,
		f,
		parser.NewParser(log, f, cfg.Extract),
		reconciler.New(log, store),
		store,
		collector.Options{
			InterPageDelay:         cfg.Collect.InterPageDelay,
			MaxConsecutiveFailures: cfg.Collect.MaxConsecutiveFailures,
			PageParam:              cfg.Collect.PageParam,
			MaxRetries:             cfg.Fetch.MaxRetries,
		},
	)
	if cfg.Collect.SnapshotDir != "" {
		c.WithSnapshots(snapshot.NewSaver(log, cfg.Collect.SnapshotDir))
	}

	return c.Run(ctx, req)
}

func requestFor(cat config.Category) collector.RunRequest {
	return collector.RunRequest{
		Category:     cat.Name,
		URL:          cat.URL,
		MaxPages:     cat.MaxPages,
		PerPageLimit: cat.MaxProductsPerPage,
		MaxProducts:  cat.MaxProducts,
	}
}
