package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Houeta/pricewatch/internal/config"
	"github.com/Houeta/pricewatch/internal/repository"
	"github.com/Houeta/pricewatch/internal/repository/postgres"
	"github.com/Houeta/pricewatch/internal/repository/sqlite"
)

// openStore opens the configured backend. Failing to open or ping it is fatal for every command.
func openStore(ctx context.Context, log *slog.Logger, cfg config.Storage) (repository.Store, error) {
	const opn = "cli.openStore"

	switch cfg.Driver {
	case config.DriverSQLite:
		repo, err := sqlite.NewRepository(ctx, log, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", opn, err)
		}
		return repo, nil
	case config.DriverPostgres:
		repo, err := postgres.NewRepository(ctx, log, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", opn, err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("%s: %w", opn, config.ErrUnknownDriver)
	}
}
