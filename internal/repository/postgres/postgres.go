// Package postgres implements repository.Store on a pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const connectTimeout = 5 * time.Second

// Repository is the postgres implementation of repository.Store.
type Repository struct {
	productStore

	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewRepository connects to dsn, pings the server and migrates the schema.
func NewRepository(ctx context.Context, log *slog.Logger, dsn string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err = pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to establish connection to database: %w", err)
	}

	if err = initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("DB schema initialization error: %w", err)
	}

	return &Repository{productStore: productStore{q: pool}, pool: pool, log: log}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const migrationQuery = `
	CREATE TABLE IF NOT EXISTS products (
		id BIGSERIAL PRIMARY KEY,
		platform_id TEXT UNIQUE,
		url TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		image_url TEXT,
		category TEXT NOT NULL,
		current_price DOUBLE PRECISION NOT NULL CHECK (current_price > 0),
		original_price DOUBLE PRECISION,
		discount_percent DOUBLE PRECISION,
		first_seen_at TIMESTAMPTZ NOT NULL,
		last_updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS price_history (
		id BIGSERIAL PRIMARY KEY,
		product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		price DOUBLE PRECISION NOT NULL,
		observed_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS collection_runs (
		id BIGSERIAL PRIMARY KEY,
		category TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		total_products_seen INTEGER NOT NULL DEFAULT 0,
		total_new INTEGER NOT NULL DEFAULT 0,
		total_updated INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL CHECK (status IN ('in_progress', 'success', 'error')),
		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);
	CREATE INDEX IF NOT EXISTS idx_history_product ON price_history(product_id, observed_at);
	CREATE INDEX IF NOT EXISTS idx_runs_category ON collection_runs(category, started_at);
	`
	if _, err := pool.Exec(ctx, migrationQuery); err != nil {
		return fmt.Errorf("failed to execute migration query: %w", err)
	}

	return nil
}

// Close releases every pooled connection.
func (r *Repository) Close() error {
	r.pool.Close()
	r.log.Debug("postgres pool closed", "op", "repository.postgres.Close")

	return nil
}

// Pool is a getter for the connection pool.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}
