package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

// Repository is the sqlite implementation of repository.Store.
// Product operations outside a transaction run directly against the pool.
type Repository struct {
	productStore

	db  *sql.DB
	log *slog.Logger
}

// NewRepository opens (or creates) the database file at storagePath and migrates the schema.
func NewRepository(ctx context.Context, log *slog.Logger, storagePath string) (*Repository, error) {
	dsn := fmt.Sprintf(
		"file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate",
		storagePath,
	)

	dtb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Check if the connection is actually established.
	if err = dtb.PingContext(ctx); err != nil {
		dtb.Close()
		return nil, fmt.Errorf("unable to establish connection to database: %w", err)
	}

	if err = initSchema(ctx, dtb); err != nil {
		dtb.Close()
		return nil, fmt.Errorf("DB schema initialization error: %w", err)
	}

	return &Repository{productStore: productStore{q: dtb}, db: dtb, log: log}, nil
}

// NewForTest wraps an existing handle without touching the schema.
func NewForTest(dtb *sql.DB) *Repository {
	return &Repository{
		productStore: productStore{q: dtb},
		db:           dtb,
		log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// initSchema creates the necessary tables if they don't already exist.
func initSchema(ctx context.Context, dtb *sql.DB) error {
	const migrationQuery = `
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		platform_id TEXT UNIQUE,
		url TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		image_url TEXT,
		category TEXT NOT NULL,
		current_price REAL NOT NULL CHECK (current_price > 0),
		original_price REAL,
		discount_percent REAL,
		first_seen_at DATETIME NOT NULL,
		last_updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS price_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		price REAL NOT NULL,
		observed_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS collection_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		category TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
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
	_, err := dtb.ExecContext(ctx, migrationQuery)
	if err != nil {
		return fmt.Errorf("failed to execute migration query: %w", err)
	}

	return nil
}

// Close closes the connection to the database.
func (r *Repository) Close() error {
	if err := r.db.Close(); err != nil {
		r.log.Error("failed to close the database", "op", "repository.sqlite.Close", "error", err)
		return fmt.Errorf("failed to close the database: %w", err)
	}

	return nil
}

// DB is a getter for database handler.
func (r *Repository) DB() *sql.DB {
	return r.db
}
