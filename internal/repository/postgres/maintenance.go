package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Houeta/pricewatch/internal/models"
)

// ListStaleProducts returns products not updated since olderThan.
func (r *Repository) ListStaleProducts(ctx context.Context, olderThan time.Time) ([]models.Product, error) {
	const opn = "repository.postgres.ListStaleProducts"

	rows, err := r.pool.Query(ctx,
		"SELECT "+productColumns+" FROM products WHERE last_updated_at < $1 ORDER BY last_updated_at",
		olderThan.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opn, err)
	}

	return collectProducts(rows, opn)
}

// DeleteStaleProducts removes products not updated since olderThan. History rows cascade.
func (r *Repository) DeleteStaleProducts(ctx context.Context, olderThan time.Time) (int64, error) {
	const opn = "repository.postgres.DeleteStaleProducts"

	tag, err := r.pool.Exec(ctx, "DELETE FROM products WHERE last_updated_at < $1", olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", opn, err)
	}

	return tag.RowsAffected(), nil
}

// PruneHistory drops entries older than olderThan but keeps the latest entry of each product.
func (r *Repository) PruneHistory(ctx context.Context, olderThan time.Time) (int64, error) {
	const opn = "repository.postgres.PruneHistory"

	tag, err := r.pool.Exec(ctx, `DELETE FROM price_history
		WHERE observed_at < $1
		AND id NOT IN (SELECT MAX(id) FROM price_history GROUP BY product_id)`, olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", opn, err)
	}

	return tag.RowsAffected(), nil
}
