package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/Houeta/pricewatch/internal/models"
)

// ListStaleProducts returns products not updated since olderThan.
func (r *Repository) ListStaleProducts(ctx context.Context, olderThan time.Time) ([]models.Product, error) {
	const opn = "repository.sqlite.ListStaleProducts"

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE last_updated_at < ? ORDER BY last_updated_at",
		olderThan.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opn, err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, scanErr := scanProduct(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("%s: failed to scan product: %w", opn, scanErr)
		}
		products = append(products, *p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration error: %w", opn, err)
	}

	return products, nil
}

// DeleteStaleProducts removes products not updated since olderThan. History rows cascade.
func (r *Repository) DeleteStaleProducts(ctx context.Context, olderThan time.Time) (int64, error) {
	const opn = "repository.sqlite.DeleteStaleProducts"

	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE last_updated_at < ?", olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", opn, err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to read affected rows: %w", opn, err)
	}

	return deleted, nil
}

// PruneHistory drops entries older than olderThan but always keeps the latest entry of each product,
// so current_price stays mirrored in history.
func (r *Repository) PruneHistory(ctx context.Context, olderThan time.Time) (int64, error) {
	const opn = "repository.sqlite.PruneHistory"

	res, err := r.db.ExecContext(ctx, `DELETE FROM price_history
		WHERE observed_at < ?
		AND id NOT IN (SELECT MAX(id) FROM price_history GROUP BY product_id)`, olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", opn, err)
	}

	pruned, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to read affected rows: %w", opn, err)
	}

	return pruned, nil
}
