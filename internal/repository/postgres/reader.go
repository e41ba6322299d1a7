package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/repository"
	"github.com/jackc/pgx/v5"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}

func collectProducts(rows pgx.Rows, opn string) ([]models.Product, error) {
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to scan product: %w", opn, err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration error: %w", opn, err)
	}

	return products, nil
}

// ListCategories returns every category that has at least one product.
func (r *Repository) ListCategories(ctx context.Context) ([]string, error) {
	const opn = "repository.postgres.ListCategories"

	rows, err := r.pool.Query(ctx, "SELECT DISTINCT category FROM products ORDER BY category")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opn, err)
	}

	categories, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%s: failed to scan categories: %w", opn, err)
	}

	return categories, nil
}

// ListProducts returns the most recently updated products matching filter.
// The name search is case-insensitive.
func (r *Repository) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	const opn = "repository.postgres.ListProducts"

	rows, err := r.pool.Query(ctx, "SELECT "+productColumns+` FROM products
		WHERE ($1 = '' OR category = $1) AND ($2 = '' OR name ILIKE '%' || $2 || '%')
		ORDER BY last_updated_at DESC, id DESC LIMIT $3`,
		filter.Category, filter.Search, normalizeLimit(filter.Limit))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query products: %w", opn, err)
	}

	return collectProducts(rows, opn)
}

// GetProduct returns repository.ErrProductNotFound for unknown ids.
func (r *Repository) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	const opn = "repository.postgres.GetProduct"

	product, err := scanProduct(r.pool.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrProductNotFound
		}
		return nil, fmt.Errorf("%s: %w", opn, err)
	}

	return product, nil
}

// PriceHistory returns the entries observed at or after since, oldest first.
func (r *Repository) PriceHistory(
	ctx context.Context,
	productID int64,
	since time.Time,
) ([]models.PriceHistoryEntry, error) {
	const opn = "repository.postgres.PriceHistory"

	rows, err := r.pool.Query(ctx, `SELECT id, product_id, price, observed_at FROM price_history
		WHERE product_id = $1 AND observed_at >= $2 ORDER BY observed_at ASC, id ASC`, productID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query history: %w", opn, err)
	}
	defer rows.Close()

	var history []models.PriceHistoryEntry
	for rows.Next() {
		var h models.PriceHistoryEntry
		if err = rows.Scan(&h.ID, &h.ProductID, &h.Price, &h.ObservedAt); err != nil {
			return nil, fmt.Errorf("%s: failed to scan history entry: %w", opn, err)
		}
		history = append(history, h)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration error: %w", opn, err)
	}

	return history, nil
}

// ProductStats summarizes the full history of a product.
func (r *Repository) ProductStats(ctx context.Context, productID int64) (*models.ProductStats, error) {
	product, err := r.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	history, err := r.PriceHistory(ctx, productID, time.Time{})
	if err != nil {
		return nil, err
	}

	stats := models.NewProductStats(*product, history)
	if stats == nil {
		return nil, repository.ErrHistoryNotFound
	}

	return stats, nil
}

// CategoryReport aggregates the current prices of a category together with its latest run.
func (r *Repository) CategoryReport(ctx context.Context, category string) (*models.CategoryReport, error) {
	const opn = "repository.postgres.CategoryReport"

	report := &models.CategoryReport{Category: category}
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), AVG(current_price), MIN(current_price), MAX(current_price)
		FROM products WHERE category = $1`, category).
		Scan(&report.TotalProducts, &report.AvgPrice, &report.MinPrice, &report.MaxPrice)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to aggregate prices: %w", opn, err)
	}

	run, err := scanRun(r.pool.QueryRow(ctx, "SELECT "+runColumns+
		" FROM collection_runs WHERE category = $1 ORDER BY started_at DESC, id DESC LIMIT 1", category))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("%s: failed to query last run: %w", opn, err)
	default:
		report.LastRun = run
	}

	return report, nil
}
