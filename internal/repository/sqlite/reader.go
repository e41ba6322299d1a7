package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/repository"
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

// ListCategories returns every category that has at least one product.
func (r *Repository) ListCategories(ctx context.Context) ([]string, error) {
	const opn = "repository.sqlite.ListCategories"

	rows, err := r.db.QueryContext(ctx, "SELECT DISTINCT category FROM products ORDER BY category")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opn, err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err = rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("%s: failed to scan category: %w", opn, err)
		}
		categories = append(categories, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration error: %w", opn, err)
	}

	return categories, nil
}

// ListProducts returns the most recently updated products matching filter.
func (r *Repository) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	const opn = "repository.sqlite.ListProducts"

	var (
		where []string
		args  []any
	)
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Search != "" {
		where = append(where, "name LIKE ?")
		args = append(args, "%"+filter.Search+"%")
	}

	query := "SELECT " + productColumns + " FROM products"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY last_updated_at DESC, id DESC LIMIT ?"
	args = append(args, normalizeLimit(filter.Limit))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query products: %w", opn, err)
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

// GetProduct returns repository.ErrProductNotFound for unknown ids.
func (r *Repository) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	const opn = "repository.sqlite.GetProduct"

	product, err := scanProduct(r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	const opn = "repository.sqlite.PriceHistory"

	rows, err := r.db.QueryContext(ctx, `SELECT id, product_id, price, observed_at FROM price_history
		WHERE product_id = ? AND observed_at >= ? ORDER BY observed_at ASC, id ASC`, productID, since.UTC())
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
	const opn = "repository.sqlite.CategoryReport"

	report := &models.CategoryReport{Category: category}

	var avg, minPrice, maxPrice sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*), AVG(current_price), MIN(current_price), MAX(current_price)
		FROM products WHERE category = ?`, category).Scan(&report.TotalProducts, &avg, &minPrice, &maxPrice)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to aggregate prices: %w", opn, err)
	}
	report.AvgPrice = nullFloat(avg)
	report.MinPrice = nullFloat(minPrice)
	report.MaxPrice = nullFloat(maxPrice)

	run, err := scanRun(r.db.QueryRowContext(ctx, "SELECT "+runColumns+
		" FROM collection_runs WHERE category = ? ORDER BY started_at DESC, id DESC LIMIT 1", category))
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("%s: failed to query last run: %w", opn, err)
	default:
		report.LastRun = run
	}

	return report, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}
