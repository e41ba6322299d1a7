package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/repository"
	"github.com/mattn/go-sqlite3"
)

const productColumns = `id, platform_id, url, name, image_url, category,
	current_price, original_price, discount_percent, first_seen_at, last_updated_at`

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type productStore struct {
	q queryer
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var p models.Product
	err := row.Scan(
		&p.ID, &p.PlatformID, &p.URL, &p.Name, &p.ImageURL, &p.Category,
		&p.CurrentPrice, &p.OriginalPrice, &p.DiscountPercent, &p.FirstSeenAt, &p.LastUpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// InTx runs fn inside one immediate transaction.
func (r *Repository) InTx(ctx context.Context, fn func(store repository.ProductStore) error) error {
	const opn = "repository.sqlite.InTx"

	tx, err := r.db.BeginTx(ctx, nil) //nolint:varnamelen // tx its a default naming for transaction
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", opn, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit returns sql.ErrTxDone

	if err = fn(productStore{q: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", opn, err)
	}

	return nil
}

// FindProductByPlatformID returns repository.ErrProductNotFound on a miss.
func (s productStore) FindProductByPlatformID(ctx context.Context, platformID string) (*models.Product, error) {
	const opn = "repository.sqlite.FindProductByPlatformID"

	row := s.q.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE platform_id = ?", platformID)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrProductNotFound
		}
		return nil, fmt.Errorf("%s: failed to query product: %w", opn, err)
	}

	return product, nil
}

// FindProductByURL returns repository.ErrProductNotFound on a miss.
func (s productStore) FindProductByURL(ctx context.Context, url string) (*models.Product, error) {
	const opn = "repository.sqlite.FindProductByURL"

	row := s.q.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE url = ?", url)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrProductNotFound
		}
		return nil, fmt.Errorf("%s: failed to query product: %w", opn, err)
	}

	return product, nil
}

// InsertProduct stores a new product and returns its id.
// A unique-key collision on platform_id or url is reported as repository.ErrDuplicateProduct.
func (s productStore) InsertProduct(ctx context.Context, product *models.Product) (int64, error) {
	const opn = "repository.sqlite.InsertProduct"

	res, err := s.q.ExecContext(ctx, `INSERT INTO products
		(platform_id, url, name, image_url, category, current_price, original_price, discount_percent,
		 first_seen_at, last_updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.PlatformID, product.URL, product.Name, product.ImageURL, product.Category,
		product.CurrentPrice, product.OriginalPrice, product.DiscountPercent,
		product.FirstSeenAt.UTC(), product.LastUpdatedAt.UTC(),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && (sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
			return 0, fmt.Errorf("%s: %w", opn, repository.ErrDuplicateProduct)
		}
		return 0, fmt.Errorf("%s: failed to insert product %s: %w", opn, product.URL, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to read inserted id: %w", opn, err)
	}

	return id, nil
}

// UpdateProductPricing refreshes the mutable pricing fields. A nil image keeps the stored one.
func (s productStore) UpdateProductPricing(ctx context.Context, id int64, pricing models.Pricing, at time.Time) error {
	const opn = "repository.sqlite.UpdateProductPricing"

	res, err := s.q.ExecContext(ctx, `UPDATE products SET
		current_price = ?, original_price = ?, discount_percent = ?,
		image_url = COALESCE(?, image_url), last_updated_at = ?
		WHERE id = ?`,
		pricing.CurrentPrice, pricing.OriginalPrice, pricing.DiscountPercent, pricing.ImageURL, at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to update product %d: %w", opn, id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to read affected rows: %w", opn, err)
	}
	if affected == 0 {
		return repository.ErrProductNotFound
	}

	return nil
}

// AppendPriceHistory records one observed price.
func (s productStore) AppendPriceHistory(ctx context.Context, productID int64, price float64, at time.Time) error {
	const opn = "repository.sqlite.AppendPriceHistory"

	_, err := s.q.ExecContext(ctx,
		"INSERT INTO price_history (product_id, price, observed_at) VALUES (?, ?, ?)",
		productID, price, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to append history for product %d: %w", opn, productID, err)
	}

	return nil
}

// LatestPriceHistory returns repository.ErrHistoryNotFound when the product has no entries.
func (s productStore) LatestPriceHistory(ctx context.Context, productID int64) (*models.PriceHistoryEntry, error) {
	const opn = "repository.sqlite.LatestPriceHistory"

	var entry models.PriceHistoryEntry
	err := s.q.QueryRowContext(ctx, `SELECT id, product_id, price, observed_at FROM price_history
		WHERE product_id = ? ORDER BY observed_at DESC, id DESC LIMIT 1`, productID).
		Scan(&entry.ID, &entry.ProductID, &entry.Price, &entry.ObservedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrHistoryNotFound
		}
		return nil, fmt.Errorf("%s: failed to query history: %w", opn, err)
	}

	return &entry, nil
}
