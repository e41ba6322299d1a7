package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	productColumns = `id, platform_id, url, name, image_url, category,
	current_price, original_price, discount_percent, first_seen_at, last_updated_at`

	uniqueViolation = "23505"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type productStore struct {
	q querier
}

func scanProduct(row pgx.Row) (*models.Product, error) {
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

// InTx runs fn inside one read-committed transaction.
func (r *Repository) InTx(ctx context.Context, fn func(store repository.ProductStore) error) error {
	const opn = "repository.postgres.InTx"

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{}) //nolint:varnamelen // tx its a default naming for transaction
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", opn, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit returns pgx.ErrTxClosed

	if err = fn(productStore{q: tx}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", opn, err)
	}

	return nil
}

func (s productStore) findOne(ctx context.Context, opn, column, value string) (*models.Product, error) {
	product, err := scanProduct(s.q.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE "+column+" = $1", value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrProductNotFound
		}
		return nil, fmt.Errorf("%s: failed to query product: %w", opn, err)
	}

	return product, nil
}

// FindProductByPlatformID returns repository.ErrProductNotFound on a miss.
func (s productStore) FindProductByPlatformID(ctx context.Context, platformID string) (*models.Product, error) {
	return s.findOne(ctx, "repository.postgres.FindProductByPlatformID", "platform_id", platformID)
}

// FindProductByURL returns repository.ErrProductNotFound on a miss.
func (s productStore) FindProductByURL(ctx context.Context, url string) (*models.Product, error) {
	return s.findOne(ctx, "repository.postgres.FindProductByURL", "url", url)
}

// InsertProduct stores a new product and returns its id.
func (s productStore) InsertProduct(ctx context.Context, product *models.Product) (int64, error) {
	const opn = "repository.postgres.InsertProduct"

	var id int64
	err := s.q.QueryRow(ctx, `INSERT INTO products
		(platform_id, url, name, image_url, category, current_price, original_price, discount_percent,
		 first_seen_at, last_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		product.PlatformID, product.URL, product.Name, product.ImageURL, product.Category,
		product.CurrentPrice, product.OriginalPrice, product.DiscountPercent,
		product.FirstSeenAt.UTC(), product.LastUpdatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, fmt.Errorf("%s: %w", opn, repository.ErrDuplicateProduct)
		}
		return 0, fmt.Errorf("%s: failed to insert product %s: %w", opn, product.URL, err)
	}

	return id, nil
}

// UpdateProductPricing refreshes the mutable pricing fields. A nil image keeps the stored one.
func (s productStore) UpdateProductPricing(ctx context.Context, id int64, pricing models.Pricing, at time.Time) error {
	const opn = "repository.postgres.UpdateProductPricing"

	tag, err := s.q.Exec(ctx, `UPDATE products SET
		current_price = $1, original_price = $2, discount_percent = $3,
		image_url = COALESCE($4, image_url), last_updated_at = $5
		WHERE id = $6`,
		pricing.CurrentPrice, pricing.OriginalPrice, pricing.DiscountPercent, pricing.ImageURL, at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to update product %d: %w", opn, id, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrProductNotFound
	}

	return nil
}

// AppendPriceHistory records one observed price.
func (s productStore) AppendPriceHistory(ctx context.Context, productID int64, price float64, at time.Time) error {
	const opn = "repository.postgres.AppendPriceHistory"

	_, err := s.q.Exec(ctx,
		"INSERT INTO price_history (product_id, price, observed_at) VALUES ($1, $2, $3)",
		productID, price, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to append history for product %d: %w", opn, productID, err)
	}

	return nil
}

// LatestPriceHistory returns repository.ErrHistoryNotFound when the product has no entries.
func (s productStore) LatestPriceHistory(ctx context.Context, productID int64) (*models.PriceHistoryEntry, error) {
	const opn = "repository.postgres.LatestPriceHistory"

	var entry models.PriceHistoryEntry
	err := s.q.QueryRow(ctx, `SELECT id, product_id, price, observed_at FROM price_history
		WHERE product_id = $1 ORDER BY observed_at DESC, id DESC LIMIT 1`, productID).
		Scan(&entry.ID, &entry.ProductID, &entry.Price, &entry.ObservedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrHistoryNotFound
		}
		return nil, fmt.Errorf("%s: failed to query history: %w", opn, err)
	}

	return &entry, nil
}
