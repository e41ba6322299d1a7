// Package repository declares the persistence contracts shared by the storage backends.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Houeta/pricewatch/internal/models"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrHistoryNotFound  = errors.New("price history not found")
	ErrDuplicateProduct = errors.New("product identity already exists")
	ErrRunNotFound      = errors.New("collection run not found")
	ErrRunNotTerminal   = errors.New("run can only finish with a terminal status")
)

// ProductStore is the set of product operations the reconciler performs inside one transaction.
type ProductStore interface {
	FindProductByPlatformID(ctx context.Context, platformID string) (*models.Product, error)
	FindProductByURL(ctx context.Context, url string) (*models.Product, error)
	InsertProduct(ctx context.Context, product *models.Product) (int64, error)
	UpdateProductPricing(ctx context.Context, id int64, pricing models.Pricing, at time.Time) error
	AppendPriceHistory(ctx context.Context, productID int64, price float64, at time.Time) error
	LatestPriceHistory(ctx context.Context, productID int64) (*models.PriceHistoryEntry, error)
}

// Transactor runs fn against a ProductStore bound to a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	InTx(ctx context.Context, fn func(store ProductStore) error) error
}

// RunStore records collection runs.
type RunStore interface {
	StartRun(ctx context.Context, category string, at time.Time) (int64, error)
	FinishRun(ctx context.Context, id int64, finish models.RunFinish) error
}

// Reader serves the read-only dashboards.
type Reader interface {
	ListCategories(ctx context.Context) ([]string, error)
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	PriceHistory(ctx context.Context, productID int64, since time.Time) ([]models.PriceHistoryEntry, error)
	ProductStats(ctx context.Context, productID int64) (*models.ProductStats, error)
	CategoryReport(ctx context.Context, category string) (*models.CategoryReport, error)
	RecentRuns(ctx context.Context, category string, limit int) ([]models.CollectionRun, error)
}

// Maintenance removes stale data.
type Maintenance interface {
	ListStaleProducts(ctx context.Context, olderThan time.Time) ([]models.Product, error)
	DeleteStaleProducts(ctx context.Context, olderThan time.Time) (int64, error)
	PruneHistory(ctx context.Context, olderThan time.Time) (int64, error)
}

// Store is implemented by every storage backend.
type Store interface {
	Transactor
	RunStore
	Reader
	Maintenance
	Close() error
}
