// Package reconciler maps product candidates onto stored products and records price changes.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/pricing"
	"github.com/Houeta/pricewatch/internal/repository"
)

var ErrInvalidCandidate = errors.New("candidate is missing name, price or url")

// Result tells whether reconcile created the product and which product it resolved to.
type Result struct {
	Created   bool
	ProductID int64
}

type Reconciler struct {
	log *slog.Logger
	tx  repository.Transactor
	now func() time.Time
}

func New(log *slog.Logger, tx repository.Transactor) *Reconciler {
	return &Reconciler{log: log, tx: tx, now: func() time.Time { return time.Now().UTC() }}
}

// Reconcile resolves the candidate by platform id, then by url, and either refreshes the stored
// product or inserts a new one. The product change and its history entry commit together.
// A duplicate-key race with a concurrent run is retried once and then takes the update path.
func (r *Reconciler) Reconcile(ctx context.Context, c models.Candidate, category string) (Result, error) {
	const opn = "reconciler.Reconcile"

	if !c.Valid() {
		return Result{}, fmt.Errorf("%s: %w", opn, ErrInvalidCandidate)
	}

	if c.OriginalPrice != nil && pricing.ConsistentOriginal(c.OriginalPrice, c.CurrentPrice) == nil {
		r.log.DebugContext(ctx, "original price below current dropped", "op", opn, "url", c.URL)
		c.OriginalPrice, c.DiscountPercent = nil, nil
	}

	res, err := r.reconcileOnce(ctx, c, category)
	if errors.Is(err, repository.ErrDuplicateProduct) {
		r.log.InfoContext(ctx, "identity created concurrently, retrying as update", "op", opn, "url", c.URL)
		res, err = r.reconcileOnce(ctx, c, category)
	}
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", opn, err)
	}

	return res, nil
}

func (r *Reconciler) reconcileOnce(ctx context.Context, c models.Candidate, category string) (Result, error) {
	var res Result
	now := r.now()

	err := r.tx.InTx(ctx, func(store repository.ProductStore) error {
		existing, err := findExisting(ctx, store, c)
		if err != nil {
			return err
		}

		if existing == nil {
			res.Created = true
			res.ProductID, err = insert(ctx, store, c, category, now)
			return err
		}

		res.ProductID = existing.ID
		return update(ctx, store, existing.ID, c, now)
	})

	return res, err
}

func findExisting(ctx context.Context, store repository.ProductStore, c models.Candidate) (*models.Product, error) {
	if c.PlatformID != nil && *c.PlatformID != "" {
		p, err := store.FindProductByPlatformID(ctx, *c.PlatformID)
		switch {
		case err == nil:
			return p, nil
		case !errors.Is(err, repository.ErrProductNotFound):
			return nil, fmt.Errorf("failed to find product by platform id: %w", err)
		}
	}

	// Also catches rows stored before their platform id was known.
	p, err := store.FindProductByURL(ctx, c.URL)
	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, repository.ErrProductNotFound):
		return nil, nil //nolint:nilnil // absence is not an error here
	default:
		return nil, fmt.Errorf("failed to find product by url: %w", err)
	}
}

func insert(
	ctx context.Context,
	store repository.ProductStore,
	c models.Candidate,
	category string,
	now time.Time,
) (int64, error) {
	id, err := store.InsertProduct(ctx, &models.Product{
		PlatformID:      c.PlatformID,
		URL:             c.URL,
		Name:            c.Name,
		ImageURL:        c.ImageURL,
		Category:        category,
		CurrentPrice:    c.CurrentPrice,
		OriginalPrice:   c.OriginalPrice,
		DiscountPercent: c.DiscountPercent,
		FirstSeenAt:     now,
		LastUpdatedAt:   now,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert product: %w", err)
	}

	if err = store.AppendPriceHistory(ctx, id, c.CurrentPrice, now); err != nil {
		return 0, fmt.Errorf("failed to append first price: %w", err)
	}

	return id, nil
}

func update(ctx context.Context, store repository.ProductStore, id int64, c models.Candidate, now time.Time) error {
	err := store.UpdateProductPricing(ctx, id, models.Pricing{
		CurrentPrice:    c.CurrentPrice,
		OriginalPrice:   c.OriginalPrice,
		DiscountPercent: c.DiscountPercent,
		ImageURL:        c.ImageURL,
	}, now)
	if err != nil {
		return fmt.Errorf("failed to update product %d: %w", id, err)
	}

	latest, err := store.LatestPriceHistory(ctx, id)
	switch {
	case errors.Is(err, repository.ErrHistoryNotFound):
	case err != nil:
		return fmt.Errorf("failed to read latest price of product %d: %w", id, err)
	case pricing.SamePrice(latest.Price, c.CurrentPrice):
		return nil
	}

	if err = store.AppendPriceHistory(ctx, id, c.CurrentPrice, now); err != nil {
		return fmt.Errorf("failed to append price of product %d: %w", id, err)
	}

	return nil
}
