package models

import "time"

// Product is a monitored listing as stored in the database.
type Product struct {
	ID              int64     `json:"id"`
	PlatformID      *string   `json:"platform_id,omitempty"` // PlatformID is the marketplace catalog id, preferred identity key.
	URL             string    `json:"url"`
	Name            string    `json:"name"`
	ImageURL        *string   `json:"image_url,omitempty"`
	Category        string    `json:"category"`
	CurrentPrice    float64   `json:"current_price"`
	OriginalPrice   *float64  `json:"original_price,omitempty"`
	DiscountPercent *float64  `json:"discount_percent,omitempty"`
	FirstSeenAt     time.Time `json:"first_seen_at"`
	LastUpdatedAt   time.Time `json:"last_updated_at"`
}

// Pricing holds the mutable fields refreshed on every observation of a product.
type Pricing struct {
	CurrentPrice    float64
	OriginalPrice   *float64
	DiscountPercent *float64
	ImageURL        *string
}

// PriceHistoryEntry is one observed price point of a product.
type PriceHistoryEntry struct {
	ID         int64     `json:"id"`
	ProductID  int64     `json:"product_id"`
	Price      float64   `json:"price"`
	ObservedAt time.Time `json:"observed_at"`
}

// Candidate is a product record produced by the extractor before reconciliation.
type Candidate struct {
	Name            string
	CurrentPrice    float64
	OriginalPrice   *float64
	DiscountPercent *float64
	ImageURL        *string
	URL             string
	PlatformID      *string
}

// Valid reports whether the candidate carries the minimum viable fields.
func (c Candidate) Valid() bool {
	return c.Name != "" && c.CurrentPrice > 0 && c.URL != ""
}

// ProductStats summarizes the price history of one product.
type ProductStats struct {
	ProductID        int64     `json:"product_id"`
	Name             string    `json:"name"`
	Category         string    `json:"category"`
	MinPrice         float64   `json:"min_price"`
	MaxPrice         float64   `json:"max_price"`
	AvgPrice         float64   `json:"avg_price"`
	CurrentPrice     float64   `json:"current_price"`
	VariationPercent float64   `json:"variation_percent"`
	Observations     int       `json:"observations"`
	FirstSeenAt      time.Time `json:"first_seen_at"`
	LastObservedAt   time.Time `json:"last_observed_at"`
}

// CategoryReport aggregates current prices of a category.
type CategoryReport struct {
	Category      string         `json:"category"`
	TotalProducts int            `json:"total_products"`
	AvgPrice      *float64       `json:"avg_price,omitempty"`
	MinPrice      *float64       `json:"min_price,omitempty"`
	MaxPrice      *float64       `json:"max_price,omitempty"`
	LastRun       *CollectionRun `json:"last_run,omitempty"`
}

// ProductFilter narrows dashboard product listings.
type ProductFilter struct {
	Category string
	Search   string
	Limit    int
}

// NewProductStats summarizes history, which must be ordered by observation time.
// It returns nil when history is empty.
func NewProductStats(product Product, history []PriceHistoryEntry) *ProductStats {
	if len(history) == 0 {
		return nil
	}

	stats := &ProductStats{
		ProductID:      product.ID,
		Name:           product.Name,
		Category:       product.Category,
		MinPrice:       history[0].Price,
		MaxPrice:       history[0].Price,
		CurrentPrice:   product.CurrentPrice,
		Observations:   len(history),
		FirstSeenAt:    product.FirstSeenAt,
		LastObservedAt: history[len(history)-1].ObservedAt,
	}

	var sum float64
	for _, h := range history {
		stats.MinPrice = min(stats.MinPrice, h.Price)
		stats.MaxPrice = max(stats.MaxPrice, h.Price)
		sum += h.Price
	}
	stats.AvgPrice = sum / float64(len(history))

	if first := history[0].Price; first > 0 {
		stats.VariationPercent = (history[len(history)-1].Price - first) / first * 100
	}

	return stats
}
