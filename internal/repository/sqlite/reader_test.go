package sqlite_test

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/repository"
	"github.com/Houeta/pricewatch/internal/repository/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seed inserts a product with the given price history and returns its id.
func seed(t *testing.T, repo *sqlite.Repository, p *models.Product, prices []float64, start time.Time) int64 {
	t.Helper()

	id, err := repo.InsertProduct(t.Context(), p)
	require.NoError(t, err)
	for i, price := range prices {
		require.NoError(t, repo.AppendPriceHistory(t.Context(), id, price, start.Add(time.Duration(i)*24*time.Hour)))
	}

	return id
}

func TestRepository_Integration_Reader(t *testing.T) {
	repo := newTestDB(t)
	ctx := t.Context()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	phone := sampleProduct("https://produto.example/p/phone", strPtr("MLB1000001"), start)
	phone.CurrentPrice = 90
	phoneID := seed(t, repo, phone, []float64{100, 120, 90}, start)

	laptop := sampleProduct("https://produto.example/p/laptop", nil, start)
	laptop.Name = "Notebook Gamer"
	laptop.Category = "notebook"
	laptop.CurrentPrice = 4798
	seed(t, repo, laptop, []float64{4798}, start)

	t.Run("categories", func(t *testing.T) {
		categories, err := repo.ListCategories(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"celular", "notebook"}, categories)
	})

	t.Run("products_by_category_and_search", func(t *testing.T) {
		products, err := repo.ListProducts(ctx, models.ProductFilter{Category: "notebook"})
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, "Notebook Gamer", products[0].Name)

		products, err = repo.ListProducts(ctx, models.ProductFilter{Search: "smartphone"})
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, phoneID, products[0].ID)

		products, err = repo.ListProducts(ctx, models.ProductFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, products, 1)
	})

	t.Run("get_product", func(t *testing.T) {
		p, err := repo.GetProduct(ctx, phoneID)
		require.NoError(t, err)
		assert.Equal(t, "https://produto.example/p/phone", p.URL)

		_, err = repo.GetProduct(ctx, 4040)
		require.ErrorIs(t, err, repository.ErrProductNotFound)
	})

	t.Run("history_since", func(t *testing.T) {
		history, err := repo.PriceHistory(ctx, phoneID, start.Add(24*time.Hour))
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.InDelta(t, 120.0, history[0].Price, 1e-9)
		assert.InDelta(t, 90.0, history[1].Price, 1e-9)
	})

	t.Run("stats", func(t *testing.T) {
		stats, err := repo.ProductStats(ctx, phoneID)
		require.NoError(t, err)
		assert.InDelta(t, 90.0, stats.MinPrice, 1e-9)
		assert.InDelta(t, 120.0, stats.MaxPrice, 1e-9)
		assert.InDelta(t, 103.333, stats.AvgPrice, 1e-3)
		assert.InDelta(t, -10.0, stats.VariationPercent, 1e-9)
		assert.Equal(t, 3, stats.Observations)
		assert.True(t, start.Add(48*time.Hour).Equal(stats.LastObservedAt))
	})

	t.Run("stats_without_history", func(t *testing.T) {
		id, err := repo.InsertProduct(ctx, sampleProduct("https://produto.example/p/bare", nil, start))
		require.NoError(t, err)

		_, err = repo.ProductStats(ctx, id)
		require.ErrorIs(t, err, repository.ErrHistoryNotFound)
	})

	t.Run("category_report", func(t *testing.T) {
		runID, err := repo.StartRun(ctx, "notebook", start)
		require.NoError(t, err)

		report, err := repo.CategoryReport(ctx, "notebook")
		require.NoError(t, err)
		assert.Equal(t, 1, report.TotalProducts)
		require.NotNil(t, report.AvgPrice)
		assert.InDelta(t, 4798.0, *report.AvgPrice, 1e-9)
		require.NotNil(t, report.LastRun)
		assert.Equal(t, runID, report.LastRun.ID)
	})

	t.Run("category_report_empty", func(t *testing.T) {
		report, err := repo.CategoryReport(ctx, "geladeira")
		require.NoError(t, err)
		assert.Zero(t, report.TotalProducts)
		assert.Nil(t, report.AvgPrice)
		assert.Nil(t, report.LastRun)
	})
}

func TestRepository_Integration_Maintenance(t *testing.T) {
	repo := newTestDB(t)
	ctx := t.Context()
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fresh := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cutoff := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	staleID := seed(t, repo, sampleProduct("https://produto.example/p/stale", nil, old), []float64{10, 9}, old)
	freshID := seed(t, repo, sampleProduct("https://produto.example/p/fresh", nil, fresh), []float64{50, 45}, old)

	t.Run("prune_history_keeps_latest_entry", func(t *testing.T) {
		pruned, err := repo.PruneHistory(ctx, cutoff)
		require.NoError(t, err)
		assert.EqualValues(t, 2, pruned)

		for _, id := range []int64{staleID, freshID} {
			history, err := repo.PriceHistory(ctx, id, time.Time{})
			require.NoError(t, err)
			require.Len(t, history, 1)
		}
	})

	t.Run("list_stale", func(t *testing.T) {
		stale, err := repo.ListStaleProducts(ctx, cutoff)
		require.NoError(t, err)
		require.Len(t, stale, 1)
		assert.Equal(t, staleID, stale[0].ID)
	})

	t.Run("delete_stale_cascades_history", func(t *testing.T) {
		deleted, err := repo.DeleteStaleProducts(ctx, cutoff)
		require.NoError(t, err)
		assert.EqualValues(t, 1, deleted)

		var remaining int
		require.NoError(t, repo.DB().QueryRowContext(ctx,
			"SELECT COUNT(*) FROM price_history WHERE product_id = ?", staleID).Scan(&remaining))
		assert.Zero(t, remaining)

		_, err = repo.GetProduct(ctx, freshID)
		require.NoError(t, err)
	})
}

func TestRepository_Reader_Failures(t *testing.T) {
	ctx := t.Context()

	t.Run("categories_query_error", func(t *testing.T) {
		repo, mock := newMockedRepo(t)
		mock.ExpectQuery("SELECT DISTINCT category FROM products").WillReturnError(assert.AnError)

		_, err := repo.ListCategories(ctx)

		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("products_limit_is_clamped", func(t *testing.T) {
		repo, mock := newMockedRepo(t)
		mock.ExpectQuery("SELECT (.+) FROM products WHERE category = \\? ORDER BY").
			WithArgs("celular", 1000).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		products, err := repo.ListProducts(ctx, models.ProductFilter{Category: "celular", Limit: 50000})

		require.NoError(t, err)
		assert.Empty(t, products)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("report_aggregate_error", func(t *testing.T) {
		repo, mock := newMockedRepo(t)
		mock.ExpectQuery("SELECT COUNT").WillReturnError(assert.AnError)

		_, err := repo.CategoryReport(ctx, "celular")

		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("prune_exec_error", func(t *testing.T) {
		repo, mock := newMockedRepo(t)
		mock.ExpectExec("DELETE FROM price_history").WillReturnError(assert.AnError)

		_, err := repo.PruneHistory(ctx, time.Now())

		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
