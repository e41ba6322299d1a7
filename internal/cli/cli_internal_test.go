package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Houeta/pricewatch/internal/config"
	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/repository"
	"github.com/Houeta/pricewatch/internal/repository/sqlite"
	"github.com/Houeta/pricewatch/internal/services/collector"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =============================================================================
// Logger
// =============================================================================

func TestSetupLogger(t *testing.T) {
	testCases := []struct {
		name      string
		env       string
		level     string
		wantDebug bool
		wantWarn  bool
		wantErr   bool
	}{
		{name: "local logs debug", env: envLocal, wantDebug: true, wantWarn: true},
		{name: "development logs info", env: envDev, wantWarn: true},
		{name: "production logs warn", env: envProd, wantWarn: true},
		{name: "flag overrides env", env: envProd, level: "debug", wantDebug: true, wantWarn: true},
		{name: "unknown env logs errors only", env: "staging"},
		{name: "invalid level", env: envProd, level: "loud", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			log, err := setupLogger(&buf, tc.env, tc.level)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			ctx := t.Context()
			assert.Equal(t, tc.wantDebug, log.Enabled(ctx, slog.LevelDebug))
			assert.Equal(t, tc.wantWarn, log.Enabled(ctx, slog.LevelWarn))
			assert.True(t, log.Enabled(ctx, slog.LevelError))
		})
	}
}

func TestSetupLogger_ProductionDropsTime(t *testing.T) {
	var buf bytes.Buffer
	log, err := setupLogger(&buf, envProd, "")
	require.NoError(t, err)

	log.Warn("page skipped", "page", 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, slog.TimeKey)
	assert.Equal(t, "page skipped", entry[slog.MessageKey])
}

func TestSetupLogger_UnknownEnvIsReported(t *testing.T) {
	var buf bytes.Buffer
	_, err := setupLogger(&buf, "", "")
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "available_envs")
}

// =============================================================================
// scrape
// =============================================================================

func TestScrapeRequest(t *testing.T) {
	testCases := []struct {
		name     string
		args     []string
		category string
		want     collector.RunRequest
		wantErr  string
	}{
		{
			name: "category from path",
			args: []string{"https://lista.mercadolivre.com.br/notebook-gamer"},
			want: collector.RunRequest{Category: "notebook-gamer", URL: "https://lista.mercadolivre.com.br/notebook-gamer"},
		},
		{
			name: "root path falls back to general",
			args: []string{"https://lista.mercadolivre.com.br/?q=fone", "20", "2"},
			want: collector.RunRequest{
				Category:    defaultCategory,
				URL:         "https://lista.mercadolivre.com.br/?q=fone",
				MaxProducts: 20,
				MaxPages:    2,
			},
		},
		{
			name:     "explicit category",
			args:     []string{"https://lista.mercadolivre.com.br/celulares/samsung", "5"},
			category: "phones",
			want: collector.RunRequest{
				Category:    "phones",
				URL:         "https://lista.mercadolivre.com.br/celulares/samsung",
				MaxProducts: 5,
			},
		},
		{name: "relative url", args: []string{"notebook"}, wantErr: "invalid listing url"},
		{name: "bad max products", args: []string{"https://x.com/a", "many"}, wantErr: "max-products"},
		{name: "zero max pages", args: []string{"https://x.com/a", "1", "0"}, wantErr: "max-pages"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := scrapeRequest(tc.args, tc.category)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCategoryFromURL(t *testing.T) {
	u, err := url.Parse("https://lista.mercadolivre.com.br//celulares-telefones/celulares/_Desde_51")
	require.NoError(t, err)

	assert.Equal(t, "celulares-telefones", categoryFromURL(u))
}

// =============================================================================
// collect
// =============================================================================

func testConfig() *config.Config {
	return &config.Config{
		Categories: []config.Category{
			{Name: "notebook", URL: "https://lista.mercadolivre.com.br/notebook", MaxPages: 2},
			{Name: "celulares", URL: "https://lista.mercadolivre.com.br/celulares", MaxProducts: 10},
			{Name: "fones", URL: "https://lista.mercadolivre.com.br/fones"},
		},
	}
}

func TestSelectCategories(t *testing.T) {
	cfg := testConfig()

	all, err := selectCategories(cfg, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	named, err := selectCategories(cfg, []string{"fones", "notebook"})
	require.NoError(t, err)
	require.Len(t, named, 2)
	assert.Equal(t, "fones", named[0].Name)
	assert.Equal(t, "notebook", named[1].Name)

	_, err = selectCategories(cfg, []string{"tv"})
	require.ErrorContains(t, err, `unknown category "tv"`)

	_, err = selectCategories(&config.Config{}, nil)
	require.ErrorIs(t, err, config.ErrNoCategories)
}

func TestBatch_Sequential(t *testing.T) {
	var (
		mu   sync.Mutex
		reqs []collector.RunRequest
	)
	b := &batch{
		log:      discardLogger(),
		cfg:      testConfig(),
		parallel: 1,
		run: func(_ context.Context, _ *slog.Logger, _ *config.Config, _ repository.Store, req collector.RunRequest) models.RunResult {
			mu.Lock()
			defer mu.Unlock()
			reqs = append(reqs, req)
			return models.RunResult{Category: req.Category, Status: models.RunSuccess}
		},
	}

	results := b.collect(t.Context(), b.cfg.Categories)

	require.Len(t, results, 3)
	assert.Equal(t, []collector.RunRequest{
		{Category: "notebook", URL: "https://lista.mercadolivre.com.br/notebook", MaxPages: 2},
		{Category: "celulares", URL: "https://lista.mercadolivre.com.br/celulares", MaxProducts: 10},
		{Category: "fones", URL: "https://lista.mercadolivre.com.br/fones"},
	}, reqs)
}

func TestBatch_SequentialStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	b := &batch{
		log:      discardLogger(),
		cfg:      testConfig(),
		parallel: 1,
		run: func(context.Context, *slog.Logger, *config.Config, repository.Store, collector.RunRequest) models.RunResult {
			cancel()
			return models.RunResult{Status: models.RunSuccess}
		},
	}

	results := b.collect(ctx, b.cfg.Categories)
	assert.Len(t, results, 1)
}

func TestBatch_ParallelRespectsLimit(t *testing.T) {
	var running, peak atomic.Int32
	b := &batch{
		log:      discardLogger(),
		cfg:      testConfig(),
		parallel: 2,
		run: func(_ context.Context, _ *slog.Logger, _ *config.Config, _ repository.Store, req collector.RunRequest) models.RunResult {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
			return models.RunResult{Category: req.Category, Status: models.RunSuccess}
		},
	}

	results := b.collect(t.Context(), b.cfg.Categories)

	require.Len(t, results, 3)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	categories := make([]string, 0, len(results))
	for _, r := range results {
		categories = append(categories, r.Category)
	}
	assert.ElementsMatch(t, []string{"notebook", "celulares", "fones"}, categories)
}

func TestPrintBatch(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	err := printBatch(cmd, []models.RunResult{
		{Category: "notebook", Status: models.RunSuccess, Totals: models.RunTotals{Seen: 4, New: 1, Updated: 3}},
		{Category: "fones", Status: models.RunError, Error: "failed to start run"},
	})

	require.ErrorIs(t, err, errRunFailed)
	assert.Contains(t, err.Error(), "1 of 2 categories")
	assert.Contains(t, out.String(), `"total_products_seen": 4`)
	assert.Contains(t, out.String(), `"error": "failed to start run"`)
}

// =============================================================================
// cleanup
// =============================================================================

func seedProduct(t *testing.T, repo *sqlite.Repository, name string, updated time.Time) int64 {
	t.Helper()

	var id int64
	err := repo.InTx(t.Context(), func(store repository.ProductStore) error {
		var err error
		id, err = store.InsertProduct(t.Context(), &models.Product{
			URL:           "https://produto.mercadolivre.com.br/" + strings.ReplaceAll(name, " ", "-"),
			Name:          name,
			Category:      "notebook",
			CurrentPrice:  1299.9,
			FirstSeenAt:   updated,
			LastUpdatedAt: updated,
		})
		if err != nil {
			return err
		}
		if err = store.AppendPriceHistory(t.Context(), id, 1399.9, updated.Add(-48*time.Hour)); err != nil {
			return err
		}
		return store.AppendPriceHistory(t.Context(), id, 1299.9, updated)
	})
	require.NoError(t, err)

	return id
}

func TestCleanup(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	newRepo := func(t *testing.T) (*sqlite.Repository, int64, int64) {
		t.Helper()
		repo, err := sqlite.NewRepository(t.Context(), discardLogger(), filepath.Join(t.TempDir(), "cleanup.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = repo.Close() })

		stale := seedProduct(t, repo, "Notebook Antigo", now.AddDate(0, 0, -40))
		fresh := seedProduct(t, repo, "Notebook Novo", now.AddDate(0, 0, -1))
		return repo, stale, fresh
	}

	t.Run("dry run only lists", func(t *testing.T) {
		repo, stale, _ := newRepo(t)
		var out bytes.Buffer

		require.NoError(t, cleanup(t.Context(), &out, repo, cleanupOptions{days: 30, dryRun: true}, now))

		assert.Contains(t, out.String(), "1 products not updated since 2026-05-02 would be deleted")
		assert.Contains(t, out.String(), "Notebook Antigo (R$ 1.299,90")
		_, err := repo.GetProduct(t.Context(), stale)
		require.NoError(t, err)
	})

	t.Run("deletes stale products and prunes history", func(t *testing.T) {
		repo, stale, fresh := newRepo(t)
		var out bytes.Buffer

		require.NoError(t, cleanup(t.Context(), &out, repo, cleanupOptions{days: 30, historyDays: 1}, now))

		assert.Contains(t, out.String(), "deleted 1 stale products")
		assert.Contains(t, out.String(), "pruned 1 price history entries")

		_, err := repo.GetProduct(t.Context(), stale)
		require.ErrorIs(t, err, repository.ErrProductNotFound)

		history, err := repo.PriceHistory(t.Context(), fresh, time.Time{})
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.InDelta(t, 1299.9, history[0].Price, 0.001)
	})
}
