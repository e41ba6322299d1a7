package parser

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/Houeta/pricewatch/internal/config"
	"github.com/Houeta/pricewatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageURL = "https://lista.mercadolivre.com.br/notebook"

// mockDetailFetcher serves canned detail pages by URL.
type mockDetailFetcher struct {
	pages map[string]string
	err   error
	calls int
}

func (m *mockDetailFetcher) FetchDetail(_ context.Context, url string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	page, ok := m.pages[url]
	if !ok {
		return "", errors.New("not found")
	}
	return page, nil
}

func newTestParser(detail DetailFetcher, cfg config.Extract) *Parser {
	// Creating a "silent" logger that doesn't output anything during tests
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewParser(logger, detail, cfg)
}

func ptr[T any](v T) *T { return &v }

// =============================================================================
// Tests for listing extraction
// =============================================================================

func TestExtract_ListingLayouts(t *testing.T) {
	p := newTestParser(nil, config.Extract{})

	testCases := []struct {
		name     string
		html     string
		expected []models.Candidate
	}{
		{
			name: "Search layout with paired amounts",
			html: `
			<ol>
				<li class="ui-search-layout__item">
					<a class="ui-search-link" href="https://produto.mercadolivre.com.br/MLB-1234567-notebook-_JM">Notebook Gamer</a>
					<img class="ui-search-result-image__element" src="data:image/gif;base64,AAAA" data-src="https://img.example/nb.webp">
					<s class="andes-money-amount andes-money-amount--previous">
						<span class="andes-money-amount__fraction">4.999</span>
					</s>
					<span class="andes-money-amount">
						<span class="andes-money-amount__fraction">4.299</span><span class="andes-money-amount__cents">90</span>
					</span>
				</li>
			</ol>`,
			expected: []models.Candidate{{
				Name:            "Notebook Gamer",
				CurrentPrice:    4299.90,
				OriginalPrice:   ptr(4999.0),
				DiscountPercent: ptr(14.0),
				ImageURL:        ptr("https://img.example/nb.webp"),
				URL:             "https://produto.mercadolivre.com.br/MLB-1234567-notebook-_JM",
				PlatformID:      ptr("MLB1234567"),
			}},
		},
		{
			name: "Poly card with aria label and data id",
			html: `
			<div class="poly-card" data-id="MLB-99887766">
				<h3><a class="poly-component__title" href="/p/MLB99887766">Fone Bluetooth</a></h3>
				<span aria-label="Agora: 249 reais com 90 centavos"></span>
			</div>`,
			expected: []models.Candidate{{
				Name:         "Fone Bluetooth",
				CurrentPrice: 249.90,
				URL:          "https://lista.mercadolivre.com.br/p/MLB99887766",
				PlatformID:   ptr("MLB99887766"),
			}},
		},
		{
			name: "Legacy result with split cents and strike price",
			html: `
			<div class="ui-search-result">
				<h2><a href="https://produto.mercadolivre.com.br/item?id=MLBU-55555">Cadeira</a></h2>
				<span class="andes-money-amount__main-value">1.234</span>
				<span class="andes-money-amount--cents-superscript">56</span>
				<span class="price-tag-strike"><span class="price-tag-fraction">1.500</span></span>
			</div>`,
			expected: []models.Candidate{{
				Name:            "Cadeira",
				CurrentPrice:    1234.56,
				OriginalPrice:   ptr(1500.0),
				DiscountPercent: ptr(17.7),
				URL:             "https://produto.mercadolivre.com.br/item?id=MLBU-55555",
				PlatformID:      ptr("MLBU55555"),
			}},
		},
		{
			name: "Generic price tag fraction",
			html: `
			<div class="ui-search-result__wrapper">
				<h2><a href="https://example.test/x">Mouse</a></h2>
				<span class="price-tag-fraction">89</span>
			</div>`,
			expected: []models.Candidate{{
				Name:         "Mouse",
				CurrentPrice: 89,
				URL:          "https://example.test/x",
			}},
		},
		{
			name: "Containers missing required fields are dropped",
			html: `
			<ol>
				<li class="ui-search-layout__item"><a class="ui-search-link" href="/a">No price</a></li>
				<li class="ui-search-layout__item"><span class="price-tag-fraction">10</span></li>
			</ol>`,
			expected: nil,
		},
		{
			name:     "Empty HTML",
			html:     "",
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			candidates, err := p.Extract(t.Context(), tc.html, pageURL, 0)
			require.NoError(t, err)
			require.Len(t, candidates, len(tc.expected))
			for i := range tc.expected {
				assert.Equal(t, tc.expected[i].Name, candidates[i].Name)
				assert.InDelta(t, tc.expected[i].CurrentPrice, candidates[i].CurrentPrice, 0.001)
				assertFloatPtr(t, tc.expected[i].OriginalPrice, candidates[i].OriginalPrice)
				assertFloatPtr(t, tc.expected[i].DiscountPercent, candidates[i].DiscountPercent)
				assert.Equal(t, tc.expected[i].ImageURL, candidates[i].ImageURL)
				assert.Equal(t, tc.expected[i].URL, candidates[i].URL)
				assert.Equal(t, tc.expected[i].PlatformID, candidates[i].PlatformID)
			}
		})
	}
}

func assertFloatPtr(t *testing.T, expected, actual *float64) {
	t.Helper()
	if expected == nil {
		assert.Nil(t, actual)
		return
	}
	require.NotNil(t, actual)
	assert.InDelta(t, *expected, *actual, 0.001)
}

func TestExtract_FirstMatchingFamilyWins(t *testing.T) {
	p := newTestParser(nil, config.Extract{})

	html := `
	<li class="ui-search-layout__item">
		<a class="ui-search-link" href="/a">Inside layout</a><span class="price-tag-fraction">10</span>
	</li>
	<div class="poly-card">
		<a class="poly-component__title" href="/b">Standalone card</a><span class="price-tag-fraction">20</span>
	</div>`

	candidates, err := p.Extract(t.Context(), html, pageURL, 0)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Inside layout", candidates[0].Name)
}

func TestExtract_Limit(t *testing.T) {
	p := newTestParser(nil, config.Extract{})

	html := `
	<li class="ui-search-layout__item"><a class="ui-search-link" href="/1">One</a><span class="price-tag-fraction">1</span></li>
	<li class="ui-search-layout__item"><a class="ui-search-link" href="/2">Two</a><span class="price-tag-fraction">2</span></li>
	<li class="ui-search-layout__item"><a class="ui-search-link" href="/3">Three</a><span class="price-tag-fraction">3</span></li>`

	candidates, err := p.Extract(t.Context(), html, pageURL, 2)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "Two", candidates[1].Name)
}

func TestExtract_DiscountIsRecomputed(t *testing.T) {
	p := newTestParser(nil, config.Extract{})

	html := `
	<div class="poly-card">
		<a class="poly-component__title" href="/a">Smartwatch</a>
		<span class="andes-money-amount"><span class="andes-money-amount__fraction">699</span><span class="andes-money-amount__cents">99</span></span>
		<span class="andes-money-amount"><span class="andes-money-amount__fraction">599</span><span class="andes-money-amount__cents">99</span></span>
		<span class="andes-money-amount__discount">50% OFF</span>
	</div>`

	candidates, err := p.Extract(t.Context(), html, pageURL, 0)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.NotNil(t, candidates[0].DiscountPercent)
	assert.InDelta(t, 14.3, *candidates[0].DiscountPercent, 0.001)
}

func TestExtract_InvalidPageURL(t *testing.T) {
	p := newTestParser(nil, config.Extract{})

	_, err := p.Extract(t.Context(), "<html></html>", "://bad", 0)
	require.Error(t, err)
}

func TestExtract_CanceledContext(t *testing.T) {
	p := newTestParser(nil, config.Extract{})
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	html := `<li class="ui-search-layout__item"><a class="ui-search-link" href="/1">One</a><span class="price-tag-fraction">1</span></li>`

	_, err := p.Extract(ctx, html, pageURL, 0)
	require.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// Tests for the detail-page fallback
// =============================================================================

const priceless = `
<li class="ui-search-layout__item"><a class="ui-search-link" href="https://example.test/p/MLB100001">A</a></li>
<li class="ui-search-layout__item"><a class="ui-search-link" href="https://example.test/p/MLB100002">B</a></li>
<li class="ui-search-layout__item"><a class="ui-search-link" href="https://example.test/p/MLB100003">C</a></li>`

func TestExtract_DetailFallback(t *testing.T) {
	detail := &mockDetailFetcher{pages: map[string]string{
		"https://example.test/p/MLB100001": `<meta itemprop="price" content="100.50">`,
		"https://example.test/p/MLB100002": `<meta itemprop="price" content="200">`,
		"https://example.test/p/MLB100003": `<meta itemprop="price" content="300">`,
	}}

	t.Run("bounded by max detail fetches", func(t *testing.T) {
		detail.calls = 0
		p := newTestParser(detail, config.Extract{DetailFallback: true, MaxDetailFetches: 2})

		candidates, err := p.Extract(t.Context(), priceless, pageURL, 0)
		require.NoError(t, err)
		require.Len(t, candidates, 2)
		assert.InDelta(t, 100.50, candidates[0].CurrentPrice, 0.001)
		assert.InDelta(t, 200.0, candidates[1].CurrentPrice, 0.001)
		assert.Equal(t, 2, detail.calls)
	})

	t.Run("disabled", func(t *testing.T) {
		detail.calls = 0
		p := newTestParser(detail, config.Extract{DetailFallback: false, MaxDetailFetches: 5})

		candidates, err := p.Extract(t.Context(), priceless, pageURL, 0)
		require.NoError(t, err)
		assert.Empty(t, candidates)
		assert.Zero(t, detail.calls)
	})

	t.Run("fetch failures drop the candidate", func(t *testing.T) {
		failing := &mockDetailFetcher{err: errors.New("blocked")}
		p := newTestParser(failing, config.Extract{DetailFallback: true, MaxDetailFetches: 5})

		candidates, err := p.Extract(t.Context(), priceless, pageURL, 0)
		require.NoError(t, err)
		assert.Empty(t, candidates)
		assert.Equal(t, 3, failing.calls)
	})
}

func TestExtract_StrikeOnlyCardUsesDetailPage(t *testing.T) {
	const card = `<li class="ui-search-layout__item">
		<a class="ui-search-link" href="https://example.test/p/MLB200001">Fone Bluetooth</a>
		<s class="andes-money-amount andes-money-amount--previous"><span class="andes-money-amount__fraction">699</span></s>
	</li>`

	testCases := []struct {
		name             string
		detailPrice      string
		expectedCurrent  float64
		expectedOriginal *float64
		expectedDiscount *float64
	}{
		{
			name:             "detail price below the old price",
			detailPrice:      "599",
			expectedCurrent:  599,
			expectedOriginal: ptr(699.0),
			expectedDiscount: ptr(14.3),
		},
		{
			name:            "detail price above the old price drops it",
			detailPrice:     "749",
			expectedCurrent: 749,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			detail := &mockDetailFetcher{pages: map[string]string{
				"https://example.test/p/MLB200001": `<meta itemprop="price" content="` + tc.detailPrice + `">`,
			}}
			p := newTestParser(detail, config.Extract{DetailFallback: true, MaxDetailFetches: 5})

			candidates, err := p.Extract(t.Context(), card, pageURL, 0)
			require.NoError(t, err)
			require.Len(t, candidates, 1)
			assert.Equal(t, 1, detail.calls)

			c := candidates[0]
			assert.InDelta(t, tc.expectedCurrent, c.CurrentPrice, 0.001)
			assertFloatPtr(t, tc.expectedOriginal, c.OriginalPrice)
			assertFloatPtr(t, tc.expectedDiscount, c.DiscountPercent)
		})
	}
}

func TestExtract_OriginalBelowCurrentIsDropped(t *testing.T) {
	const card = `<li class="ui-search-layout__item">
		<a class="ui-search-link" href="https://example.test/p/MLB300001">Cabo USB</a>
		<span class="price-tag-fraction">100</span>
		<span class="price-tag__subprice"><span class="price-tag-fraction">80</span></span>
	</li>`
	p := newTestParser(nil, config.Extract{})

	candidates, err := p.Extract(t.Context(), card, pageURL, 0)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.InDelta(t, 100.0, candidates[0].CurrentPrice, 0.001)
	assert.Nil(t, candidates[0].OriginalPrice)
	assert.Nil(t, candidates[0].DiscountPercent)
}

func TestParseDetail(t *testing.T) {
	testCases := []struct {
		name             string
		html             string
		expectedCurrent  float64
		expectedOriginal *float64
		expectError      bool
	}{
		{
			name: "JSON-LD offer",
			html: `<script type="application/ld+json">{"@type":"Product","offers":{"@type":"Offer","price":1899.9}}</script>
				<span class="ui-pdp-price__original-value andes-money-amount"><span class="andes-money-amount__fraction">2.199</span></span>`,
			expectedCurrent:  1899.9,
			expectedOriginal: ptr(2199.0),
		},
		{
			name:            "JSON-LD offers array with string price",
			html:            `<script type="application/ld+json">{"offers":[{"price":"349.00"}]}</script>`,
			expectedCurrent: 349,
		},
		{
			name:            "JSON-LD graph",
			html:            `<script type="application/ld+json">{"@graph":[{"offers":{"price":"59.9"}}]}</script>`,
			expectedCurrent: 59.9,
		},
		{
			name:            "Meta itemprop",
			html:            `<script type="application/ld+json">not json</script><meta itemprop="price" content="4798">`,
			expectedCurrent: 4798,
		},
		{
			name: "PDP second line",
			html: `<div class="ui-pdp-price__second-line">
				<span class="andes-money-amount"><span class="andes-money-amount__fraction">1.049</span><span class="andes-money-amount__cents">90</span></span>
			</div>
			<s class="andes-money-amount"><span class="andes-money-amount__fraction">1.299</span></s>`,
			expectedCurrent:  1049.90,
			expectedOriginal: ptr(1299.0),
		},
		{
			name:            "Listing tiers over the whole page",
			html:            `<span aria-label="Agora: 4.798 reais"></span>`,
			expectedCurrent: 4798,
		},
		{
			name:        "No price",
			html:        `<html><body>Produto indisponível</body></html>`,
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			price, err := ParseDetail(tc.html)
			if tc.expectError {
				require.ErrorIs(t, err, ErrNoDetailPrice)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.expectedCurrent, price.Current, 0.001)
			assertFloatPtr(t, tc.expectedOriginal, price.Original)
		})
	}
}

func TestExtractDetail_NoFetcher(t *testing.T) {
	p := newTestParser(nil, config.Extract{})

	_, err := p.ExtractDetail(t.Context(), "https://example.test/p/1")
	require.ErrorIs(t, err, ErrNoDetailFetcher)
}

// =============================================================================
// Tests for API payloads and identity
// =============================================================================

func TestExtract_APIPayload(t *testing.T) {
	p := newTestParser(nil, config.Extract{})

	payload := `{"results":[
		{"id":"MLB3001","title":"Monitor 27","price":1299.9,"original_price":1599.9,
		 "thumbnail":"https://img.example/m.jpg","permalink":"https://produto.mercadolivre.com.br/MLB-3001-monitor"},
		{"id":"MLB3002","title":"Sem preço","permalink":"https://produto.mercadolivre.com.br/MLB-3002"},
		{"title":"Teclado","price":"199,90","permalink":"https://produto.mercadolivre.com.br/MLB-3003456-teclado"}
	]}`

	candidates, err := p.Extract(t.Context(), payload, pageURL, 0)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "Monitor 27", candidates[0].Name)
	assert.InDelta(t, 1299.9, candidates[0].CurrentPrice, 0.001)
	assertFloatPtr(t, ptr(18.8), candidates[0].DiscountPercent)
	assert.Equal(t, ptr("MLB3001"), candidates[0].PlatformID)
	assert.Equal(t, ptr("https://img.example/m.jpg"), candidates[0].ImageURL)

	assert.InDelta(t, 199.90, candidates[1].CurrentPrice, 0.001)
	assert.Equal(t, ptr("MLB3003456"), candidates[1].PlatformID)
}

func TestExtract_APIPayloadWithoutResults(t *testing.T) {
	p := newTestParser(nil, config.Extract{})

	candidates, err := p.Extract(t.Context(), `{"error":"not_found"}`, pageURL, 0)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestPlatformIDFromURL(t *testing.T) {
	testCases := []struct {
		url      string
		expected string
	}{
		{"https://produto.mercadolivre.com.br/MLB-1234567-notebook-_JM", "MLB1234567"},
		{"https://www.mercadolivre.com.br/notebook/p/MLB19876543", "MLB19876543"},
		{"https://www.mercadolivre.com.br/p/x?item_id=mlbu-123456", "MLBU123456"},
		{"https://www.mercadolivre.com.br/ofertas", ""},
		{"https://www.mercadolivre.com.br/MLB-123", ""},
		{"", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			assert.Equal(t, tc.expected, platformIDFromURL(tc.url))
		})
	}
}
