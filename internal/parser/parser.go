// Package parser turns fetched listing pages into product candidates.
package parser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/Houeta/pricewatch/internal/config"
	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/pricing"
	"github.com/PuerkitoBio/goquery"
)

// DetailFetcher retrieves a single-product page for the price fallback.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, url string) (string, error)
}

type Parser struct {
	log    *slog.Logger
	detail DetailFetcher // nil disables the detail-page fallback
	cfg    config.Extract
}

func NewParser(log *slog.Logger, detail DetailFetcher, cfg config.Extract) *Parser {
	return &Parser{log: log, detail: detail, cfg: cfg}
}

// containerFamilies are tried in order; the first family that matches anything is used alone.
var containerFamilies = []string{
	"li.ui-search-layout__item",
	"div.poly-card",
	"div.ui-search-result, div.ui-search-result__wrapper",
}

var titleSelectors = []string{
	"a.poly-component__title",
	"a.ui-search-item__group__element",
	"a.ui-search-link",
	"h3 a",
	"h2 a",
}

var imageSelectors = []string{
	"img.poly-component__picture",
	"img.ui-search-result-image__element",
	"img",
}

// Lazy-load attributes win over src, which usually holds a placeholder.
var imageAttrs = []string{"data-src", "data-lazy", "src"}

// Extract returns at most limit valid candidates from content; limit <= 0 means no limit.
// Content that looks like JSON is read as a search API payload. Containers that miss a
// required field after every tier are dropped silently.
func (p *Parser) Extract(ctx context.Context, content, pageURL string, limit int) ([]models.Candidate, error) {
	const opn = "parser.Extract"
	log := p.log.With("op", opn, "url", pageURL)

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid page url %s: %w", opn, pageURL, err)
	}

	if looksLikeJSON(content) {
		candidates := p.extractAPI(ctx, content, base, limit)
		log.InfoContext(ctx, "extracted candidates from api payload", "count", len(candidates))
		return candidates, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%s: data cannot be parsed as HTML: %w", opn, err)
	}

	items := selectContainers(doc)
	log.DebugContext(ctx, "containers found", "count", items.Length())

	var (
		candidates    []models.Candidate
		dropped       int
		detailFetches int
	)

	for i := range items.Length() {
		if limit > 0 && len(candidates) >= limit {
			break
		}
		if err = ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", opn, err)
		}

		c := extractCandidate(items.Eq(i), base)

		if c.CurrentPrice == 0 && c.Name != "" && c.URL != "" && p.detailAllowed(detailFetches) {
			detailFetches++
			p.fillFromDetail(ctx, log, &c)
		}

		if !c.Valid() {
			dropped++
			log.DebugContext(
				ctx,
				"container dropped",
				"index", i,
				"name", c.Name != "",
				"price", c.CurrentPrice > 0,
				"link", c.URL != "",
			)
			continue
		}

		candidates = append(candidates, c)
	}

	log.InfoContext(
		ctx,
		"extracted candidates",
		"count", len(candidates),
		"dropped", dropped,
		"detail_fetches", detailFetches,
	)

	return candidates, nil
}

func (p *Parser) detailAllowed(used int) bool {
	return p.detail != nil && p.cfg.DetailFallback && used < p.cfg.MaxDetailFetches
}

func (p *Parser) fillFromDetail(ctx context.Context, log *slog.Logger, c *models.Candidate) {
	price, err := p.ExtractDetail(ctx, c.URL)
	if err != nil {
		log.WarnContext(ctx, "detail fallback failed", "product_url", c.URL, "error", err)
		return
	}

	c.CurrentPrice = price.Current
	if c.OriginalPrice == nil {
		c.OriginalPrice = price.Original
	}
	normalizePrices(c)
}

// normalizePrices keeps the original price only when it is not below the current one
// and derives the discount from what is left.
func normalizePrices(c *models.Candidate) {
	c.OriginalPrice = pricing.ConsistentOriginal(c.OriginalPrice, c.CurrentPrice)
	c.DiscountPercent = pricing.Discount(c.OriginalPrice, c.CurrentPrice)
}

func selectContainers(doc *goquery.Document) *goquery.Selection {
	for _, family := range containerFamilies {
		if items := doc.Find(family); items.Length() > 0 {
			return items
		}
	}

	return doc.Find(containerFamilies[0])
}

func extractCandidate(item *goquery.Selection, base *url.URL) models.Candidate {
	var c models.Candidate

	c.Name, c.URL = extractTitle(item)
	if c.URL != "" {
		c.URL = resolveURL(base, c.URL)
	}

	if img := extractImage(item); img != "" {
		img = resolveURL(base, img)
		c.ImageURL = &img
	}

	current, original := extractListingPrice(item)
	if current != nil {
		c.CurrentPrice = *current
	}
	c.OriginalPrice = original
	normalizePrices(&c)

	if id, ok := item.Attr("data-id"); ok && strings.TrimSpace(id) != "" {
		id = normalizePlatformID(id)
		c.PlatformID = &id
	} else if id = platformIDFromURL(c.URL); id != "" {
		c.PlatformID = &id
	}

	return c
}

func extractTitle(item *goquery.Selection) (string, string) {
	for _, sel := range titleSelectors {
		tag := item.Find(sel).First()
		if tag.Length() == 0 {
			continue
		}

		name := strings.TrimSpace(tag.Text())
		if name == "" {
			name = strings.TrimSpace(tag.AttrOr("title", ""))
		}
		href := strings.TrimSpace(tag.AttrOr("href", ""))

		if name != "" && href != "" {
			return name, href
		}
	}

	// Some layouts keep the title outside the anchor.
	name := strings.TrimSpace(item.Find("h2, h3").First().Text())
	href := strings.TrimSpace(item.Find("a[href]").First().AttrOr("href", ""))

	return name, href
}

func extractImage(item *goquery.Selection) string {
	for _, sel := range imageSelectors {
		img := item.Find(sel).First()
		if img.Length() == 0 {
			continue
		}
		for _, attr := range imageAttrs {
			v := strings.TrimSpace(img.AttrOr(attr, ""))
			if v != "" && !strings.HasPrefix(v, "data:") {
				return v
			}
		}
	}

	return ""
}

func resolveURL(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}

	return base.ResolveReference(u).String()
}

func looksLikeJSON(content string) bool {
	trimmed := strings.TrimSpace(content)
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

// parseDocument is shared by the detail path, which receives raw content.
func parseDocument(r io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("data cannot be parsed as HTML: %w", err)
	}

	return doc, nil
}
