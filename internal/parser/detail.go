package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

var (
	ErrNoDetailFetcher = errors.New("detail fetcher is not configured")
	ErrNoDetailPrice   = errors.New("no price found on detail page")
)

// DetailPrice is what a single-product page tells about pricing.
type DetailPrice struct {
	Current  float64
	Original *float64
}

// JSON-LD paths for offers, single or multiple, in order of preference.
var jsonLDPricePaths = []string{
	"offers.price",
	"offers.0.price",
	"offers.lowPrice",
	`\@graph.#.offers.price|0`,
	"0.offers.price",
}

// ExtractDetail fetches productURL and reads its price.
func (p *Parser) ExtractDetail(ctx context.Context, productURL string) (DetailPrice, error) {
	const opn = "parser.ExtractDetail"

	if p.detail == nil {
		return DetailPrice{}, fmt.Errorf("%s: %w", opn, ErrNoDetailFetcher)
	}

	content, err := p.detail.FetchDetail(ctx, productURL)
	if err != nil {
		return DetailPrice{}, fmt.Errorf("%s: failed to fetch %s: %w", opn, productURL, err)
	}

	price, err := ParseDetail(content)
	if err != nil {
		return DetailPrice{}, fmt.Errorf("%s: %s: %w", opn, productURL, err)
	}

	p.log.DebugContext(ctx, "detail price found", "op", opn, "product_url", productURL, "price", price.Current)

	return price, nil
}

// ParseDetail reads a product page: structured data first, then the price block markup,
// and finally the listing tiers over the whole document.
func ParseDetail(content string) (DetailPrice, error) {
	doc, err := parseDocument(strings.NewReader(content))
	if err != nil {
		return DetailPrice{}, err
	}

	var price DetailPrice

	switch {
	case setIfFound(&price.Current, jsonLDPrice(doc)):
	case setIfFound(&price.Current, metaPrice(doc)):
	case setIfFound(&price.Current, pdpPrice(doc)):
	default:
		current, original := extractListingPrice(doc.Selection)
		if current == nil {
			return DetailPrice{}, ErrNoDetailPrice
		}
		price.Current, price.Original = *current, original
	}

	if price.Original == nil {
		price.Original = pdpOriginal(doc)
	}

	return price, nil
}

func setIfFound(dst *float64, v float64) bool {
	if v > 0 {
		*dst = v
		return true
	}

	return false
}

func jsonLDPrice(doc *goquery.Document) float64 {
	var price float64
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := s.Text()
		if !gjson.Valid(raw) {
			return true
		}
		for _, path := range jsonLDPricePaths {
			if v := jsonPrice(gjson.Get(raw, path)); v > 0 {
				price = v
				return false
			}
		}
		return true
	})

	return price
}

func metaPrice(doc *goquery.Document) float64 {
	return machinePrice(doc.Find(`meta[itemprop="price"]`).First().AttrOr("content", ""))
}

func pdpPrice(doc *goquery.Document) float64 {
	amount := doc.Find(".ui-pdp-price__second-line .andes-money-amount").First()
	if amount.Length() == 0 {
		return 0
	}

	v, _ := amountValue(amount)

	return v
}

func pdpOriginal(doc *goquery.Document) *float64 {
	for _, sel := range []string{".ui-pdp-price__original-value", "s.andes-money-amount"} {
		tag := doc.Find(sel).First()
		if tag.Length() == 0 {
			continue
		}
		if v, ok := amountValue(tag); ok {
			return &v
		}
	}

	return nil
}
