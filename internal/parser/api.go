package parser

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/pricing"
	"github.com/tidwall/gjson"
)

// extractAPI reads a search API payload: either {"results": [...]} or a bare array of items.
func (p *Parser) extractAPI(ctx context.Context, content string, base *url.URL, limit int) []models.Candidate {
	results := gjson.Get(content, "results")
	if !results.IsArray() {
		results = gjson.Parse(content)
	}
	if !results.IsArray() {
		p.log.WarnContext(ctx, "json payload has no results array", "op", "parser.extractAPI")
		return nil
	}

	var candidates []models.Candidate
	results.ForEach(func(_, item gjson.Result) bool {
		if limit > 0 && len(candidates) >= limit {
			return false
		}

		c := models.Candidate{
			Name:         strings.TrimSpace(item.Get("title").String()),
			CurrentPrice: jsonPrice(item.Get("price")),
			URL:          strings.TrimSpace(item.Get("permalink").String()),
		}
		if c.URL != "" {
			c.URL = resolveURL(base, c.URL)
		}
		if orig := jsonPrice(item.Get("original_price")); orig > 0 {
			c.OriginalPrice = &orig
		}
		normalizePrices(&c)

		if thumb := strings.TrimSpace(item.Get("thumbnail").String()); thumb != "" {
			c.ImageURL = &thumb
		}

		id := item.Get("id").String()
		if id == "" {
			id = platformIDFromURL(c.URL)
		}
		if id != "" {
			id = normalizePlatformID(id)
			c.PlatformID = &id
		}

		if c.Valid() {
			candidates = append(candidates, c)
		}

		return true
	})

	return candidates
}

// jsonPrice accepts numbers and localized strings; anything else is zero.
func jsonPrice(r gjson.Result) float64 {
	switch r.Type {
	case gjson.Number:
		return r.Float()
	case gjson.String:
		return machinePrice(r.String())
	}

	return 0
}

// machinePrice prefers the plain decimal form of structured data and falls back to
// localized parsing.
func machinePrice(s string) float64 {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	if v, ok := pricing.ParsePrice(s); ok {
		return v
	}

	return 0
}
