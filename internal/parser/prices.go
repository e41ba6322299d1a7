package parser

import (
	"regexp"
	"strings"

	"github.com/Houeta/pricewatch/internal/pricing"
	"github.com/PuerkitoBio/goquery"
)

// priceTier tries to read prices from a container. A tier succeeds when it finds a current
// price; only then are later tiers skipped.
type priceTier struct {
	name    string
	extract func(item *goquery.Selection) (current, original *float64)
}

// listingPriceTiers are ordered from most to least specific markup.
var listingPriceTiers = []priceTier{
	{name: "paired amounts", extract: pairedAmounts},
	{name: "accessible label", extract: labelledAmount},
	{name: "split cents", extract: splitAmount},
	{name: "generic amount", extract: genericAmount},
}

var originalPriceSelectors = []string{
	"s.andes-money-amount",
	".andes-money-amount--previous",
	".andes-money-amount--original",
	".price-tag-strike",
	".price-tag__subprice",
}

// strikeAmount matches blocks that show the price before a discount.
const strikeAmount = "s, .andes-money-amount--previous, .andes-money-amount--original, .price-tag-strike"

var (
	currentLabel  = regexp.MustCompile(`(?i)^\s*agora:?\s*`)
	previousLabel = regexp.MustCompile(`(?i)^\s*antes:?\s*`)
	// "4.798 reais com 90 centavos"
	labelAmount = regexp.MustCompile(`(?i)([\d.,]+)\s*reais(?:\s*com\s*(\d{1,2})\s*centavos?)?`)
)

func extractListingPrice(item *goquery.Selection) (*float64, *float64) {
	var current, original *float64
	for _, tier := range listingPriceTiers {
		if current, original = tier.extract(item); current != nil {
			break
		}
	}

	if original == nil {
		original = recoverOriginal(item)
	}

	return current, original
}

// pairedAmounts applies when exactly two amounts are shown: the larger is the price before
// the discount, the smaller is the current price.
func pairedAmounts(item *goquery.Selection) (*float64, *float64) {
	var values []float64
	item.Find(".andes-money-amount").Each(func(_ int, s *goquery.Selection) {
		if v, ok := amountValue(s); ok {
			values = append(values, v)
		}
	})
	if len(values) != 2 {
		return nil, nil
	}

	lo, hi := min(values[0], values[1]), max(values[0], values[1])
	if lo == hi {
		return &lo, nil
	}

	return &lo, &hi
}

func labelledAmount(item *goquery.Selection) (*float64, *float64) {
	tag := item.Find(`[aria-label^="Agora"], [aria-label^="agora"]`).First()
	if tag.Length() == 0 {
		return nil, nil
	}

	if v, ok := labelValue(tag.AttrOr("aria-label", ""), currentLabel); ok {
		return &v, nil
	}

	return nil, nil
}

func splitAmount(item *goquery.Selection) (*float64, *float64) {
	whole := item.Find(".andes-money-amount__unit, .andes-money-amount__main-value").FilterFunction(outsideStrike).First()
	cents := item.Find(".andes-money-amount--cents-superscript, .andes-money-amount__fraction--cents").
		FilterFunction(outsideStrike).First()
	if whole.Length() == 0 || cents.Length() == 0 {
		return nil, nil
	}

	if v, ok := joinCents(whole.Text(), cents.Text()); ok {
		return &v, nil
	}

	return nil, nil
}

// genericAmount never yields an original price. Amounts inside a strike block are skipped, so a
// card showing only the old price stays unpriced.
func genericAmount(item *goquery.Selection) (*float64, *float64) {
	tag := item.Find(".andes-money-amount__fraction, .price-tag-fraction").FilterFunction(outsideStrike).First()
	if tag.Length() == 0 {
		return nil, nil
	}

	amount := tag.ParentsFiltered(".andes-money-amount").First()
	if amount.Length() > 0 {
		if v, ok := amountValue(amount); ok {
			return &v, nil
		}
	}

	if v, ok := pricing.ParsePrice(tag.Text()); ok {
		return &v, nil
	}

	return nil, nil
}

func outsideStrike(_ int, s *goquery.Selection) bool {
	return !s.Is(strikeAmount) && s.ParentsFiltered(strikeAmount).Length() == 0
}

func recoverOriginal(item *goquery.Selection) *float64 {
	for _, sel := range originalPriceSelectors {
		tag := item.Find(sel).First()
		if tag.Length() == 0 {
			continue
		}
		if v, ok := amountValue(tag); ok {
			return &v
		}
	}

	tag := item.Find(`[aria-label^="Antes"], [aria-label^="antes"]`).First()
	if v, ok := labelValue(tag.AttrOr("aria-label", ""), previousLabel); ok {
		return &v
	}

	return nil
}

// amountValue reads a money block: fraction plus optional cents, else its own text.
func amountValue(s *goquery.Selection) (float64, bool) {
	fraction := s.Find(".andes-money-amount__fraction, .price-tag-fraction").First()
	if fraction.Length() == 0 {
		if label, ok := s.Attr("aria-label"); ok {
			if v, ok := labelValue(label, nil); ok {
				return v, true
			}
		}
		return pricing.ParsePrice(s.Text())
	}

	cents := s.Find(".andes-money-amount__cents, .price-tag-cents").First()
	if cents.Length() > 0 {
		return joinCents(fraction.Text(), cents.Text())
	}

	return pricing.ParsePrice(fraction.Text())
}

// joinCents combines an integer part shown with thousands dots and a cents part.
func joinCents(whole, cents string) (float64, bool) {
	whole, cents = strings.TrimSpace(whole), strings.TrimSpace(cents)
	if whole == "" {
		return 0, false
	}
	if cents == "" {
		return pricing.ParsePrice(whole)
	}

	return pricing.ParsePrice(whole + "," + cents)
}

// labelValue parses labels like "Agora: 1.299 reais com 90 centavos". prefix, when set, must match.
func labelValue(label string, prefix *regexp.Regexp) (float64, bool) {
	if prefix != nil {
		if !prefix.MatchString(label) {
			return 0, false
		}
		label = prefix.ReplaceAllString(label, "")
	}

	if m := labelAmount.FindStringSubmatch(label); m != nil {
		return joinCents(m[1], m[2])
	}

	return pricing.ParsePrice(strings.TrimSpace(label))
}
