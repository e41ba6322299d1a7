package fetcher

import "strings"

// Markers decide whether fetched content carries product data or is a challenge/empty shell.
type Markers struct {
	Substrings []string // Substrings are matched against raw content.
	Selector   string   // Selector is waited for by the headless browser.
}

var (
	ListingMarkers = Markers{
		Substrings: []string{"ui-search-layout__item", "poly-card", `"results"`},
		Selector:   ".ui-search-layout__item, .poly-card",
	}
	DetailMarkers = Markers{
		Substrings: []string{"ui-pdp-price", "andes-money-amount", `itemprop="price"`},
		Selector:   ".ui-pdp-price, .andes-money-amount",
	}
)

// Found reports whether any marker substring occurs in content.
func (m Markers) Found(content string) bool {
	for _, s := range m.Substrings {
		if strings.Contains(content, s) {
			return true
		}
	}

	return false
}
