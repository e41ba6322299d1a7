// Package pricing normalizes localized currency strings and derives discounts.
package pricing

import (
	"math"
	"strconv"
	"strings"
)

// thousandsGroupLen is the digit count that marks a lone dot as a thousands separator.
const thousandsGroupLen = 3

// ParsePrice converts free text such as "R$ 1.234,56" into a number.
// The boolean is false on empty input or when nothing numeric remains.
//
// Separator rules:
//   - both '.' and ',' present: the one occurring last is the decimal mark;
//   - a single separator occurring once is the decimal mark, except a lone '.'
//     followed by exactly three digits, which is a thousands group ("4.798");
//   - one separator type occurring several times: all are thousands groups.
func ParsePrice(text string) (float64, bool) {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return 0, false
	}

	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")

	switch {
	case dots > 0 && commas > 0:
		last := max(strings.LastIndex(s, "."), strings.LastIndex(s, ","))
		s = stripSeparators(s[:last]) + "." + s[last+1:]
	case dots+commas == 1:
		idx := strings.IndexAny(s, ".,")
		if s[idx] == '.' && len(s)-idx-1 == thousandsGroupLen {
			s = stripSeparators(s)
		} else {
			s = s[:idx] + "." + s[idx+1:]
		}
	default:
		s = stripSeparators(s)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}

	return v, true
}

func stripSeparators(s string) string {
	return strings.NewReplacer(".", "", ",", "").Replace(s)
}

// Discount derives the discount percentage rounded to one decimal.
// It returns nil unless original > current > 0.
func Discount(original *float64, current float64) *float64 {
	if original == nil || current <= 0 || *original <= current {
		return nil
	}
	d := math.Round((*original-current) / *original * 1000) / 10
	return &d
}

// ConsistentOriginal returns original unless it is below current, in which case it is dropped.
func ConsistentOriginal(original *float64, current float64) *float64 {
	if original == nil || *original < current {
		return nil
	}
	return original
}

// SamePrice compares two prices with a half-cent tolerance.
func SamePrice(a, b float64) bool {
	return math.Abs(a-b) < 0.005
}

// FormatBRL renders a value the way listing pages do: "1.234,56".
func FormatBRL(v float64) string {
	raw := strconv.FormatFloat(math.Abs(v), 'f', 2, 64)
	intPart, frac, _ := strings.Cut(raw, ".")

	var b strings.Builder
	if v < 0 {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%thousandsGroupLen == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)

	return b.String()
}
