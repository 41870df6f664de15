// Package normalize holds the pure field-cleanup functions shared by
// the card extractor, the detail enricher and the final output filter.
package normalize

import (
	"net/url"
	"regexp"
	"strings"
)

// productPathMarker is the path segment that distinguishes a product
// detail page from a search or listing page.
const productPathMarker = "/products/"

var (
	whitespaceRe = regexp.MustCompile(`\s+`)

	// symbol-prefixed amount, e.g. "$1,299.99" or "£ 12,50"
	symbolPriceRe = regexp.MustCompile(`([$£€])\s*([0-9][0-9.,]*)`)
	// ISO code amount, e.g. "USD 45.00"
	codePriceRe = regexp.MustCompile(`(?i)\b(USD|GBP|EUR)\b[\s:]*([0-9][0-9.,]*)`)
	// bare numeric fallback
	barePriceRe = regexp.MustCompile(`[0-9][0-9.,]*`)
)

var codeSymbols = map[string]string{
	"USD": "$",
	"GBP": "£",
	"EUR": "€",
}

// Title trims and collapses whitespace, then cuts the title before the
// first seller/vendor separator (" by " or " | "). The output never
// contains either separator token.
func Title(raw string) string {
	s := whitespaceRe.ReplaceAllString(strings.TrimSpace(raw), " ")
	for _, sep := range []string{" by ", " | "} {
		if i := strings.Index(s, sep); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

// Price canonicalizes free-form price text to "<symbol><amount>".
// Precedence is strict: a symbol-prefixed match always wins over an
// ISO-code match, which always wins over a bare number (which gets a
// "$" default). Commas are always stripped as thousands separators,
// never reinterpreted as decimal points, so "£ 12,50" becomes "£1250".
// Returns "" when the input holds no number at all.
func Price(raw string) string {
	if m := symbolPriceRe.FindStringSubmatch(raw); m != nil {
		return m[1] + cleanAmount(m[2])
	}
	if m := codePriceRe.FindStringSubmatch(raw); m != nil {
		return codeSymbols[strings.ToUpper(m[1])] + cleanAmount(m[2])
	}
	if m := barePriceRe.FindString(raw); m != "" {
		return "$" + cleanAmount(m)
	}
	return ""
}

func cleanAmount(s string) string {
	s = strings.ReplaceAll(s, ",", "")
	return strings.TrimRight(s, ".")
}

// IsProductLink reports whether the URL points at a product detail
// page rather than a search or listing page. Used both to filter
// candidates during collection and as the final output safety filter.
func IsProductLink(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	path := u.Path
	if path == "" {
		path = raw
	}
	return strings.Contains(path, productPathMarker)
}
