package scraper

import (
	"strings"

	"github.com/maltedev/depop-scraper/internal/models"
	"github.com/maltedev/depop-scraper/internal/normalize"
)

const depopBaseURL = "https://www.depop.com"

// cardScript harvests raw card data in one round trip: the product
// href, the short texts rendered inside the card, and the image alt.
// Interpretation happens Go-side so it stays testable.
const cardScript = `(() => {
  const cards = [];
  const seen = new Set();
  const anchors = Array.from(document.querySelectorAll('a[href^="/products/"]'));
  for (const a of anchors) {
    const href = a.getAttribute('href');
    if (!href || seen.has(href)) continue;
    seen.add(href);
    const root = a.closest('li') || a;
    const texts = [];
    for (const el of root.querySelectorAll('p, span')) {
      const t = (el.textContent || '').trim();
      if (t && texts.indexOf(t) === -1) texts.push(t);
    }
    const img = root.querySelector('img');
    cards.push({
      href: href,
      texts: texts.slice(0, 12),
      alt: img ? (img.getAttribute('alt') || '') : ''
    });
  }
  return cards;
})()`

// rawCard is the untyped harvest for a single result card.
type rawCard struct {
	Href  string
	Texts []string
	Alt   string
}

// parseCards converts the evaluate result into typed cards.
func parseCards(v interface{}) []rawCard {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}

	cards := make([]rawCard, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		card := rawCard{
			Href: asString(m["href"]),
			Alt:  asString(m["alt"]),
		}
		if texts, ok := m["texts"].([]interface{}); ok {
			for _, t := range texts {
				if s := asString(t); s != "" {
					card.Texts = append(card.Texts, s)
				}
			}
		}
		if card.Href != "" {
			cards = append(cards, card)
		}
	}
	return cards
}

// buildRows turns harvested cards into listing rows. Card text is
// unlabeled, so fields are guessed: the first price-looking text is
// the price, the last short non-price text is the brand, and the
// title prefers the image alt over the URL slug.
func buildRows(cards []rawCard) []models.ListingRow {
	rows := make([]models.ListingRow, 0, len(cards))
	for _, card := range cards {
		link := card.Href
		if strings.HasPrefix(link, "/") {
			link = depopBaseURL + link
		}
		if !normalize.IsProductLink(link) {
			continue
		}

		row := models.NewListingRow(link)

		for _, text := range card.Texts {
			if row.Price == "" {
				if price := normalize.Price(text); price != "" {
					row.Price = price
					continue
				}
			}
			if len(text) <= 40 && normalize.Price(text) == "" {
				row.Brand = text
			}
		}

		if card.Alt != "" {
			row.ItemName = normalize.Title(card.Alt)
		}
		if row.ItemName == "" {
			row.ItemName = titleFromSlug(card.Href)
		}
		row.ItemName = stripBrandPrefix(row.ItemName, row.Brand)

		rows = append(rows, row)
	}
	return rows
}

// titleFromSlug reconstructs a readable title from the product URL
// slug, dropping purely numeric id tokens.
func titleFromSlug(href string) string {
	slug := strings.Trim(href, "/")
	if i := strings.LastIndex(slug, "/"); i >= 0 {
		slug = slug[i+1:]
	}

	var words []string
	for _, part := range strings.Split(slug, "-") {
		if part == "" || isNumeric(part) {
			continue
		}
		words = append(words, upperFirst(strings.ToLower(part)))
	}
	return strings.Join(words, " ")
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// stripBrandPrefix removes a leading brand name from the title so
// "Supreme Box Logo Hoodie" with brand "Supreme" reads "Box Logo
// Hoodie".
func stripBrandPrefix(title, brand string) string {
	if title == "" || brand == "" {
		return title
	}
	lower := strings.ToLower(title)
	prefix := strings.ToLower(brand)
	if strings.HasPrefix(lower, prefix) {
		trimmed := strings.TrimSpace(title[len(brand):])
		if trimmed != "" {
			return trimmed
		}
	}
	return title
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
