package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DepopParser recovers listing fields from a product detail page using
// a layered cascade: embedded hydration JSON, then linked-data /
// microdata blocks, then visible term/definition pairs, then free-text
// regex over the rendered page as last resort. Each layer is only
// consulted when the previous one yielded nothing.
type DepopParser struct {
	sizeTextRe       *regexp.Regexp
	granularCondRe   *regexp.Regexp
	whitespaceRe     *regexp.Regexp
	sizeAliases      []string
	conditionAliases []string
	brandAliases     []string
}

// schema.org itemCondition enum tokens mapped to human labels.
var conditionLabels = map[string]string{
	"NewCondition":         "Brand New",
	"UsedCondition":        "Used",
	"RefurbishedCondition": "Refurbished",
	"DamagedCondition":     "Damaged",
}

func NewDepopParser() *DepopParser {
	return &DepopParser{
		sizeTextRe:     regexp.MustCompile(`(?i)\b(?:size|sz)\s*[:\-]?\s*([A-Za-z0-9./\- ]{1,12})`),
		granularCondRe: regexp.MustCompile(`(?i)\b(brand\s*new|new with tags|new without tags|excellent|very good|good|fair|poor)\s+condition\b`),
		whitespaceRe:   regexp.MustCompile(`\s+`),
		sizeAliases: []string{
			"size", "selectedsize", "variant", "itemsize", "productsize", "sizelabel",
		},
		conditionAliases: []string{
			"condition", "itemcondition", "productcondition", "conditionlabel", "conditiontext",
		},
		brandAliases: []string{
			"brand", "brandname", "vendor",
		},
	}
}

// ParseProductPage extracts title, price, size, condition and brand
// from a rendered product detail page.
func (p *DepopParser) ParseProductPage(html string) (*Detail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	d := &Detail{
		Title: p.extractTitle(doc),
		Price: p.extractPrice(doc),
	}

	state := p.decodeStateJSON(doc)
	linked := p.decodeLinkedData(doc)

	// Layer 1: hydration state JSON.
	if state != nil {
		d.Size = p.findStringByKeys(state, p.sizeAliases)
		if raw := p.findStringByKeys(state, p.conditionAliases); raw != "" {
			d.Condition = prettyCondition(raw)
		}
		d.Brand = p.findStringByKeys(state, p.brandAliases)
	}

	// Layer 2: linked-data blocks and microdata.
	if d.Condition == "" {
		if content, ok := doc.Find(`[itemprop="itemCondition"]`).Attr("content"); ok && content != "" {
			d.Condition = prettyCondition(content)
		}
	}
	for _, block := range linked {
		if d.Size == "" {
			d.Size = p.findStringByKeys(block, p.sizeAliases)
		}
		if d.Condition == "" {
			if raw := p.findStringByKeys(block, p.conditionAliases); raw != "" {
				d.Condition = prettyCondition(raw)
			}
		}
		if d.Brand == "" {
			d.Brand = p.findStringByKeys(block, p.brandAliases)
		}
	}

	// Layer 3: visible term/definition pairs.
	if d.Size == "" {
		d.Size = p.definitionValue(doc, "size")
	}
	if d.Condition == "" {
		d.Condition = p.definitionValue(doc, "condition")
	}

	// Layer 4: free-text scan of the rendered page.
	bodyText := doc.Find("body").Text()
	if d.Size == "" {
		if m := p.sizeTextRe.FindStringSubmatch(bodyText); m != nil {
			d.Size = p.clean(m[1])
		}
	}
	// A granular condition phrase beats a prior generic "Used".
	if m := p.granularCondRe.FindStringSubmatch(bodyText); m != nil {
		granular := p.clean(m[0])
		if d.Condition == "" || strings.EqualFold(d.Condition, "used") {
			d.Condition = granular
		}
	}

	return d, nil
}

func (p *DepopParser) extractTitle(doc *goquery.Document) string {
	for _, sel := range []string{"h1", `[data-testid="listing-title"]`, `[itemprop="name"]`} {
		if txt := p.clean(doc.Find(sel).First().Text()); txt != "" {
			return txt
		}
	}
	return ""
}

func (p *DepopParser) extractPrice(doc *goquery.Document) string {
	selectors := []string{
		`[data-testid="price"]`,
		`div[aria-label*='Price']`,
		`span[aria-label*='Price']`,
		`[itemprop="price"]`,
	}
	for _, sel := range selectors {
		if txt := p.clean(doc.Find(sel).First().Text()); txt != "" {
			return txt
		}
	}
	return ""
}

// decodeStateJSON returns the client-side hydration payload, if any.
func (p *DepopParser) decodeStateJSON(doc *goquery.Document) interface{} {
	raw := doc.Find("script#__NEXT_DATA__").First().Text()
	if raw == "" {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil
	}
	return v
}

// decodeLinkedData returns all parseable ld+json blocks.
func (p *DepopParser) decodeLinkedData(doc *goquery.Document) []interface{} {
	var blocks []interface{}
	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, s *goquery.Selection) {
		var v interface{}
		if err := json.Unmarshal([]byte(s.Text()), &v); err == nil {
			blocks = append(blocks, v)
		}
	})
	return blocks
}

// definitionValue finds a dt-style label whose text starts with the
// given prefix and returns the text of its value sibling.
func (p *DepopParser) definitionValue(doc *goquery.Document, prefix string) string {
	var value string
	doc.Find(`dt, [role="term"]`).EachWithBreak(func(i int, s *goquery.Selection) bool {
		label := strings.ToLower(p.clean(s.Text()))
		if !strings.HasPrefix(label, prefix) {
			return true
		}
		if txt := p.clean(s.Next().Text()); txt != "" {
			value = txt
			return false
		}
		return true
	})
	return value
}

// findStringByKeys walks a decoded JSON object graph breadth-first and
// returns the first string-ish value stored under any of the aliased
// keys (case-insensitive).
func (p *DepopParser) findStringByKeys(root interface{}, keys []string) string {
	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		wanted[k] = true
	}

	stack := []interface{}{root}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch node := cur.(type) {
		case map[string]interface{}:
			for k, v := range node {
				if wanted[strings.ToLower(k)] {
					if s := stringish(v); s != "" {
						return s
					}
				}
				switch v.(type) {
				case map[string]interface{}, []interface{}:
					stack = append(stack, v)
				}
			}
		case []interface{}:
			for _, v := range node {
				switch v.(type) {
				case map[string]interface{}, []interface{}:
					stack = append(stack, v)
				}
			}
		}
	}
	return ""
}

// stringish coerces a JSON value into a usable string: plain strings
// and numbers directly, objects through their common label fields.
func stringish(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strings.TrimSuffix(strings.TrimSuffix(fmt.Sprintf("%.2f", val), "00"), ".")
	case map[string]interface{}:
		for _, field := range []string{"name", "value", "label", "text", "@id"} {
			if s, ok := val[field].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// prettyCondition maps schema.org condition identifiers (bare tokens
// or URLs) to human labels; unknown values pass through unchanged.
func prettyCondition(raw string) string {
	s := strings.TrimSpace(raw)
	slug := s
	if strings.HasPrefix(s, "http") {
		parts := strings.Split(strings.TrimRight(s, "/"), "/")
		slug = parts[len(parts)-1]
	}
	if label, ok := conditionLabels[slug]; ok {
		return label
	}
	return s
}

func (p *DepopParser) clean(s string) string {
	return strings.TrimSpace(p.whitespaceRe.ReplaceAllString(s, " "))
}
