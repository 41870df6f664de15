package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProductPageStateJSON(t *testing.T) {
	parser := NewDepopParser()

	html := `<!DOCTYPE html>
<html>
<body>
	<h1>Supreme Box Logo Hoodie</h1>
	<div data-testid="price">£240.00</div>
	<script id="__NEXT_DATA__" type="application/json">
	{"props":{"pageProps":{"product":{"selectedSize":"L","condition":"UsedCondition","brand":{"name":"Supreme"}}}}}
	</script>
</body>
</html>`

	d, err := parser.ParseProductPage(html)
	require.NoError(t, err)

	assert.Equal(t, "Supreme Box Logo Hoodie", d.Title)
	assert.Equal(t, "£240.00", d.Price)
	assert.Equal(t, "L", d.Size)
	assert.Equal(t, "Used", d.Condition)
	assert.Equal(t, "Supreme", d.Brand)
}

func TestParseProductPageLinkedData(t *testing.T) {
	parser := NewDepopParser()

	html := `<html><body>
	<h1>Vintage Levi's 501</h1>
	<script type="application/ld+json">
	{"@type":"Product","brand":{"@type":"Brand","name":"Levi's"},
	 "offers":{"@type":"Offer","itemCondition":"https://schema.org/NewCondition","price":"55.00"},
	 "size":"W32 L30"}
	</script>
</body></html>`

	d, err := parser.ParseProductPage(html)
	require.NoError(t, err)

	assert.Equal(t, "W32 L30", d.Size)
	assert.Equal(t, "Brand New", d.Condition)
	assert.Equal(t, "Levi's", d.Brand)
}

func TestParseProductPageMicrodataCondition(t *testing.T) {
	parser := NewDepopParser()

	html := `<html><body>
	<h1>Carhartt Detroit Jacket</h1>
	<meta itemprop="itemCondition" content="RefurbishedCondition">
</body></html>`

	d, err := parser.ParseProductPage(html)
	require.NoError(t, err)
	assert.Equal(t, "Refurbished", d.Condition)
}

func TestParseProductPageDefinitionPairs(t *testing.T) {
	parser := NewDepopParser()

	html := `<html><body>
	<h1>Nike Vintage Windbreaker</h1>
	<dl>
		<dt>Size</dt><dd>XL</dd>
		<dt>Condition</dt><dd>Very good</dd>
	</dl>
</body></html>`

	d, err := parser.ParseProductPage(html)
	require.NoError(t, err)

	assert.Equal(t, "XL", d.Size)
	assert.Equal(t, "Very good", d.Condition)
}

func TestParseProductPageFreeTextFallback(t *testing.T) {
	parser := NewDepopParser()

	html := `<html><body>
	<h1>Arcteryx Alpha SV</h1>
	<p>Great shell, size: M, barely worn. Excellent condition overall.</p>
</body></html>`

	d, err := parser.ParseProductPage(html)
	require.NoError(t, err)

	assert.Equal(t, "M", d.Size)
	assert.Equal(t, "Excellent condition", d.Condition)
}

func TestGranularConditionOverridesGenericUsed(t *testing.T) {
	parser := NewDepopParser()

	html := `<html><body>
	<h1>Patagonia Fleece</h1>
	<script id="__NEXT_DATA__" type="application/json">
	{"product":{"condition":"UsedCondition"}}
	</script>
	<p>Very good condition, tiny mark on the sleeve.</p>
</body></html>`

	d, err := parser.ParseProductPage(html)
	require.NoError(t, err)
	assert.Equal(t, "Very good condition", d.Condition)
}

func TestGranularConditionDoesNotOverrideSpecific(t *testing.T) {
	parser := NewDepopParser()

	html := `<html><body>
	<h1>Patagonia Fleece</h1>
	<script id="__NEXT_DATA__" type="application/json">
	{"product":{"condition":"NewCondition"}}
	</script>
	<p>Listed in good condition by a previous owner.</p>
</body></html>`

	d, err := parser.ParseProductPage(html)
	require.NoError(t, err)
	assert.Equal(t, "Brand New", d.Condition)
}

func TestStateJSONWinsOverLaterLayers(t *testing.T) {
	parser := NewDepopParser()

	html := `<html><body>
	<h1>Stussy Tee</h1>
	<script id="__NEXT_DATA__" type="application/json">
	{"listing":{"sizeLabel":"S"}}
	</script>
	<dl><dt>Size</dt><dd>XXL</dd></dl>
</body></html>`

	d, err := parser.ParseProductPage(html)
	require.NoError(t, err)
	assert.Equal(t, "S", d.Size)
}

func TestParseProductPageNothingFound(t *testing.T) {
	parser := NewDepopParser()

	d, err := parser.ParseProductPage(`<html><body><p>sold out</p></body></html>`)
	require.NoError(t, err)

	assert.Empty(t, d.Title)
	assert.Empty(t, d.Price)
	assert.Empty(t, d.Size)
	assert.Empty(t, d.Condition)
	assert.Empty(t, d.Brand)
}

func TestPrettyCondition(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"NewCondition", "Brand New"},
		{"https://schema.org/UsedCondition", "Used"},
		{"DamagedCondition", "Damaged"},
		{"Very good", "Very good"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, prettyCondition(tt.input))
	}
}
