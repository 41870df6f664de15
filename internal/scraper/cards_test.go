package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/depop-scraper/internal/models"
)

func TestParseCards(t *testing.T) {
	harvest := []interface{}{
		map[string]interface{}{
			"href":  "/products/seller-supreme-box-logo-hoodie-1234/",
			"texts": []interface{}{"$120.00", "Supreme", "L"},
			"alt":   "Supreme box logo hoodie in red",
		},
		map[string]interface{}{
			"href":  "",
			"texts": []interface{}{"ignored"},
		},
		"not a card",
	}

	cards := parseCards(harvest)

	require.Len(t, cards, 1)
	assert.Equal(t, "/products/seller-supreme-box-logo-hoodie-1234/", cards[0].Href)
	assert.Equal(t, []string{"$120.00", "Supreme", "L"}, cards[0].Texts)
	assert.Equal(t, "Supreme box logo hoodie in red", cards[0].Alt)
}

func TestBuildRows(t *testing.T) {
	tests := []struct {
		name string
		card rawCard
		want models.ListingRow
	}{
		{
			name: "full card with alt title",
			card: rawCard{
				Href:  "/products/seller-box-logo-hoodie-1234/",
				Texts: []string{"$120.00", "Supreme"},
				Alt:   "Supreme Box Logo Hoodie",
			},
			want: models.ListingRow{
				Platform: models.Platform,
				Brand:    "Supreme",
				ItemName: "Box Logo Hoodie",
				Price:    "$120.00",
				Link:     "https://www.depop.com/products/seller-box-logo-hoodie-1234/",
			},
		},
		{
			name: "slug title when alt missing",
			card: rawCard{
				Href:  "/products/seller-vintage-denim-jacket-98765/",
				Texts: []string{"£45"},
			},
			want: models.ListingRow{
				Platform: models.Platform,
				ItemName: "Seller Vintage Denim Jacket",
				Price:    "£45",
				Link:     "https://www.depop.com/products/seller-vintage-denim-jacket-98765/",
			},
		},
		{
			name: "last short text wins as brand",
			card: rawCard{
				Href:  "/products/x-plain-tee-1/",
				Texts: []string{"$10", "Some very long marketing sentence that is clearly not a brand name at all", "Nike"},
				Alt:   "Plain tee",
			},
			want: models.ListingRow{
				Platform: models.Platform,
				Brand:    "Nike",
				ItemName: "Plain tee",
				Price:    "$10",
				Link:     "https://www.depop.com/products/x-plain-tee-1/",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := buildRows([]rawCard{tt.card})
			require.Len(t, rows, 1)
			assert.Equal(t, tt.want, rows[0])
		})
	}
}

func TestBuildRowsDropsNonProductLinks(t *testing.T) {
	rows := buildRows([]rawCard{
		{Href: "/sellers/cool-shop/", Texts: []string{"$10"}},
		{Href: "/products/a-real-item-1/", Texts: []string{"$10"}},
	})

	require.Len(t, rows, 1)
	assert.Equal(t, "https://www.depop.com/products/a-real-item-1/", rows[0].Link)
}

func TestTitleFromSlug(t *testing.T) {
	tests := []struct {
		href string
		want string
	}{
		{"/products/seller-vintage-levis-501-jeans-12345/", "Seller Vintage Levis Jeans"},
		{"/products/plain-tee/", "Plain Tee"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, titleFromSlug(tt.href), tt.href)
	}
}

func TestStripBrandPrefix(t *testing.T) {
	assert.Equal(t, "Box Logo Hoodie", stripBrandPrefix("Supreme Box Logo Hoodie", "Supreme"))
	assert.Equal(t, "Box Logo Hoodie", stripBrandPrefix("supreme Box Logo Hoodie", "SUPREME"))
	assert.Equal(t, "Supreme", stripBrandPrefix("Supreme", "Supreme"))
	assert.Equal(t, "Hoodie", stripBrandPrefix("Hoodie", ""))
}
