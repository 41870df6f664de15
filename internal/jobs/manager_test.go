package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maltedev/depop-scraper/internal/models"
)

func TestFilterNew(t *testing.T) {
	rows := []models.ListingRow{
		models.NewListingRow("https://www.depop.com/products/a-1/"),
		models.NewListingRow("https://www.depop.com/products/b-2/"),
		models.NewListingRow("https://www.depop.com/products/c-3/"),
	}
	existing := map[string]bool{
		"https://www.depop.com/products/b-2/": true,
	}

	out := filterNew(rows, existing)

	assert.Len(t, out, 2)
	assert.Equal(t, "https://www.depop.com/products/a-1/", out[0].Link)
	assert.Equal(t, "https://www.depop.com/products/c-3/", out[1].Link)
}

func TestFilterNewEmptyExisting(t *testing.T) {
	rows := []models.ListingRow{
		models.NewListingRow("https://www.depop.com/products/a-1/"),
	}

	assert.Equal(t, rows, filterNew(rows, nil))
}
