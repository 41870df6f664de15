package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/depop-scraper/internal/models"
)

func TestAddBatchReturnsOnlyFreshRows(t *testing.T) {
	store, err := NewListingStore(filepath.Join(t.TempDir(), "listings.json"))
	require.NoError(t, err)

	first := []models.ListingRow{
		models.NewListingRow("https://www.depop.com/products/a-1/"),
		models.NewListingRow("https://www.depop.com/products/b-2/"),
	}
	fresh, err := store.AddBatch("streetwear", first)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)

	second := []models.ListingRow{
		models.NewListingRow("https://www.depop.com/products/b-2/"),
		models.NewListingRow("https://www.depop.com/products/c-3/"),
	}
	fresh, err = store.AddBatch("streetwear", second)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, "https://www.depop.com/products/c-3/", fresh[0].Link)
}

func TestStoreSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.json")

	store, err := NewListingStore(path)
	require.NoError(t, err)

	row := models.NewListingRow("https://www.depop.com/products/a-1/")
	row.ItemName = "Box Logo Hoodie"
	_, err = store.AddBatch("streetwear", []models.ListingRow{row})
	require.NoError(t, err)

	reloaded, err := NewListingStore(path)
	require.NoError(t, err)

	listing, ok := reloaded.Get("https://www.depop.com/products/a-1/")
	require.True(t, ok)
	assert.Equal(t, "Box Logo Hoodie", listing.Row.ItemName)
	assert.Equal(t, "streetwear", listing.Term)
	assert.True(t, reloaded.ExistingLinks()["https://www.depop.com/products/a-1/"])
}

func TestGetStats(t *testing.T) {
	store, err := NewListingStore(filepath.Join(t.TempDir(), "listings.json"))
	require.NoError(t, err)

	_, err = store.AddBatch("streetwear", []models.ListingRow{
		models.NewListingRow("https://www.depop.com/products/a-1/"),
		models.NewListingRow("https://www.depop.com/products/b-2/"),
	})
	require.NoError(t, err)
	_, err = store.AddBatch("denim", []models.ListingRow{
		models.NewListingRow("https://www.depop.com/products/c-3/"),
	})
	require.NoError(t, err)

	stats := store.GetStats()
	assert.Equal(t, 3, stats["total"])
	assert.Equal(t, 2, stats["streetwear"])
	assert.Equal(t, 1, stats["denim"])
}
