package exporter

import (
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/depop-scraper/internal/models"
)

func sampleRows() []models.ListingRow {
	row := models.NewListingRow("https://www.depop.com/products/a-1/")
	row.Brand = "Supreme"
	row.ItemName = "Box Logo Hoodie"
	row.Price = "$120.00"
	row.Size = "L"
	row.Condition = "Used - Excellent"
	return []models.ListingRow{row}
}

func TestWriteCSV(t *testing.T) {
	exp := New(t.TempDir(), slog.Default())

	path, err := exp.WriteCSV("streetwear finds", sampleRows())
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, models.SheetHeaders, records[0])
	assert.Equal(t, []string{
		"Depop", "Supreme", "Box Logo Hoodie", "$120.00", "L",
		"Used - Excellent", "https://www.depop.com/products/a-1/",
	}, records[1])
	assert.Contains(t, path, "streetwear_finds_")
}

func TestWriteJSON(t *testing.T) {
	exp := New(t.TempDir(), slog.Default())

	path, err := exp.WriteJSON("streetwear", sampleRows())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var rows []models.ListingRow
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Box Logo Hoodie", rows[0].ItemName)
	assert.Equal(t, models.Platform, rows[0].Platform)
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Streetwear Finds", "streetwear_finds"},
		{"mens/jackets!", "mensjackets"},
		{"  ", "listings"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, slugify(tt.in), tt.in)
	}
}
