package main

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/maltedev/depop-scraper/internal/config"
	"github.com/maltedev/depop-scraper/internal/exporter"
	"github.com/maltedev/depop-scraper/internal/models"
	"github.com/maltedev/depop-scraper/internal/sheets"
)

// A broken sheet must not cost the run its rows: the append fails,
// and the CSV export afterwards still writes every row.
func TestExportSucceedsAfterSheetFailure(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `=~^https://sheets\.googleapis\.com/.*`,
		httpmock.NewJsonResponderOrPanic(403, map[string]interface{}{
			"error": map[string]interface{}{
				"code":    403,
				"message": "The caller does not have permission",
			},
		}))

	client := &http.Client{Transport: transport}
	svc, err := sheetsapi.NewService(context.Background(), option.WithHTTPClient(client))
	require.NoError(t, err)

	sink := sheets.NewWithService(svc, config.SheetsConfig{
		SpreadsheetID:  "sheet",
		MaxRetries:     1,
		RetryBaseDelay: time.Millisecond,
	}, slog.Default(), nil)

	rows := []models.ListingRow{
		{
			Platform: models.Platform,
			Brand:    "Supreme",
			ItemName: "Box Logo Hoodie",
			Price:    "$120.00",
			Link:     "https://www.depop.com/products/seller-box-logo/",
		},
	}

	err = appendToSheet(context.Background(), sink, false, "streetwear", rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to prepare worksheet")

	path, err := exporter.New(t.TempDir(), slog.Default()).WriteCSV("streetwear", rows)
	require.NoError(t, err)
	assert.FileExists(t, path)
}
