package sheets

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
	"github.com/maltedev/depop-scraper/internal/models"
)

func newTestSink(t *testing.T, transport *httpmock.MockTransport) *Sink {
	t.Helper()

	client := &http.Client{Transport: transport}
	svc, err := sheetsapi.NewService(context.Background(), option.WithHTTPClient(client))
	require.NoError(t, err)

	return NewWithService(svc, config.SheetsConfig{
		SpreadsheetID:  "test-sheet",
		MaxRetries:     3,
		RetryBaseDelay: time.Millisecond,
	}, slog.Default(), nil)
}

const appendURL = `=~^https://sheets\.googleapis\.com/v4/spreadsheets/test-sheet/values/.*`

func TestAppendRowsRetriesOnRateLimit(t *testing.T) {
	transport := httpmock.NewMockTransport()
	sink := newTestSink(t, transport)

	calls := 0
	transport.RegisterResponder("POST", appendURL,
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls <= 2 {
				return httpmock.NewJsonResponse(429, map[string]interface{}{
					"error": map[string]interface{}{
						"code":    429,
						"message": "Quota exceeded",
						"status":  "RESOURCE_EXHAUSTED",
					},
				})
			}
			return httpmock.NewJsonResponse(200, map[string]interface{}{})
		})

	rows := []models.ListingRow{models.NewListingRow("https://www.depop.com/products/a-1/")}
	err := sink.AppendRows(context.Background(), "streetwear", rows)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestAppendRowsFailsFastOnOtherErrors(t *testing.T) {
	transport := httpmock.NewMockTransport()
	sink := newTestSink(t, transport)

	calls := 0
	transport.RegisterResponder("POST", appendURL,
		func(req *http.Request) (*http.Response, error) {
			calls++
			return httpmock.NewJsonResponse(403, map[string]interface{}{
				"error": map[string]interface{}{
					"code":    403,
					"message": "The caller does not have permission",
				},
			})
		})

	rows := []models.ListingRow{models.NewListingRow("https://www.depop.com/products/a-1/")}
	err := sink.AppendRows(context.Background(), "streetwear", rows)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestAppendRowsGivesUpAfterMaxRetries(t *testing.T) {
	transport := httpmock.NewMockTransport()
	sink := newTestSink(t, transport)
	sink.maxRetries = 2

	calls := 0
	transport.RegisterResponder("POST", appendURL,
		func(req *http.Request) (*http.Response, error) {
			calls++
			return httpmock.NewJsonResponse(429, map[string]interface{}{
				"error": map[string]interface{}{"code": 429, "message": "Quota exceeded"},
			})
		})

	rows := []models.ListingRow{models.NewListingRow("https://www.depop.com/products/a-1/")}
	err := sink.AppendRows(context.Background(), "streetwear", rows)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Equal(t, 3, calls)
}

func TestExistingLinks(t *testing.T) {
	transport := httpmock.NewMockTransport()
	sink := newTestSink(t, transport)

	transport.RegisterResponder("GET", appendURL,
		httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{
			"values": [][]string{
				{"https://www.depop.com/products/a-1/"},
				{"https://www.depop.com/products/b-2/"},
				{},
			},
		}))

	links, err := sink.ExistingLinks(context.Background(), "streetwear")

	require.NoError(t, err)
	assert.Len(t, links, 2)
	assert.True(t, links["https://www.depop.com/products/a-1/"])
}

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"streetwear", "streetwear"},
		{"mens/jackets: [vintage]?", "mens jackets vintage"},
		{"", "Listings"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeTitle(tt.in), tt.in)
	}

	long := make([]byte, 150)
	for i := range long {
		long[i] = 'x'
	}
	assert.Len(t, SanitizeTitle(string(long)), 99)
}
