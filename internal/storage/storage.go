package storage

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/maltedev/depop-scraper/internal/models"
)

// StoredListing is a listing as persisted across runs, keyed by link.
type StoredListing struct {
	Row       models.ListingRow `json:"row"`
	Term      string            `json:"term"`
	FirstSeen time.Time         `json:"first_seen"`
	LastSeen  time.Time         `json:"last_seen"`
}

// ListingStore is a JSON-file-backed store of scraped listings used
// for cross-run dedup when no database is configured.
type ListingStore struct {
	mu       sync.RWMutex
	listings map[string]*StoredListing
	filename string
}

func NewListingStore(filename string) (*ListingStore, error) {
	ls := &ListingStore{
		listings: make(map[string]*StoredListing),
		filename: filename,
	}

	if err := ls.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return ls, nil
}

// AddBatch records rows from a scrape run. New links get a first-seen
// timestamp; known links update last-seen and the stored fields.
// Returns the rows not seen before this call.
func (ls *ListingStore) AddBatch(term string, rows []models.ListingRow) ([]models.ListingRow, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	now := time.Now()
	var fresh []models.ListingRow

	for _, row := range rows {
		if row.Link == "" {
			continue
		}

		existing, known := ls.listings[row.Link]
		if known {
			existing.Row = row
			existing.Term = term
			existing.LastSeen = now
			continue
		}

		ls.listings[row.Link] = &StoredListing{
			Row:       row,
			Term:      term,
			FirstSeen: now,
			LastSeen:  now,
		}
		fresh = append(fresh, row)
	}

	return fresh, ls.save()
}

func (ls *ListingStore) Get(link string) (*StoredListing, bool) {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	listing, exists := ls.listings[link]
	return listing, exists
}

// ExistingLinks returns the set of links already stored.
func (ls *ListingStore) ExistingLinks() map[string]bool {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	links := make(map[string]bool, len(ls.listings))
	for link := range ls.listings {
		links[link] = true
	}
	return links
}

func (ls *ListingStore) GetStats() map[string]int {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	stats := make(map[string]int)
	for _, listing := range ls.listings {
		stats[listing.Term]++
	}
	stats["total"] = len(ls.listings)
	return stats
}

func (ls *ListingStore) save() error {
	data, err := json.MarshalIndent(ls.listings, "", "  ")
	if err != nil {
		return err
	}

	// Write to temp file first for atomicity
	tmpFile := ls.filename + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return err
	}

	return os.Rename(tmpFile, ls.filename)
}

func (ls *ListingStore) Load() error {
	data, err := os.ReadFile(ls.filename)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, &ls.listings)
}
