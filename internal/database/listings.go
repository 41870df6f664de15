package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/maltedev/depop-scraper/internal/models"
)

// UpsertListings stores scraped rows keyed by link. Known links keep
// their first_seen and get fresh field values; new links are inserted.
// Returns the number of links not seen before.
func (db *DB) UpsertListings(ctx context.Context, term string, rows []models.ListingRow) (int, error) {
	query := `
		INSERT INTO listings (link, platform, brand, item_name, price, size, condition, search_term)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (link) DO UPDATE SET
			brand = EXCLUDED.brand,
			item_name = EXCLUDED.item_name,
			price = EXCLUDED.price,
			size = EXCLUDED.size,
			condition = EXCLUDED.condition,
			search_term = EXCLUDED.search_term,
			last_seen = CURRENT_TIMESTAMP
		RETURNING (xmax = 0) AS inserted`

	fresh := 0
	err := db.WithTx(ctx, func(tx pgx.Tx) error {
		for _, row := range rows {
			if row.Link == "" {
				continue
			}
			var inserted bool
			err := tx.QueryRow(ctx, query,
				row.Link, row.Platform, row.Brand, row.ItemName,
				row.Price, row.Size, row.Condition, term,
			).Scan(&inserted)
			if err != nil {
				return fmt.Errorf("failed to upsert listing %s: %w", row.Link, err)
			}
			if inserted {
				fresh++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return fresh, nil
}

// ExistingLinks returns the set of links already stored for a term.
// An empty term matches all listings.
func (db *DB) ExistingLinks(ctx context.Context, term string) (map[string]bool, error) {
	query := `SELECT link FROM listings WHERE $1 = '' OR search_term = $1`

	rows, err := db.pool.Query(ctx, query, term)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing links: %w", err)
	}
	defer rows.Close()

	links := make(map[string]bool)
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links[link] = true
	}

	return links, rows.Err()
}

// GetListings returns stored listings for a term, newest first.
func (db *DB) GetListings(ctx context.Context, term string, limit int) ([]models.Listing, error) {
	query := `
		SELECT link, platform, brand, item_name, price, size, condition, last_seen
		FROM listings
		WHERE $1 = '' OR search_term = $1
		ORDER BY last_seen DESC
		LIMIT $2`

	rows, err := db.pool.Query(ctx, query, term, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		var l models.Listing
		err := rows.Scan(
			&l.Link, &l.Platform, &l.Brand, &l.ItemName,
			&l.Price, &l.Size, &l.Condition, &l.ScrapedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, l)
	}

	return listings, rows.Err()
}

// CountListingsByTerm returns per-term listing counts.
func (db *DB) CountListingsByTerm(ctx context.Context) (map[string]int, error) {
	query := `SELECT search_term, COUNT(*) FROM listings GROUP BY search_term`

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count listings: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var term string
		var count int
		if err := rows.Scan(&term, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[term] = count
	}

	return counts, rows.Err()
}
