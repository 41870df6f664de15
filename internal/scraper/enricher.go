package scraper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/playwright-community/playwright-go"
	"golang.org/x/sync/errgroup"

	"github.com/maltedev/depop-scraper/internal/browser"
	"github.com/maltedev/depop-scraper/internal/config"
	"github.com/maltedev/depop-scraper/internal/metrics"
	"github.com/maltedev/depop-scraper/internal/models"
	"github.com/maltedev/depop-scraper/internal/normalize"
	"github.com/maltedev/depop-scraper/internal/parser"
	"github.com/maltedev/depop-scraper/internal/ratelimit"
)

const scrollFifthScript = `window.scrollBy(0, document.body.scrollHeight * 0.2)`

// Enricher visits product detail pages with bounded concurrency and
// merges what the parser extracts into the card-derived rows.
type Enricher struct {
	browser *browser.Browser
	parser  parser.Parser
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewEnricher(b *browser.Browser, p parser.Parser, logger *slog.Logger, m *metrics.Metrics) *Enricher {
	return &Enricher{
		browser: b,
		parser:  p,
		logger:  logger.With("component", "enricher"),
		metrics: m,
	}
}

// Enrich fetches detail pages for up to limits.DeepFetchMax rows and
// merges the results in place. A failed fetch leaves its row at the
// card-level data; enrichment never fails the run.
func (e *Enricher) Enrich(ctx context.Context, rows []models.ListingRow, limits config.Limits) {
	n := len(rows)
	if n > limits.DeepFetchMax {
		n = limits.DeepFetchMax
		e.logger.Info("capping deep fetch", "rows", len(rows), "cap", n)
	}

	details := make([]*parser.Detail, n)
	limiter := ratelimit.NewAdaptiveRateLimiter(limits.DeepFetchDelayMin, limits.DeepFetchDelayMax)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limits.DeepFetchConcurrency)

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return nil
			}
			detail, err := e.fetchDetail(gctx, rows[i].Link)
			if err != nil {
				limiter.RecordError()
				e.metrics.IncDetailFetch("error")
				e.logger.Warn("detail fetch failed", "link", rows[i].Link, "error", err)
				return nil
			}
			limiter.RecordSuccess()
			e.metrics.IncDetailFetch("ok")
			details[i] = detail
			return nil
		})
	}
	g.Wait()

	for i, detail := range details {
		if detail != nil {
			mergeDetail(&rows[i], detail)
		}
	}
}

// fetchDetail opens a fresh page for one listing and hands its HTML
// to the parser. The page is always closed before returning.
func (e *Enricher) fetchDetail(ctx context.Context, link string) (*parser.Detail, error) {
	page, err := e.browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open detail page: %w", err)
	}
	defer page.Close()

	if _, err := page.Goto(link, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(30000),
	}); err != nil {
		return nil, fmt.Errorf("failed to navigate to %s: %w", link, err)
	}

	// Hydration payload usually lands fast; absence just means the
	// parser falls through to the DOM layers.
	page.Locator("#__NEXT_DATA__").WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(4000),
	})

	page.Evaluate(scrollFifthScript)

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	html, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}

	return e.parser.ParseProductPage(html)
}

// mergeDetail applies detail-page data to a card-derived row. Title
// and price from the detail page are authoritative and overwrite;
// size, condition and brand only fill gaps the card left.
func mergeDetail(row *models.ListingRow, detail *parser.Detail) {
	if detail.Title != "" {
		row.ItemName = normalize.Title(detail.Title)
	}
	if detail.Price != "" {
		row.Price = normalize.Price(detail.Price)
	}
	if row.Size == "" && detail.Size != "" {
		row.Size = detail.Size
	}
	if row.Condition == "" && detail.Condition != "" {
		row.Condition = detail.Condition
	}
	if row.Brand == "" && detail.Brand != "" {
		row.Brand = detail.Brand
	}
}
