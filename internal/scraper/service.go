package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/depop-scraper/internal/browser"
	"github.com/maltedev/depop-scraper/internal/config"
	"github.com/maltedev/depop-scraper/internal/metrics"
	"github.com/maltedev/depop-scraper/internal/models"
	"github.com/maltedev/depop-scraper/internal/normalize"
	"github.com/maltedev/depop-scraper/internal/parser"
)

// Result is the outcome of one scrape run.
type Result struct {
	Term     string
	Rows     []models.ListingRow
	Stats    CollectStats
	Enriched bool
	Sample   bool
	Duration time.Duration
}

// Service runs the whole pipeline for a search term: navigate,
// collect, harvest cards, optionally enrich, then finalize.
type Service struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewService(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		cfg:     cfg,
		logger:  logger.With("component", "scraper"),
		metrics: m,
	}
}

// Run scrapes listings for term. When the browser cannot start at
// all, a single sample row is returned instead of an error so the
// rest of the pipeline still has something to carry through.
func (s *Service) Run(ctx context.Context, term string) (*Result, error) {
	start := time.Now()
	limits := s.cfg.Limits

	b, err := browser.New(&browser.Options{
		Headless:       s.cfg.Browser.Headless,
		Timeout:        s.cfg.Browser.Timeout,
		UserAgent:      browser.DefaultOptions().UserAgent,
		ViewportWidth:  s.cfg.Browser.ViewportWidth,
		ViewportHeight: s.cfg.Browser.ViewportHeight,
		BlockHeavy:     s.cfg.Browser.BlockHeavy,
		CookiesFile:    s.cfg.Scraper.CookiesFile,
	})
	if err != nil {
		s.logger.Error("browser launch failed, emitting sample row", "error", err)
		s.metrics.IncScrape("sample")
		return &Result{
			Term:     term,
			Rows:     []models.ListingRow{models.SampleRow(term)},
			Sample:   true,
			Duration: time.Since(start),
		}, nil
	}
	defer b.Close()

	rows, stats, err := s.scrape(ctx, b, term, limits)
	if err != nil {
		s.metrics.IncScrape("error")
		return nil, err
	}

	result := &Result{
		Term:     term,
		Rows:     rows,
		Stats:    stats,
		Enriched: s.cfg.Scraper.DeepFetch,
		Duration: time.Since(start),
	}

	s.metrics.IncScrape("success")
	s.metrics.ObserveScrapeDuration(result.Duration)
	s.logger.Info("scrape complete",
		"term", term,
		"rows", len(result.Rows),
		"rounds", stats.Rounds,
		"stop_reason", stats.Reason,
		"duration", result.Duration.Round(time.Millisecond),
	)

	return result, nil
}

func (s *Service) scrape(ctx context.Context, b *browser.Browser, term string, limits config.Limits) ([]models.ListingRow, CollectStats, error) {
	page, err := b.NewPage()
	if err != nil {
		return nil, CollectStats{}, fmt.Errorf("failed to open results page: %w", err)
	}
	defer page.Close()

	searchURL := models.SearchURL(term)
	s.logger.Info("starting scrape", "term", term, "url", searchURL)

	if err := b.NavigateWithRetry(page, searchURL, s.cfg.Scraper.MaxRetries); err != nil {
		return nil, CollectStats{}, fmt.Errorf("failed to load search results: %w", err)
	}

	b.DismissCookieBanner(page)

	// An empty result grid is valid; missing cards just means the
	// collector finds nothing and the run ends with zero rows.
	page.Locator(`a[href^="/products/"]`).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(10000),
	})

	rows, stats, err := s.collectAndHarvest(ctx, page, limits)
	if err != nil {
		return nil, stats, err
	}

	if s.cfg.Scraper.DeepFetch && len(rows) > 0 {
		enricher := NewEnricher(b, parser.NewDepopParser(), s.logger, s.metrics)
		enricher.Enrich(ctx, rows, limits)
	}

	return finalize(rows, limits.MaxItems), stats, nil
}

// collectAndHarvest runs the scroll loop and the card harvest against
// a results page and returns the shallow rows. It only needs the
// page's evaluate surface, so tests drive it with a synthetic page.
func (s *Service) collectAndHarvest(ctx context.Context, page resultsPage, limits config.Limits) ([]models.ListingRow, CollectStats, error) {
	collector := NewCollector(s.logger, s.metrics)
	stats := collector.Collect(ctx, page, limits)

	harvest, err := page.Evaluate(cardScript)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to harvest result cards: %w", err)
	}

	return buildRows(parseCards(harvest)), stats, nil
}

// finalize dedups by link (first wins), drops non-product links,
// re-normalizes the text fields and enforces the item cap.
func finalize(rows []models.ListingRow, maxItems int) []models.ListingRow {
	seen := make(map[string]bool, len(rows))
	out := make([]models.ListingRow, 0, len(rows))

	for _, row := range rows {
		if !normalize.IsProductLink(row.Link) || seen[row.Link] {
			continue
		}
		seen[row.Link] = true

		row.Price = normalize.Price(row.Price)
		row.ItemName = normalize.Title(row.ItemName)

		out = append(out, row)
		if len(out) >= maxItems {
			break
		}
	}
	return out
}
