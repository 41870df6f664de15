// Package jobs queues scrape runs in Postgres and executes them.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/maltedev/depop-scraper/internal/config"
	"github.com/maltedev/depop-scraper/internal/database"
	"github.com/maltedev/depop-scraper/internal/events"
	"github.com/maltedev/depop-scraper/internal/exporter"
	"github.com/maltedev/depop-scraper/internal/models"
	"github.com/maltedev/depop-scraper/internal/scraper"
	"github.com/maltedev/depop-scraper/internal/sheets"
)

// resultCacheSize bounds how many completed jobs keep their rows
// available through the API.
const resultCacheSize = 64

// Runner runs one scrape; satisfied by scraper.Service.
type Runner interface {
	Run(ctx context.Context, term string) (*scraper.Result, error)
}

type Manager struct {
	db        *database.DB
	runner    Runner
	publisher *events.Publisher
	sink      *sheets.Sink
	exporter  *exporter.Exporter
	cfg       *config.Config
	cache     *lru.Cache[string, []models.ListingRow]
	logger    *slog.Logger
}

func NewManager(
	db *database.DB,
	runner Runner,
	publisher *events.Publisher,
	sink *sheets.Sink,
	exp *exporter.Exporter,
	cfg *config.Config,
	logger *slog.Logger,
) (*Manager, error) {
	cache, err := lru.New[string, []models.ListingRow](resultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}

	return &Manager{
		db:        db,
		runner:    runner,
		publisher: publisher,
		sink:      sink,
		exporter:  exp,
		cfg:       cfg,
		cache:     cache,
		logger:    logger.With("component", "job_manager"),
	}, nil
}

// Create enqueues a scrape job for a search term.
func (m *Manager) Create(ctx context.Context, term string) (*database.ScrapeJob, error) {
	if term == "" {
		return nil, fmt.Errorf("search term is required")
	}

	job, err := m.db.CreateScrapeJob(ctx, term)
	if err != nil {
		return nil, err
	}

	m.logger.Info("job created", "id", job.ID, "term", term)
	return job, nil
}

func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*database.ScrapeJob, error) {
	return m.db.GetScrapeJob(ctx, id)
}

func (m *Manager) List(ctx context.Context, limit int) ([]*database.ScrapeJob, error) {
	return m.db.ListScrapeJobs(ctx, limit)
}

// Rows returns the cached result rows of a completed job.
func (m *Manager) Rows(id uuid.UUID) ([]models.ListingRow, bool) {
	return m.cache.Get(id.String())
}

// Stats aggregates job and listing counts.
type Stats struct {
	TotalJobs      int            `json:"total_jobs"`
	PendingJobs    int            `json:"pending_jobs"`
	RunningJobs    int            `json:"running_jobs"`
	CompletedJobs  int            `json:"completed_jobs"`
	FailedJobs     int            `json:"failed_jobs"`
	ListingsByTerm map[string]int `json:"listings_by_term"`
}

func (m *Manager) GetStats(ctx context.Context) (*Stats, error) {
	jobCounts, err := m.db.CountJobsByStatus(ctx)
	if err != nil {
		return nil, err
	}

	listingCounts, err := m.db.CountListingsByTerm(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		PendingJobs:    jobCounts[database.JobPending],
		RunningJobs:    jobCounts[database.JobRunning],
		CompletedJobs:  jobCounts[database.JobCompleted],
		FailedJobs:     jobCounts[database.JobFailed],
		ListingsByTerm: listingCounts,
	}
	for _, count := range jobCounts {
		stats.TotalJobs += count
	}

	return stats, nil
}

// Execute runs a claimed job end to end and records the outcome.
func (m *Manager) Execute(ctx context.Context, job *database.ScrapeJob) {
	m.logger.Info("executing job", "id", job.ID, "term", job.SearchTerm)

	result, err := m.runner.Run(ctx, job.SearchTerm)
	if err != nil {
		m.logger.Error("job failed", "id", job.ID, "error", err)
		if dbErr := m.db.FailScrapeJob(ctx, job.ID, err.Error()); dbErr != nil {
			m.logger.Error("failed to record job failure", "id", job.ID, "error", dbErr)
		}
		return
	}

	m.cache.Add(job.ID.String(), result.Rows)

	fresh, err := m.db.UpsertListings(ctx, job.SearchTerm, result.Rows)
	if err != nil {
		m.logger.Error("failed to persist listings", "id", job.ID, "error", err)
	}

	m.deliver(ctx, result)

	if err := m.db.CompleteScrapeJob(ctx, job.ID, len(result.Rows), string(result.Stats.Reason)); err != nil {
		m.logger.Error("failed to record job completion", "id", job.ID, "error", err)
	}

	if m.publisher != nil {
		payload := events.ScrapeCompletedPayload{
			JobID:      job.ID.String(),
			SearchTerm: result.Term,
			RowCount:   len(result.Rows),
			FreshCount: fresh,
			StopReason: string(result.Stats.Reason),
			Sample:     result.Sample,
			Duration:   result.Duration.Round(time.Millisecond).String(),
			FinishedAt: time.Now(),
		}
		if err := m.publisher.PublishScrapeCompleted(ctx, payload); err != nil {
			m.logger.Error("failed to publish event", "id", job.ID, "error", err)
		}
	}

	m.logger.Info("job completed", "id", job.ID, "rows", len(result.Rows), "fresh", fresh)
}

// deliver pushes rows to the configured outputs. Delivery problems
// are logged but never fail the job; the rows are already persisted.
func (m *Manager) deliver(ctx context.Context, result *scraper.Result) {
	if m.sink != nil {
		if err := m.appendToSheet(ctx, result); err != nil {
			m.logger.Error("sheet delivery failed", "term", result.Term, "error", err)
		}
	}

	if m.exporter != nil {
		if _, err := m.exporter.WriteCSV(result.Term, result.Rows); err != nil {
			m.logger.Error("csv export failed", "term", result.Term, "error", err)
		}
	}
}

func (m *Manager) appendToSheet(ctx context.Context, result *scraper.Result) error {
	title, err := m.sink.EnsureWorksheet(ctx, result.Term, m.cfg.Sheets.ResetWorksheet)
	if err != nil {
		return err
	}

	existing, err := m.sink.ExistingLinks(ctx, title)
	if err != nil {
		return err
	}

	rows := filterNew(result.Rows, existing)
	if len(rows) == 0 {
		m.logger.Info("no new rows for sheet", "title", title)
		return nil
	}

	return m.sink.AppendRows(ctx, title, rows)
}

// filterNew drops rows whose link is already in the sheet.
func filterNew(rows []models.ListingRow, existing map[string]bool) []models.ListingRow {
	out := make([]models.ListingRow, 0, len(rows))
	for _, row := range rows {
		if !existing[row.Link] {
			out = append(out, row)
		}
	}
	return out
}
