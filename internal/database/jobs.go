package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

type ScrapeJob struct {
	ID         uuid.UUID    `json:"id"`
	SearchTerm string       `json:"search_term"`
	Status     JobStatus    `json:"status"`
	RowCount   int          `json:"row_count"`
	StopReason string       `json:"stop_reason,omitempty"`
	Error      string       `json:"error,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	StartedAt  sql.NullTime `json:"started_at,omitempty"`
	FinishedAt sql.NullTime `json:"finished_at,omitempty"`
}

// CreateScrapeJob enqueues a scrape for a search term.
func (db *DB) CreateScrapeJob(ctx context.Context, term string) (*ScrapeJob, error) {
	job := &ScrapeJob{
		ID:         uuid.New(),
		SearchTerm: term,
		Status:     JobPending,
	}

	query := `
		INSERT INTO scrape_jobs (id, search_term, status)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	err := db.pool.QueryRow(ctx, query, job.ID, job.SearchTerm, job.Status).
		Scan(&job.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create scrape job: %w", err)
	}

	return job, nil
}

// ClaimNextJob atomically picks the oldest pending job and marks it
// running. Returns nil when the queue is empty.
func (db *DB) ClaimNextJob(ctx context.Context) (*ScrapeJob, error) {
	query := `
		UPDATE scrape_jobs SET
			status = $1,
			started_at = CURRENT_TIMESTAMP
		WHERE id = (
			SELECT id FROM scrape_jobs
			WHERE status = $2
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, search_term, status, row_count, stop_reason, error, created_at, started_at, finished_at`

	job := &ScrapeJob{}
	err := db.pool.QueryRow(ctx, query, JobRunning, JobPending).Scan(
		&job.ID, &job.SearchTerm, &job.Status, &job.RowCount,
		&job.StopReason, &job.Error, &job.CreatedAt, &job.StartedAt, &job.FinishedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	return job, nil
}

// CompleteScrapeJob records a successful run.
func (db *DB) CompleteScrapeJob(ctx context.Context, id uuid.UUID, rowCount int, stopReason string) error {
	query := `
		UPDATE scrape_jobs SET
			status = $2,
			row_count = $3,
			stop_reason = $4,
			finished_at = CURRENT_TIMESTAMP
		WHERE id = $1`

	_, err := db.pool.Exec(ctx, query, id, JobCompleted, rowCount, stopReason)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	return nil
}

// FailScrapeJob records a failed run.
func (db *DB) FailScrapeJob(ctx context.Context, id uuid.UUID, errorMsg string) error {
	query := `
		UPDATE scrape_jobs SET
			status = $2,
			error = $3,
			finished_at = CURRENT_TIMESTAMP
		WHERE id = $1`

	_, err := db.pool.Exec(ctx, query, id, JobFailed, errorMsg)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	return nil
}

// GetScrapeJob retrieves a job by id. Returns nil when unknown.
func (db *DB) GetScrapeJob(ctx context.Context, id uuid.UUID) (*ScrapeJob, error) {
	query := `
		SELECT id, search_term, status, row_count, stop_reason, error, created_at, started_at, finished_at
		FROM scrape_jobs
		WHERE id = $1`

	job := &ScrapeJob{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.SearchTerm, &job.Status, &job.RowCount,
		&job.StopReason, &job.Error, &job.CreatedAt, &job.StartedAt, &job.FinishedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return job, nil
}

// ListScrapeJobs returns recent jobs, newest first.
func (db *DB) ListScrapeJobs(ctx context.Context, limit int) ([]*ScrapeJob, error) {
	query := `
		SELECT id, search_term, status, row_count, stop_reason, error, created_at, started_at, finished_at
		FROM scrape_jobs
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := db.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*ScrapeJob
	for rows.Next() {
		job := &ScrapeJob{}
		err := rows.Scan(
			&job.ID, &job.SearchTerm, &job.Status, &job.RowCount,
			&job.StopReason, &job.Error, &job.CreatedAt, &job.StartedAt, &job.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// CountJobsByStatus returns job counts grouped by status.
func (db *DB) CountJobsByStatus(ctx context.Context) (map[JobStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM scrape_jobs GROUP BY status`

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[JobStatus]int)
	for rows.Next() {
		var status JobStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}
