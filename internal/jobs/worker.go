package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/maltedev/depop-scraper/internal/database"
)

// Worker polls for pending jobs and executes them one at a time. A
// single browser-bound pipeline per process keeps resource use sane;
// horizontal scaling is more processes, arbitrated by SKIP LOCKED.
type Worker struct {
	db       *database.DB
	manager  *Manager
	interval time.Duration
	logger   *slog.Logger
}

func NewWorker(db *database.DB, manager *Manager, interval time.Duration, logger *slog.Logger) *Worker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Worker{
		db:       db,
		manager:  manager,
		interval: interval,
		logger:   logger.With("component", "job_worker"),
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started", "poll_interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped")
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain executes pending jobs until the queue is empty.
func (w *Worker) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		job, err := w.db.ClaimNextJob(ctx)
		if err != nil {
			w.logger.Error("failed to claim job", "error", err)
			return
		}
		if job == nil {
			return
		}

		w.manager.Execute(ctx, job)
	}
}
