// Package api exposes the scrape job HTTP endpoints.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/maltedev/depop-scraper/internal/database"
	"github.com/maltedev/depop-scraper/internal/jobs"
	"github.com/maltedev/depop-scraper/internal/models"
)

// JobService is the slice of the job manager the handlers need.
type JobService interface {
	Create(ctx context.Context, term string) (*database.ScrapeJob, error)
	Get(ctx context.Context, id uuid.UUID) (*database.ScrapeJob, error)
	List(ctx context.Context, limit int) ([]*database.ScrapeJob, error)
	Rows(id uuid.UUID) ([]models.ListingRow, bool)
	GetStats(ctx context.Context) (*jobs.Stats, error)
}

type Handlers struct {
	jobs   JobService
	logger *slog.Logger
}

func NewHandlers(jobService JobService, logger *slog.Logger) *Handlers {
	return &Handlers{
		jobs:   jobService,
		logger: logger.With("component", "api"),
	}
}

// CreateJobRequest represents a new scrape job request
type CreateJobRequest struct {
	SearchTerm string `json:"search_term"`
}

// CreateJobResponse represents the job creation response
type CreateJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// CreateJob handles new scrape job creation
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.SearchTerm == "" {
		h.respondError(w, http.StatusBadRequest, "search_term is required")
		return
	}

	job, err := h.jobs.Create(r.Context(), req.SearchTerm)
	if err != nil {
		h.logger.Error("failed to create job", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	h.respondJSON(w, http.StatusCreated, CreateJobResponse{
		JobID:  job.ID.String(),
		Status: string(job.Status),
	})
}

// GetJob handles job status retrieval
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid job ID")
		return
	}

	job, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get job", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get job")
		return
	}
	if job == nil {
		h.respondError(w, http.StatusNotFound, "job not found")
		return
	}

	h.respondJSON(w, http.StatusOK, job)
}

// ListJobs handles listing recent jobs
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobList, err := h.jobs.List(r.Context(), 100)
	if err != nil {
		h.logger.Error("failed to list jobs", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	if jobList == nil {
		jobList = []*database.ScrapeJob{}
	}
	h.respondJSON(w, http.StatusOK, jobList)
}

// GetJobRows returns the scraped rows of a completed job while they
// are still in the result cache.
func (h *Handlers) GetJobRows(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid job ID")
		return
	}

	rows, ok := h.jobs.Rows(id)
	if !ok {
		h.respondError(w, http.StatusNotFound, "no rows cached for job")
		return
	}

	h.respondJSON(w, http.StatusOK, rows)
}

// GetStats handles statistics retrieval
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.jobs.GetStats(r.Context())
	if err != nil {
		h.logger.Error("failed to get stats", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	h.respondJSON(w, http.StatusOK, stats)
}

// Health is a liveness probe.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Routes mounts the handlers on a router.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/jobs", h.CreateJob)
		r.Get("/jobs", h.ListJobs)
		r.Get("/jobs/{jobID}", h.GetJob)
		r.Get("/jobs/{jobID}/rows", h.GetJobRows)
		r.Get("/stats", h.GetStats)
	})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
