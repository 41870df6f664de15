package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/depop-scraper/internal/database"
	"github.com/maltedev/depop-scraper/internal/jobs"
	"github.com/maltedev/depop-scraper/internal/models"
)

type fakeJobs struct {
	created *database.ScrapeJob
	job     *database.ScrapeJob
	rows    []models.ListingRow
}

func (f *fakeJobs) Create(ctx context.Context, term string) (*database.ScrapeJob, error) {
	f.created = &database.ScrapeJob{
		ID:         uuid.New(),
		SearchTerm: term,
		Status:     database.JobPending,
	}
	return f.created, nil
}

func (f *fakeJobs) Get(ctx context.Context, id uuid.UUID) (*database.ScrapeJob, error) {
	if f.job != nil && f.job.ID == id {
		return f.job, nil
	}
	return nil, nil
}

func (f *fakeJobs) List(ctx context.Context, limit int) ([]*database.ScrapeJob, error) {
	if f.job == nil {
		return nil, nil
	}
	return []*database.ScrapeJob{f.job}, nil
}

func (f *fakeJobs) Rows(id uuid.UUID) ([]models.ListingRow, bool) {
	if f.rows == nil {
		return nil, false
	}
	return f.rows, true
}

func (f *fakeJobs) GetStats(ctx context.Context) (*jobs.Stats, error) {
	return &jobs.Stats{TotalJobs: 1}, nil
}

func newTestRouter(fake *fakeJobs) chi.Router {
	r := chi.NewRouter()
	NewHandlers(fake, slog.Default()).Routes(r)
	return r
}

func TestCreateJob(t *testing.T) {
	fake := &fakeJobs{}
	router := newTestRouter(fake)

	body := bytes.NewBufferString(`{"search_term": "streetwear"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, fake.created)
	assert.Equal(t, "streetwear", fake.created.SearchTerm)

	var resp CreateJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, fake.created.ID.String(), resp.JobID)
	assert.Equal(t, "pending", resp.Status)
}

func TestCreateJobMissingTerm(t *testing.T) {
	router := newTestRouter(&fakeJobs{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetJob(t *testing.T) {
	job := &database.ScrapeJob{ID: uuid.New(), SearchTerm: "denim", Status: database.JobCompleted}
	router := newTestRouter(&fakeJobs{job: job})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var got database.ScrapeJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, job.ID, got.ID)
}

func TestGetJobNotFound(t *testing.T) {
	router := newTestRouter(&fakeJobs{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetJobInvalidID(t *testing.T) {
	router := newTestRouter(&fakeJobs{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetJobRows(t *testing.T) {
	row := models.NewListingRow("https://www.depop.com/products/a-1/")
	router := newTestRouter(&fakeJobs{rows: []models.ListingRow{row}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+uuid.NewString()+"/rows", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var rows []models.ListingRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, row.Link, rows[0].Link)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&fakeJobs{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
