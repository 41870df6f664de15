// Package sheets appends scraped listings to a Google Spreadsheet
// through a service account, with worksheet management and rate-limit
// backoff.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/maltedev/depop-scraper/internal/config"
	"github.com/maltedev/depop-scraper/internal/metrics"
	"github.com/maltedev/depop-scraper/internal/models"
)

// appendChunkSize bounds a single values.append payload.
const appendChunkSize = 500

// linkColumn is where the listing link lives in the sheet layout.
const linkColumn = "G"

type Sink struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	maxRetries    int
	baseDelay     time.Duration
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

func New(ctx context.Context, cfg config.SheetsConfig, logger *slog.Logger, m *metrics.Metrics) (*Sink, error) {
	var opts []option.ClientOption
	if cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	} else {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	return NewWithService(svc, cfg, logger, m), nil
}

// NewWithService wraps an already constructed Sheets client; callers
// that manage their own HTTP transport use this directly.
func NewWithService(svc *sheetsapi.Service, cfg config.SheetsConfig, logger *slog.Logger, m *metrics.Metrics) *Sink {
	return &Sink{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		maxRetries:    cfg.MaxRetries,
		baseDelay:     cfg.RetryBaseDelay,
		logger:        logger.With("component", "sheets"),
		metrics:       m,
	}
}

// EnsureWorksheet guarantees a worksheet with the given title exists
// and carries the header row. With reset set, existing contents are
// cleared first. Returns the sanitized title used on the sheet.
func (s *Sink) EnsureWorksheet(ctx context.Context, title string, reset bool) (string, error) {
	title = SanitizeTitle(title)

	spreadsheet, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to open spreadsheet %s: %w", s.spreadsheetID, err)
	}

	exists := false
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == title {
			exists = true
			break
		}
	}

	if !exists {
		req := &sheetsapi.BatchUpdateSpreadsheetRequest{
			Requests: []*sheetsapi.Request{{
				AddSheet: &sheetsapi.AddSheetRequest{
					Properties: &sheetsapi.SheetProperties{Title: title},
				},
			}},
		}
		err := s.withRetry(ctx, "add worksheet", func() error {
			_, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
			return err
		})
		if err != nil {
			return "", fmt.Errorf("failed to add worksheet %q: %w", title, err)
		}
		s.logger.Info("created worksheet", "title", title)
	}

	if exists && reset {
		err := s.withRetry(ctx, "clear worksheet", func() error {
			_, err := s.svc.Spreadsheets.Values.Clear(
				s.spreadsheetID, title, &sheetsapi.ClearValuesRequest{},
			).Context(ctx).Do()
			return err
		})
		if err != nil {
			return "", fmt.Errorf("failed to clear worksheet %q: %w", title, err)
		}
		s.logger.Info("cleared worksheet", "title", title)
	}

	if !exists || reset {
		if err := s.writeHeader(ctx, title); err != nil {
			return "", err
		}
	}

	return title, nil
}

func (s *Sink) writeHeader(ctx context.Context, title string) error {
	header := make([]interface{}, len(models.SheetHeaders))
	for i, h := range models.SheetHeaders {
		header[i] = h
	}

	err := s.withRetry(ctx, "write header", func() error {
		_, err := s.svc.Spreadsheets.Values.Update(
			s.spreadsheetID,
			fmt.Sprintf("%s!A1", title),
			&sheetsapi.ValueRange{Values: [][]interface{}{header}},
		).ValueInputOption("RAW").Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}
	return nil
}

// AppendRows appends listings below the existing data in chunks.
// Values go in RAW so price strings like "$45.00" stay literal text.
func (s *Sink) AppendRows(ctx context.Context, title string, rows []models.ListingRow) error {
	title = SanitizeTitle(title)

	for start := 0; start < len(rows); start += appendChunkSize {
		end := start + appendChunkSize
		if end > len(rows) {
			end = len(rows)
		}

		values := make([][]interface{}, 0, end-start)
		for _, row := range rows[start:end] {
			values = append(values, row.Cells())
		}

		err := s.withRetry(ctx, "append rows", func() error {
			_, err := s.svc.Spreadsheets.Values.Append(
				s.spreadsheetID,
				fmt.Sprintf("%s!A1", title),
				&sheetsapi.ValueRange{Values: values},
			).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to append rows %d-%d: %w", start, end, err)
		}
	}

	s.logger.Info("appended rows", "title", title, "count", len(rows))
	return nil
}

// ExistingLinks reads the link column so callers can skip listings
// already present from earlier runs.
func (s *Sink) ExistingLinks(ctx context.Context, title string) (map[string]bool, error) {
	title = SanitizeTitle(title)

	resp, err := s.svc.Spreadsheets.Values.Get(
		s.spreadsheetID,
		fmt.Sprintf("%s!%s2:%s", title, linkColumn, linkColumn),
	).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read existing links: %w", err)
	}

	links := make(map[string]bool, len(resp.Values))
	for _, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if link, ok := row[0].(string); ok && link != "" {
			links[link] = true
		}
	}
	return links, nil
}

// withRetry retries rate-limited calls with exponential backoff. Any
// other error is returned immediately.
func (s *Sink) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := s.baseDelay * time.Duration(1<<(attempt-1))
			s.metrics.IncSinkRetry()
			s.logger.Warn("rate limited, backing off", "op", op, "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		if !isRateLimited(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("still rate limited after %d retries: %w", s.maxRetries, lastErr)
}

func isRateLimited(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == 429
}

// SanitizeTitle makes a search term safe as a worksheet title: the
// characters Sheets rejects are replaced and length is capped at 99.
func SanitizeTitle(title string) string {
	replacer := strings.NewReplacer(
		"[", " ", "]", " ", ":", " ", "*", " ",
		"?", " ", "/", " ", "\\", " ",
	)
	title = strings.Join(strings.Fields(replacer.Replace(title)), " ")
	if title == "" {
		title = "Listings"
	}
	if len(title) > 99 {
		title = title[:99]
	}
	return title
}
