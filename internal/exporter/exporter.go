// Package exporter writes scrape results to local files.
package exporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/maltedev/depop-scraper/internal/models"
)

type Exporter struct {
	outputDir string
	logger    *slog.Logger
}

func New(outputDir string, logger *slog.Logger) *Exporter {
	return &Exporter{
		outputDir: outputDir,
		logger:    logger.With("component", "exporter"),
	}
}

// WriteCSV writes rows with the standard header to a timestamped CSV
// file and returns its path.
func (e *Exporter) WriteCSV(term string, rows []models.ListingRow) (string, error) {
	path := e.filePath(term, "csv")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(models.SheetHeaders); err != nil {
		return "", fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row.Record()); err != nil {
			return "", fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush csv: %w", err)
	}

	e.logger.Info("wrote csv export", "path", path, "rows", len(rows))
	return path, nil
}

// WriteJSON writes rows as a JSON array to a timestamped file and
// returns its path.
func (e *Exporter) WriteJSON(term string, rows []models.ListingRow) (string, error) {
	path := e.filePath(term, "json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal rows: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write json file: %w", err)
	}

	e.logger.Info("wrote json export", "path", path, "rows", len(rows))
	return path, nil
}

func (e *Exporter) filePath(term, ext string) string {
	name := fmt.Sprintf("%s_%s.%s", slugify(term), time.Now().Format("20060102_150405"), ext)
	return filepath.Join(e.outputDir, name)
}

// slugify reduces a search term to a safe file-name stem.
func slugify(term string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(term)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "listings"
	}
	return b.String()
}
