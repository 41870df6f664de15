package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/maltedev/depop-scraper/internal/config"
	"github.com/maltedev/depop-scraper/internal/exporter"
	"github.com/maltedev/depop-scraper/internal/metrics"
	"github.com/maltedev/depop-scraper/internal/models"
	"github.com/maltedev/depop-scraper/internal/scraper"
	"github.com/maltedev/depop-scraper/internal/sheets"
	"github.com/maltedev/depop-scraper/internal/storage"
	"github.com/maltedev/depop-scraper/pkg/logger"
)

func main() {
	var (
		term      = flag.String("term", "", "Search term to scrape (required)")
		output    = flag.String("output", "csv", "Output format: csv, json, stdout")
		deepFetch = flag.Bool("deep", true, "Visit detail pages for size/condition/brand")
		headless  = flag.Bool("headless", true, "Run browser in headless mode")
		storeFile = flag.String("store", "", "JSON listing store for cross-run dedup (optional)")
	)
	flag.Parse()

	if *term == "" && flag.NArg() > 0 {
		*term = strings.Join(flag.Args(), " ")
	}
	if *term == "" {
		fmt.Println("No search term given. Use -term or pass it as an argument.")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.Scraper.DeepFetch = cfg.Scraper.DeepFetch && *deepFetch
	cfg.Browser.Headless = cfg.Browser.Headless && *headless

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logg := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	logg.Info("starting scrape", "term", *term)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logg.Info("shutdown signal received")
		cancel()
	}()

	service := scraper.NewService(cfg, logg, metrics.New())
	result, err := service.Run(ctx, *term)
	if err != nil {
		logg.Error("scrape failed", "error", err)
		os.Exit(1)
	}

	rows := result.Rows
	if *storeFile != "" {
		store, err := storage.NewListingStore(*storeFile)
		if err != nil {
			logg.Error("failed to open listing store", "path", *storeFile, "error", err)
			os.Exit(1)
		}
		fresh, err := store.AddBatch(*term, rows)
		if err != nil {
			logg.Error("failed to update listing store", "error", err)
			os.Exit(1)
		}
		logg.Info("listing store updated", "rows", len(rows), "fresh", len(fresh))
		rows = fresh
	}

	if cfg.Sheets.Enabled {
		if err := saveToSheet(ctx, cfg, logg, *term, rows); err != nil {
			logg.Warn("sheet delivery failed, continuing with export", "error", err)
		}
	}

	exp := exporter.New(cfg.Scraper.OutputDir, logg)
	switch *output {
	case "csv":
		path, err := exp.WriteCSV(*term, rows)
		if err != nil {
			logg.Error("csv export failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %d rows to %s\n", len(rows), path)
	case "json":
		path, err := exp.WriteJSON(*term, rows)
		if err != nil {
			logg.Error("json export failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %d rows to %s\n", len(rows), path)
	default:
		for _, row := range rows {
			fmt.Printf("%s | %s | %s | %s | %s | %s\n",
				row.Brand, row.ItemName, row.Price, row.Size, row.Condition, row.Link)
		}
		fmt.Printf("--- %d rows (stop: %s, %s)\n",
			len(rows), result.Stats.Reason, result.Duration.Round(time.Millisecond))
	}
}

// saveToSheet pushes rows to the configured spreadsheet. A failure here
// must not lose the run, so callers log it and continue with file export.
func saveToSheet(ctx context.Context, cfg *config.Config, logg *slog.Logger, term string, rows []models.ListingRow) error {
	sink, err := sheets.New(ctx, cfg.Sheets, logg, nil)
	if err != nil {
		return fmt.Errorf("failed to create sheets sink: %w", err)
	}
	return appendToSheet(ctx, sink, cfg.Sheets.ResetWorksheet, term, rows)
}

func appendToSheet(ctx context.Context, sink *sheets.Sink, reset bool, term string, rows []models.ListingRow) error {
	title, err := sink.EnsureWorksheet(ctx, term, reset)
	if err != nil {
		return fmt.Errorf("failed to prepare worksheet: %w", err)
	}
	return sink.AppendRows(ctx, title, rows)
}
