// Package metrics bundles Prometheus collectors for the scraping
// pipeline on a dedicated registry. All helpers are nil-safe so
// callers can run without metrics wired.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Registry           *prometheus.Registry
	ScrapesTotal       *prometheus.CounterVec
	ScrapeDuration     prometheus.Histogram
	CollectorRounds    prometheus.Counter
	LinksDiscovered    prometheus.Counter
	DetailFetchesTotal *prometheus.CounterVec
	SinkRetriesTotal   prometheus.Counter
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	scrapes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_scrapes_total",
			Help: "Total scrape runs by outcome.",
		},
		[]string{"status"},
	)
	scrapeDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_scrape_duration_seconds",
			Help:    "Wall-clock duration of complete scrape runs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
	rounds := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_collector_rounds_total",
			Help: "Total scroll rounds executed by the link collector.",
		},
	)
	links := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_links_discovered_total",
			Help: "Total distinct product links discovered.",
		},
	)
	detailFetches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_detail_fetches_total",
			Help: "Total detail-page fetches by outcome.",
		},
		[]string{"status"},
	)
	sinkRetries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_sink_retries_total",
			Help: "Total rate-limit retries against the spreadsheet sink.",
		},
	)

	registry.MustRegister(scrapes, scrapeDuration, rounds, links, detailFetches, sinkRetries)

	return &Metrics{
		Registry:           registry,
		ScrapesTotal:       scrapes,
		ScrapeDuration:     scrapeDuration,
		CollectorRounds:    rounds,
		LinksDiscovered:    links,
		DetailFetchesTotal: detailFetches,
		SinkRetriesTotal:   sinkRetries,
	}
}

func (m *Metrics) IncScrape(status string) {
	if m == nil {
		return
	}
	m.ScrapesTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveScrapeDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.ScrapeDuration.Observe(d.Seconds())
}

func (m *Metrics) IncRound() {
	if m == nil {
		return
	}
	m.CollectorRounds.Inc()
}

func (m *Metrics) AddLinks(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.LinksDiscovered.Add(float64(n))
}

func (m *Metrics) IncDetailFetch(status string) {
	if m == nil {
		return
	}
	m.DetailFetchesTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) IncSinkRetry() {
	if m == nil {
		return
	}
	m.SinkRetriesTotal.Inc()
}
