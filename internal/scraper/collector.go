package scraper

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/depop-scraper/internal/config"
	"github.com/maltedev/depop-scraper/internal/metrics"
)

// collectScript maintains a page-side seen set of product links and
// reports the cumulative distinct count plus this round's additions.
const collectScript = `(() => {
  if (!window.__depopSeen) window.__depopSeen = new Set();
  const anchors = Array.from(document.querySelectorAll('a[href^="/products/"]'));
  let added = 0;
  for (const a of anchors) {
    const href = a.getAttribute('href');
    if (!href) continue;
    if (!window.__depopSeen.has(href)) {
      window.__depopSeen.add(href);
      added++;
    }
  }
  return { total: window.__depopSeen.size, added: added };
})()`

const scrollScript = `window.scrollBy(0, document.body.scrollHeight)`

// StopReason records why the collector terminated.
type StopReason string

const (
	StopCapped    StopReason = "capped"
	StopStalled   StopReason = "stalled"
	StopTimedOut  StopReason = "timed_out"
	StopMaxRounds StopReason = "max_rounds"
)

// CollectStats summarizes one collection run.
type CollectStats struct {
	Total  int
	Rounds int
	Reason StopReason
}

// resultsPage is the slice of playwright.Page the collector needs.
// Tests drive the loop with a synthetic implementation.
type resultsPage interface {
	Evaluate(expression string, arg ...interface{}) (interface{}, error)
	WaitForLoadState(options ...playwright.PageWaitForLoadStateOptions) error
}

// Collector drives a search-results page through a scroll-and-poll
// loop until the item cap, the time budget, a stall, or the round cap
// stops it. Marketplace grids lazy-load on scroll with no total-count
// signal, so these are the only observable termination conditions.
type Collector struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewCollector(logger *slog.Logger, m *metrics.Metrics) *Collector {
	return &Collector{
		logger:  logger.With("component", "collector"),
		metrics: m,
	}
}

// Collect runs the scroll loop to termination and returns its stats.
// Evaluation errors are treated identically to a stall: collection
// stops early and the pipeline proceeds with whatever was gathered.
func (c *Collector) Collect(ctx context.Context, page resultsPage, limits config.Limits) CollectStats {
	start := time.Now()
	stats := CollectStats{Reason: StopMaxRounds}

	lastTotal := 0
	stableRounds := 0

	for round := 1; round <= limits.MaxRounds; round++ {
		if ctx.Err() != nil || time.Since(start) > limits.MaxDuration {
			c.logger.Info("hit time budget, stopping scroll", "round", round, "total", stats.Total)
			stats.Reason = StopTimedOut
			return stats
		}

		stats.Rounds = round
		c.metrics.IncRound()

		counts, err := page.Evaluate(collectScript)
		if err != nil {
			c.logger.Warn("collect evaluation failed, stopping scroll", "round", round, "error", err)
			stats.Reason = StopStalled
			return stats
		}

		total, added := parseCounts(counts)
		c.metrics.AddLinks(added)
		stats.Total = total
		c.logger.Debug("scroll round", "round", round, "total", total, "added", added)

		if total >= limits.MaxItems {
			c.logger.Info("reached item cap", "round", round, "total", total)
			stats.Reason = StopCapped
			return stats
		}

		// Warmup rounds are excused from stall detection: the first
		// scrolls often show zero net growth while content streams in.
		if round > limits.WarmupRounds {
			if total == lastTotal {
				stableRounds++
			} else {
				stableRounds = 0
			}
			if stableRounds >= limits.IdleRounds {
				c.logger.Info("count stabilized, stopping scroll", "round", round, "total", total)
				stats.Reason = StopStalled
				return stats
			}
		}
		lastTotal = total

		if _, err := page.Evaluate(scrollScript); err != nil {
			c.logger.Warn("scroll failed, stopping", "round", round, "error", err)
			stats.Reason = StopStalled
			return stats
		}

		if !sleepCtx(ctx, jitter(limits.PauseMin, limits.PauseMax)) {
			stats.Reason = StopTimedOut
			return stats
		}

		// Opportunistic settle point; timeout expiry is not an error.
		if round%limits.NetworkIdleEvery == 0 {
			page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
				State:   playwright.LoadStateNetworkidle,
				Timeout: playwright.Float(float64(limits.NetworkIdleTimeout.Milliseconds())),
			})
		}
	}

	c.logger.Info("hit round cap, stopping scroll", "rounds", stats.Rounds, "total", stats.Total)
	return stats
}

// parseCounts tolerates the numeric types the evaluate bridge may
// hand back for the {total, added} result.
func parseCounts(v interface{}) (total, added int) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return 0, 0
	}
	return asInt(m["total"]), asInt(m["added"])
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// jitter draws a duration uniformly from [min, max].
func jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// sleepCtx sleeps for d unless the context expires first; returns
// false when interrupted.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
