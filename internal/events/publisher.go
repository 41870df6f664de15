// Package events publishes scrape lifecycle events to a Redis stream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

const EventScrapeCompleted = "scrape.completed"

// ScrapeCompletedPayload is the event body published after each run.
type ScrapeCompletedPayload struct {
	JobID      string    `json:"job_id,omitempty"`
	SearchTerm string    `json:"search_term"`
	RowCount   int       `json:"row_count"`
	FreshCount int       `json:"fresh_count"`
	StopReason string    `json:"stop_reason"`
	Sample     bool      `json:"sample"`
	Duration   string    `json:"duration"`
	FinishedAt time.Time `json:"finished_at"`
}

type Publisher struct {
	redis  RedisClient
	stream string
	logger *slog.Logger
}

func NewPublisher(client RedisClient, stream string, logger *slog.Logger) *Publisher {
	return &Publisher{
		redis:  client,
		stream: stream,
		logger: logger.With("component", "events"),
	}
}

// PublishScrapeCompleted appends the event to the configured stream.
func (p *Publisher) PublishScrapeCompleted(ctx context.Context, payload ScrapeCompletedPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"event_id":   uuid.New().String(),
			"event_type": EventScrapeCompleted,
			"timestamp":  fmt.Sprintf("%d", time.Now().UnixNano()),
			"data":       string(data),
		},
	}

	if _, err := p.redis.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Debug("published event",
		"stream", p.stream,
		"type", EventScrapeCompleted,
		"term", payload.SearchTerm,
	)

	return nil
}
