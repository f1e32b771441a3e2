// Package events publishes extraction results to a Redis stream so other
// services can react without polling the archive.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/maltedev/amazon-pdp-exporter/internal/models"
)

// EventTypeProductExtracted is published once per successfully extracted record.
const EventTypeProductExtracted = "PRODUCT_EXTRACTED"

// RedisClient is the slice of go-redis used by the publisher (for testing).
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// ProductExtractedPayload is the event body placed on the stream.
type ProductExtractedPayload struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	Timestamp  time.Time `json:"timestamp"`
	ASIN       string    `json:"asin"`
	Title      string    `json:"title,omitempty"`
	Brand      string    `json:"brand,omitempty"`
	ImageURLs  []string  `json:"image_urls,omitempty"`
	ImageCount int       `json:"image_count"`
	HasVideo   bool      `json:"has_video"`
	Source     string    `json:"source"`
}

type Publisher struct {
	client RedisClient
	stream string
	logger *slog.Logger
}

func NewPublisher(client RedisClient, stream string) *Publisher {
	if stream == "" {
		stream = "pdp.extracted"
	}
	return &Publisher{
		client: client,
		stream: stream,
		logger: slog.Default().With("component", "event_publisher"),
	}
}

func (p *Publisher) Name() string { return "event_publisher" }

// Consume publishes a PRODUCT_EXTRACTED event for the record.
func (p *Publisher) Consume(ctx context.Context, record *models.ProductRecord) error {
	payload := &ProductExtractedPayload{
		EventID:    uuid.New().String(),
		EventType:  EventTypeProductExtracted,
		Timestamp:  time.Now(),
		ASIN:       record.ASIN,
		Title:      record.Title,
		Brand:      record.Brand,
		ImageURLs:  record.ImageURLs,
		ImageCount: record.ImageCount,
		HasVideo:   record.HasVideo,
		Source:     "pdp-exporter",
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"event_type": payload.EventType,
			"payload":    string(data),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("event published", "stream", p.stream, "asin", record.ASIN, "event_id", payload.EventID)
	return nil
}
