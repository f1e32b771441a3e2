package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/amazon-pdp-exporter/internal/models"
)

type fakeRedis struct {
	args *redis.XAddArgs
	err  error
}

func (f *fakeRedis) XAdd(_ context.Context, args *redis.XAddArgs) *redis.StringCmd {
	f.args = args
	return redis.NewStringResult("1-1", f.err)
}

func (f *fakeRedis) Close() error { return nil }

func TestConsume_PublishesProductExtractedEvent(t *testing.T) {
	client := &fakeRedis{}
	publisher := NewPublisher(client, "pdp.extracted")

	record := models.NewRecord("B0EVENT001")
	record.Title = "Widget"
	record.Brand = "Acme"
	record.ImageURLs = []string{"https://m.media-amazon.com/images/I/AAA._SL1500_.jpg"}
	record.ImageCount = 1
	record.HasVideo = true

	require.NoError(t, publisher.Consume(context.Background(), record))

	require.NotNil(t, client.args)
	assert.Equal(t, "pdp.extracted", client.args.Stream)
	assert.Equal(t, EventTypeProductExtracted, client.args.Values.(map[string]interface{})["event_type"])

	var payload ProductExtractedPayload
	raw := client.args.Values.(map[string]interface{})["payload"].(string)
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	assert.NotEmpty(t, payload.EventID)
	assert.Equal(t, EventTypeProductExtracted, payload.EventType)
	assert.Equal(t, "B0EVENT001", payload.ASIN)
	assert.Equal(t, "Widget", payload.Title)
	assert.Equal(t, record.ImageURLs, payload.ImageURLs)
	assert.Equal(t, 1, payload.ImageCount)
	assert.True(t, payload.HasVideo)
	assert.Equal(t, "pdp-exporter", payload.Source)
}

func TestConsume_PropagatesRedisError(t *testing.T) {
	client := &fakeRedis{err: errors.New("connection refused")}
	publisher := NewPublisher(client, "pdp.extracted")

	err := publisher.Consume(context.Background(), models.NewRecord("B0EVENT001"))
	assert.ErrorContains(t, err, "failed to publish event")
}

func TestNewPublisher_DefaultStream(t *testing.T) {
	publisher := NewPublisher(&fakeRedis{}, "")
	assert.Equal(t, "pdp.extracted", publisher.stream)
}
