package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultStreamMaxLen caps each stream this service writes to. Trimming is
// approximate so XADD stays O(1).
const DefaultStreamMaxLen int64 = 10000

// EventPublisher is what the command side depends on.
type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

type PublisherConfig struct {
	// Source is stamped on every envelope so consumers can tell producers apart.
	Source string
	// MaxLen bounds the stream; zero means DefaultStreamMaxLen, negative disables trimming.
	MaxLen int64
	Logger *zap.Logger
}

// Publisher appends event envelopes to Redis streams.
type Publisher struct {
	client *redis.Client
	source string
	maxLen int64
	logger *zap.Logger
}

func NewPublisher(client *redis.Client, config PublisherConfig) *Publisher {
	if config.MaxLen == 0 {
		config.MaxLen = DefaultStreamMaxLen
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &Publisher{
		client: client,
		source: config.Source,
		maxLen: config.MaxLen,
		logger: config.Logger,
	}
}

func (p *Publisher) Publish(ctx context.Context, stream, eventType string, data any) error {
	payload, err := json.Marshal(Event{
		Type:      eventType,
		Source:    p.source,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{"event": payload},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("publish %s to %s: %w", eventType, stream, err)
	}
	p.logger.Debug("event published",
		zap.String("stream", stream),
		zap.String("type", eventType),
		zap.String("id", id),
	)
	return nil
}

// NopPublisher drops every event. Used when no Redis address is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, any) error {
	return nil
}
