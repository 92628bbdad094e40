package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Handler func(ctx context.Context, event Event) error

// errMalformed marks entries no retry can fix; they are acked and dropped.
var errMalformed = errors.New("malformed stream entry")

type Subscriber struct {
	client        *redis.Client
	group         string
	consumer      string
	stream        string
	startID       string
	handler       Handler
	batchSize     int64
	blockDuration time.Duration
	logger        *zap.Logger
}

type SubscriberConfig struct {
	Group    string
	Consumer string
	Stream   string
	// StartID is where a newly created group begins: "0" replays the whole
	// stream, "$" only sees entries added afterwards. Defaults to "0".
	StartID       string
	Handler       Handler
	BatchSize     int64
	BlockDuration time.Duration
	Logger        *zap.Logger
}

func NewSubscriber(client *redis.Client, config SubscriberConfig) *Subscriber {
	if config.StartID == "" {
		config.StartID = "0"
	}
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}
	if config.BlockDuration == 0 {
		config.BlockDuration = 5 * time.Second
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &Subscriber{
		client:        client,
		group:         config.Group,
		consumer:      config.Consumer,
		stream:        config.Stream,
		startID:       config.StartID,
		handler:       config.Handler,
		batchSize:     config.BatchSize,
		blockDuration: config.BlockDuration,
		logger:        config.Logger.With(zap.String("stream", config.Stream), zap.String("group", config.Group)),
	}
}

// EnsureGroup creates the consumer group (and the stream) if missing.
func (s *Subscriber) EnsureGroup(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, s.startID).Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// Start blocks reading the stream until ctx ends.
func (s *Subscriber) Start(ctx context.Context) error {
	if err := s.EnsureGroup(ctx); err != nil {
		return err
	}

	s.logger.Info("subscriber started", zap.String("consumer", s.consumer))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("subscriber stopping")
			return ctx.Err()
		default:
			if err := s.ReadOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Warn("error reading messages", zap.Error(err))
				time.Sleep(time.Second)
			}
		}
	}
}

// ReadOnce first retries this consumer's pending entries, then reads one
// batch of new ones. An entry is acked only once its handler succeeds, so a
// failed entry is retried on the next call.
func (s *Subscriber) ReadOnce(ctx context.Context) error {
	if err := s.read(ctx, "0", -1); err != nil {
		return err
	}
	return s.read(ctx, ">", s.blockDuration)
}

// read fetches entries after id. A negative block returns immediately.
func (s *Subscriber) read(ctx context.Context, id string, block time.Duration) error {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, id},
		Count:    s.batchSize,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		for _, message := range stream.Messages {
			// Trimmed out of the stream while pending; nothing left to handle.
			if len(message.Values) == 0 {
				s.ack(ctx, message.ID)
				continue
			}
			if err := s.processMessage(ctx, message); err != nil {
				s.logger.Warn("failed to process message", zap.String("id", message.ID), zap.Error(err))
				if errors.Is(err, errMalformed) {
					s.ack(ctx, message.ID)
				}
				continue
			}
			s.ack(ctx, message.ID)
		}
	}
	return nil
}

func (s *Subscriber) ack(ctx context.Context, id string) {
	if err := s.client.XAck(ctx, s.stream, s.group, id).Err(); err != nil {
		s.logger.Warn("failed to ack message", zap.String("id", id), zap.Error(err))
	}
}

func (s *Subscriber) processMessage(ctx context.Context, message redis.XMessage) error {
	eventData, ok := message.Values["event"].(string)
	if !ok {
		return fmt.Errorf("%w: no event field", errMalformed)
	}

	var event Event
	if err := json.Unmarshal([]byte(eventData), &event); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}

	return s.handler(ctx, event)
}
