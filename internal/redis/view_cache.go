package redis

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ViewCache stores JSON projections of type T under string keys. Writes are
// best effort: failures are logged and never returned.
type ViewCache[T any] struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewViewCache namespaces every key with prefix. A zero ttl keeps keys forever.
func NewViewCache[T any](client *goredis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *ViewCache[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewCache[T]{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

// Get returns (nil, false) on a miss or an undecodable value.
func (c *ViewCache[T]) Get(ctx context.Context, id string) (*T, bool) {
	data, err := c.client.Get(ctx, c.prefix+id).Result()
	if err != nil {
		return nil, false
	}
	var v T
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, false
	}
	return &v, true
}

func (c *ViewCache[T]) Set(ctx context.Context, id string, value T) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("view cache marshal failed", zap.String("key", c.prefix+id), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.prefix+id, data, c.ttl).Err(); err != nil {
		c.logger.Warn("view cache write failed", zap.String("key", c.prefix+id), zap.Error(err))
	}
}

func (c *ViewCache[T]) Delete(ctx context.Context, id string) {
	if err := c.client.Del(ctx, c.prefix+id).Err(); err != nil {
		c.logger.Warn("view cache delete failed", zap.String("key", c.prefix+id), zap.Error(err))
	}
}
