// Package redis holds the optional Redis side of the service: the shared
// client and the account view projection.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	connectTimeout = 5 * time.Second
	checkTimeout   = time.Second
)

type Options struct {
	Addr     string
	Password string
	DB       int
	// PoolSize defaults to ten connections. The service holds one blocking
	// reader per subscribed stream on top of request traffic.
	PoolSize int
}

// Client is the go-redis client plus the logger its lifecycle reports to.
type Client struct {
	*redis.Client
	addr   string
	logger *zap.Logger
}

// NewClient dials opts.Addr and fails unless a ping succeeds within
// connectTimeout.
func NewClient(ctx context.Context, opts Options, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = 10
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  connectTimeout,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     opts.PoolSize,
	})

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}

	logger.Info("connected to redis", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return &Client{Client: rdb, addr: opts.Addr, logger: logger}, nil
}

// Check pings the server with a short deadline. Used by the health endpoint.
func (c *Client) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	return c.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if err := c.Client.Close(); err != nil {
		return err
	}
	c.logger.Info("redis connection closed", zap.String("addr", c.addr))
	return nil
}
