// Package redis opens the Redis connection shared by the idempotency store
// and the wallet summary cache.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultDialTimeout = 5 * time.Second

// Config configures the client.
type Config struct {
	URL string
	// PoolSize <= 0 keeps the driver default.
	PoolSize    int
	DialTimeout time.Duration
}

// NewClient creates a Redis client and verifies that the server answers within DialTimeout.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	opts.DialTimeout = cfg.DialTimeout

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// Pinger reports Redis reachability to the readiness probe.
type Pinger struct {
	Client redis.UniversalClient
}

// Ping implements handler.Pinger.
func (p Pinger) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}
