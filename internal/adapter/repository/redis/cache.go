package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("redis: cache miss")

const (
	cachePrefix        = "ledger:cache:"
	tombstoneSuffix    = ":invalidated"
	defaultInvalidHold = 2 * time.Second
)

// setUnlessInvalidated refuses to write KEYS[1] while its tombstone KEYS[2]
// exists. ARGV[2] is the TTL in milliseconds, zero for no expiry.
var setUnlessInvalidated = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
	return 0
end
if tonumber(ARGV[2]) > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
else
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// Cache implements usecase.Cache for wallet read-through caching.
//
// A reader that loaded a balance before a concurrent commit must not put it
// back after the writer invalidated the key. Delete therefore leaves a short
// tombstone and Set is skipped while it is present.
type Cache struct {
	client redis.UniversalClient
	hold   time.Duration
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithInvalidationHold sets how long a deleted key rejects writes.
func WithInvalidationHold(d time.Duration) CacheOption {
	return func(c *Cache) { c.hold = d }
}

func NewCache(client redis.UniversalClient, opts ...CacheOption) *Cache {
	c := &Cache{client: client, hold: defaultInvalidHold}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, cachePrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return data, err
}

// Set stores value unless key was invalidated within the hold window.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	keys := []string{cachePrefix + key, cachePrefix + key + tombstoneSuffix}
	return setUnlessInvalidated.Run(ctx, c.client, keys, value, ttl.Milliseconds()).Err()
}

// Delete drops key and holds it against stale writes. Deleting a missing key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, cachePrefix+key)
		if c.hold > 0 {
			pipe.Set(ctx, cachePrefix+key+tombstoneSuffix, 1, c.hold)
		}
		return nil
	})
	return err
}
