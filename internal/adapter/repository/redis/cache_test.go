package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetAndGet(t *testing.T) {
	client, mr := newTestRedisClient(t)
	cache := NewCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "wallet:user-1", []byte(`{"balance":"10.00"}`), time.Minute))

	val, err := cache.Get(ctx, "wallet:user-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"balance":"10.00"}`, string(val))
	assert.True(t, mr.Exists(cachePrefix+"wallet:user-1"))
	assert.Equal(t, time.Minute, mr.TTL(cachePrefix+"wallet:user-1"))
}

func TestCache_Miss(t *testing.T) {
	client, _ := newTestRedisClient(t)

	_, err := NewCache(client).Get(context.Background(), "wallet:nobody")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCache_Expires(t *testing.T) {
	client, mr := newTestRedisClient(t)
	cache := NewCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "wallet:user-2", []byte("v"), time.Second))
	mr.FastForward(2 * time.Second)

	_, err := cache.Get(ctx, "wallet:user-2")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCache_DeleteRejectsStaleWrites(t *testing.T) {
	client, mr := newTestRedisClient(t)
	cache := NewCache(client, WithInvalidationHold(5*time.Second))
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "wallet:user-3", []byte(`{"balance":"100.00"}`), time.Minute))
	require.NoError(t, cache.Delete(ctx, "wallet:user-3"))

	// A reader that loaded the pre-checkout balance tries to repopulate.
	require.NoError(t, cache.Set(ctx, "wallet:user-3", []byte(`{"balance":"100.00"}`), time.Minute))
	_, err := cache.Get(ctx, "wallet:user-3")
	assert.ErrorIs(t, err, ErrCacheMiss)

	mr.FastForward(6 * time.Second)
	require.NoError(t, cache.Set(ctx, "wallet:user-3", []byte(`{"balance":"70.00"}`), time.Minute))
	val, err := cache.Get(ctx, "wallet:user-3")
	require.NoError(t, err)
	assert.JSONEq(t, `{"balance":"70.00"}`, string(val))
}

func TestCache_DeleteMissingKey(t *testing.T) {
	client, _ := newTestRedisClient(t)

	assert.NoError(t, NewCache(client).Delete(context.Background(), "wallet:ghost"))
}

func TestCache_WithoutHold(t *testing.T) {
	client, mr := newTestRedisClient(t)
	cache := NewCache(client, WithInvalidationHold(0))
	ctx := context.Background()

	require.NoError(t, cache.Delete(ctx, "wallet:user-4"))
	assert.False(t, mr.Exists(cachePrefix+"wallet:user-4"+tombstoneSuffix))

	require.NoError(t, cache.Set(ctx, "wallet:user-4", []byte("v"), 0))
	assert.True(t, mr.Exists(cachePrefix+"wallet:user-4"))
	assert.Zero(t, mr.TTL(cachePrefix+"wallet:user-4"))
}
