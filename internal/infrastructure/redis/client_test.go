package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	s := miniredis.RunT(t)

	client, err := NewClient(context.Background(), Config{URL: "redis://" + s.Addr() + "/2", PoolSize: 4})
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, 4, client.Options().PoolSize)
	assert.Equal(t, 2, client.Options().DB)
	assert.Equal(t, defaultDialTimeout, client.Options().DialTimeout)
	assert.NoError(t, Pinger{Client: client}.Ping(context.Background()))
}

func TestNewClientErrors(t *testing.T) {
	t.Run("invalid url", func(t *testing.T) {
		_, err := NewClient(context.Background(), Config{URL: "://bad-url"})
		assert.ErrorContains(t, err, "parse redis URL")
	})

	t.Run("server down", func(t *testing.T) {
		s := miniredis.RunT(t)
		url := "redis://" + s.Addr()
		s.Close()

		_, err := NewClient(context.Background(), Config{URL: url, DialTimeout: 200 * time.Millisecond})
		assert.ErrorContains(t, err, "ping redis")
	})
}

func TestPingerReportsOutage(t *testing.T) {
	s := miniredis.RunT(t)

	client, err := NewClient(context.Background(), Config{URL: "redis://" + s.Addr()})
	require.NoError(t, err)
	defer client.Close()

	s.Close()
	assert.Error(t, Pinger{Client: client}.Ping(context.Background()))
}
