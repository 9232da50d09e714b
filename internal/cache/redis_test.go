package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/questwatch/internal/analytics"
)

// Compile-time check that Redis satisfies the facade's cache contract.
var _ analytics.Cache = (*Redis)(nil)

func TestNewRedis_BadURL(t *testing.T) {
	_, err := NewRedis("http://not-redis", time.Minute)
	assert.ErrorContains(t, err, "parsing redis url")
}

func TestNewRedis_ParsesDB(t *testing.T) {
	r, err := NewRedis("redis://localhost:6399/3", time.Minute)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	assert.Equal(t, 3, r.client.Options().DB)
	assert.Equal(t, "localhost:6399", r.client.Options().Addr)
}

func TestRedis_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	r := NewRedisClient(client, time.Minute)
	defer func() { _ = r.Close() }()

	ctx := context.Background()
	assert.Error(t, r.Ping(ctx))

	_, ok, err := r.Get(ctx, "questwatch:detail:q1:all:1")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Error(t, r.Set(ctx, "k", []byte("v")))
}
