package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

// memClient is a RedisClient over a map; expirations are recorded, not enforced.
type memClient struct {
	mu      sync.Mutex
	vals    map[string]string
	counts  map[string]int64
	expires map[string]time.Duration
}

func newMemClient() *memClient {
	return &memClient{vals: map[string]string{}, counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (m *memClient) Ping(context.Context) error { return nil }

func (m *memClient) Set(_ context.Context, key string, value interface{}, exp time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[key] = value.(string)
	m.expires[key] = exp
	return nil
}

func (m *memClient) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vals[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memClient) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memClient) Expire(_ context.Context, key string, exp time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expires[key] = exp
	return nil
}

func (m *memClient) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.vals, k)
		delete(m.counts, k)
	}
	return nil
}

func (m *memClient) Close() error { return nil }

func TestRateLimiterWindow(t *testing.T) {
	ctx := context.Background()
	cli := newMemClient()
	rl := NewRateLimiter(cli)
	key := ClientRouteKey("10.0.0.1", "/api/translate")
	require.Equal(t, "rate_limit:10.0.0.1:/api/translate", key)

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		require.True(t, ok, "request %d", i)
	}
	ok, err := rl.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, time.Minute, cli.expires[key])
}

func TestTranslationCache(t *testing.T) {
	ctx := context.Background()
	cli := newMemClient()
	c := NewTranslationCache(cli, time.Hour)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", "int f() { return 1; }"))
	code, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "int f() { return 1; }", code)
	require.Equal(t, time.Hour, cli.expires["translation:k"])
}
