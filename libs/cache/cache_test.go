package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type backend struct {
	name  string
	open  func(t *testing.T, clock *fakeClock) Cache
	clock bool
}

func backends() []backend {
	return []backend{
		{
			name:  "memory",
			clock: true,
			open: func(t *testing.T, clock *fakeClock) Cache {
				c := NewMemoryCache()
				c.now = clock.now
				return c
			},
		},
		{
			name:  "sqlite",
			clock: true,
			open: func(t *testing.T, clock *fakeClock) Cache {
				c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"))
				require.NoError(t, err)
				c.now = clock.now
				return c
			},
		},
		{
			name: "redis",
			open: func(t *testing.T, clock *fakeClock) Cache {
				url := os.Getenv("REDIS_URL")
				if url == "" {
					t.Skip("REDIS_URL not set")
				}
				c, err := NewRedisCache(url)
				require.NoError(t, err)
				if err := c.Ping(context.Background()); err != nil {
					t.Skipf("redis unavailable: %v", err)
				}
				return c
			},
		},
	}
}

func TestCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			c := b.open(t, &fakeClock{t: time.Unix(1000, 0)})
			defer c.Close()

			key := "sc2ranks-test:" + t.Name()
			_, err := c.Get(ctx, key)
			assert.ErrorIs(t, err, ErrMiss)

			require.NoError(t, c.SetWithTtl(ctx, key, `{"name":"Kapitulation"}`, time.Minute))
			value, err := c.Get(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, `{"name":"Kapitulation"}`, value)

			require.NoError(t, c.SetWithTtl(ctx, key, "second", time.Minute))
			value, err = c.Get(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, "second", value)

			require.NoError(t, c.Delete(ctx, key))
			_, err = c.Get(ctx, key)
			assert.ErrorIs(t, err, ErrMiss)
		})
	}
}

func TestCache_Expiry(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends() {
		if !b.clock {
			continue
		}
		t.Run(b.name, func(t *testing.T) {
			clock := &fakeClock{t: time.Unix(1000, 0)}
			c := b.open(t, clock)
			defer c.Close()

			require.NoError(t, c.SetWithTtl(ctx, "short", "v", time.Minute))
			require.NoError(t, c.SetWithTtl(ctx, "forever", "v", 0))

			clock.advance(59 * time.Second)
			_, err := c.Get(ctx, "short")
			assert.NoError(t, err)

			clock.advance(time.Second)
			_, err = c.Get(ctx, "short")
			assert.ErrorIs(t, err, ErrMiss)

			clock.advance(24 * time.Hour)
			_, err = c.Get(ctx, "forever")
			assert.NoError(t, err)
		})
	}
}

func TestCache_SetKeepTtl(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends() {
		if !b.clock {
			continue
		}
		t.Run(b.name, func(t *testing.T) {
			clock := &fakeClock{t: time.Unix(1000, 0)}
			c := b.open(t, clock)
			defer c.Close()

			require.NoError(t, c.SetWithTtl(ctx, "current", "1", time.Minute))
			clock.advance(30 * time.Second)
			require.NoError(t, c.SetKeepTtl(ctx, "current", "2"))

			value, err := c.Get(ctx, "current")
			require.NoError(t, err)
			assert.Equal(t, "2", value)

			clock.advance(30 * time.Second)
			_, err = c.Get(ctx, "current")
			assert.ErrorIs(t, err, ErrMiss, "expiry of the first set is kept")

			require.NoError(t, c.SetKeepTtl(ctx, "new", "x"))
			clock.advance(48 * time.Hour)
			value, err = c.Get(ctx, "new")
			require.NoError(t, err)
			assert.Equal(t, "x", value)
		})
	}
}

func TestSQLiteCache_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	c, err := NewSQLiteCache(path)
	require.NoError(t, err)
	require.NoError(t, c.SetWithTtl(ctx, "key", "value", time.Hour))
	require.NoError(t, c.Close())

	c, err = NewSQLiteCache(path)
	require.NoError(t, err)
	defer c.Close()

	value, err := c.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "value", value)
}

func TestNewCache(t *testing.T) {
	c, err := NewCache("")
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)

	c, err = NewCache("sqlite://" + filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteCache{}, c)
	require.NoError(t, c.Close())

	c, err = NewCache("redis://localhost:6379/0")
	require.NoError(t, err)
	assert.IsType(t, &RedisCache{}, c)
	require.NoError(t, c.Close())

	_, err = NewCache("memcached://localhost")
	assert.Error(t, err)
}
