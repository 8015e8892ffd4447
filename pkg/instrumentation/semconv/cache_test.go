package semconv

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	cache := NewFileCache(afero.NewMemMapFs(), ".semconv_cache")

	_, err := cache.Get(ctx, "http/_directory_listing.json")
	assert.True(t, IsCacheMiss(err))

	require.NoError(t, cache.Set(ctx, "http/_directory_listing.json", []byte("[]")))
	got, err := cache.Get(ctx, "http/_directory_listing.json")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))
}

func TestFileCacheRejectsEscapingKeys(t *testing.T) {
	cache := NewFileCache(afero.NewMemMapFs(), "cache")
	err := cache.Set(context.Background(), "../outside", []byte("x"))
	assert.Error(t, err)
	assert.False(t, IsCacheMiss(err))
}

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisCacheWithClient(client, DefaultRedisPrefix, 0)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestRedisCache_SetAndGet(t *testing.T) {
	ctx := context.Background()
	cache, mr := setupTestRedis(t)

	_, err := cache.Get(ctx, "db/registry.yaml")
	assert.True(t, IsCacheMiss(err))

	require.NoError(t, cache.Set(ctx, "db/registry.yaml", []byte("groups: []")))

	got, err := cache.Get(ctx, "db/registry.yaml")
	require.NoError(t, err)
	assert.Equal(t, "groups: []", string(got))
	assert.True(t, mr.Exists(DefaultRedisPrefix+"db/registry.yaml"))
}

func TestRedisCache_TTL(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cache := NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "p:", time.Minute)
	defer cache.Close()

	require.NoError(t, cache.Set(ctx, "k", []byte("v")))
	mr.FastForward(2 * time.Minute)

	_, err = cache.Get(ctx, "k")
	assert.True(t, IsCacheMiss(err))
}

func TestNewRedisCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cache, err := NewRedisCache(context.Background(), mr.Addr(), 0)
	require.NoError(t, err)
	assert.NoError(t, cache.Close())
}
