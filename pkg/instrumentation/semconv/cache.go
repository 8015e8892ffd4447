package semconv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
)

// Cache stores downloaded directory listings and model files so repeated
// runs avoid the network.
type Cache interface {
	// Get retrieves a value. A missing key returns ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value.
	Set(ctx context.Context, key string, value []byte) error
}

// ErrCacheMiss is returned when a key is not found in the cache
type ErrCacheMiss struct {
	Key string
}

func (e ErrCacheMiss) Error() string {
	return "cache miss: " + e.Key
}

// IsCacheMiss checks if an error is a cache miss
func IsCacheMiss(err error) bool {
	var miss ErrCacheMiss
	return errors.As(err, &miss)
}

// FileCache keeps entries as files under a base directory. Keys are
// slash-separated relative paths such as "http/_directory_listing.json".
type FileCache struct {
	fs      afero.Fs
	baseDir string
}

// NewFileCache creates a file cache rooted at baseDir.
func NewFileCache(fs afero.Fs, baseDir string) *FileCache {
	return &FileCache{fs: fs, baseDir: baseDir}
}

func (c *FileCache) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid cache key %q", key)
	}
	return filepath.Join(c.baseDir, clean), nil
}

// Get retrieves a value from the cache
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := c.path(key)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(c.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrCacheMiss{Key: key}
		}
		return nil, err
	}
	return data, nil
}

// Set stores a value in the cache
func (c *FileCache) Set(ctx context.Context, key string, value []byte) error {
	path, err := c.path(key)
	if err != nil {
		return err
	}
	if err := c.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	return afero.WriteFile(c.fs, path, value, 0644)
}

// RedisCache implements a Redis-backed cache, letting several machines share
// one download of the conventions.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// DefaultRedisPrefix is prepended to every key.
const DefaultRedisPrefix = "semconv:"

// NewRedisCache connects to addr and verifies the connection.
func NewRedisCache(ctx context.Context, addr string, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return NewRedisCacheWithClient(client, DefaultRedisPrefix, ttl), nil
}

// NewRedisCacheWithClient creates a Redis cache with an existing client
func NewRedisCacheWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

// Get retrieves a value from the cache
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss{Key: key}
		}
		return nil, err
	}
	return value, nil
}

// Set stores a value in the cache. A zero ttl keeps the entry forever.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, r.prefix+key, value, r.ttl).Err()
}

// Close closes the underlying client
func (r *RedisCache) Close() error {
	return r.client.Close()
}
