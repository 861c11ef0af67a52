package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/redis/go-redis/v9"
)

// PageCache caches rendered schema lists for the page-render endpoint.
// Entries are TTL-bounded; writes do not purge the cache, so the render
// surface may serve results up to one TTL stale.
type PageCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

type redisPageCache struct {
	rdb *redis.Client
}

func NewRedisPageCache(redisClient *redis.Client) PageCache {
	return &redisPageCache{rdb: redisClient}
}

func (c *redisPageCache) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.DebugContext(
				ctx, "page cache get failed",
				slog.String("error", err.Error()),
				slog.String("module", "cache"),
			)
		}
		return nil, false
	}
	return value, true
}

func (c *redisPageCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		slog.DebugContext(
			ctx, "page cache set failed",
			slog.String("error", err.Error()),
			slog.String("module", "cache"),
		)
	}
}

type memcachedPageCache struct {
	mc *memcache.Client
}

func NewMemcachedPageCache(client *memcache.Client) PageCache {
	return &memcachedPageCache{mc: client}
}

func (c *memcachedPageCache) Get(ctx context.Context, key string) ([]byte, bool) {
	item, err := c.mc.Get(key)
	if err != nil {
		if err != memcache.ErrCacheMiss {
			slog.DebugContext(
				ctx, "page cache get failed",
				slog.String("error", err.Error()),
				slog.String("module", "cache"),
			)
		}
		return nil, false
	}
	return item.Value, true
}

func (c *memcachedPageCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	err := c.mc.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(ttl / time.Second),
	})
	if err != nil {
		slog.DebugContext(
			ctx, "page cache set failed",
			slog.String("error", err.Error()),
			slog.String("module", "cache"),
		)
	}
}
