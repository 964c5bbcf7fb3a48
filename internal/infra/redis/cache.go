package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/NXConner/blacktop-blueprint-ai-sub001/pkg/logger"
)

const versionKey = "report:version"

// Cache stores rendered report payloads in Redis. Keys embed a version
// counter that posting bumps, so stale reports age out without explicit
// deletes.
type Cache struct {
	client *redis.Client
	log    *logger.Logger
}

func NewCache(client *redis.Client, log *logger.Logger) *Cache {
	return &Cache{client: client, log: log}
}

// Get returns the cached payload for key, or found=false on a miss.
// Redis errors are logged and treated as misses so reports still render.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).WithField("key", key).Warn("report cache get failed")
		}
		return nil, false
	}
	return data, true
}

func (c *Cache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("report cache set failed")
	}
}

// Version returns the current cache generation. A missing key reads as 0.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, versionKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return v, nil
}

// Invalidate bumps the cache generation. Entries written under earlier
// versions become unreachable and expire by TTL.
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, versionKey).Err()
}
