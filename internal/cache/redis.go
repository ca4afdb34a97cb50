// Package cache holds the redis-backed unread-count cache.
//
// The unread badge is polled constantly by every open client, and the
// aggregate query joins two tables — caching it for a few seconds takes
// the hottest read off Postgres. The cache is strictly best effort: every
// error falls through to the database, and staleness is bounded by the
// TTL because counterparties' writes do not invalidate a foreign actor's
// key (only one's own key is dropped on write).
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const unreadTTL = 15 * time.Second

type Cache struct {
	client *redis.Client
	logger *zap.Logger
}

// New connects to redis from a URL ("redis://host:6379") and pings to
// verify the connection before anyone depends on it.
func New(ctx context.Context, redisURL string, logger *zap.Logger) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &Cache{client: client, logger: logger}, nil
}

// GetUnread returns the cached count and whether the key was present.
func (c *Cache) GetUnread(ctx context.Context, key string) (int64, bool) {
	n, err := c.client.Get(ctx, key).Int64()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("unread cache get failed", zap.String("key", key), zap.Error(err))
		}
		return 0, false
	}
	return n, true
}

// SetUnread stores a count under the short TTL.
func (c *Cache) SetUnread(ctx context.Context, key string, count int64) {
	if err := c.client.Set(ctx, key, count, unreadTTL).Err(); err != nil {
		c.logger.Warn("unread cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops keys after a write that changes their counts.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("unread cache invalidate failed", zap.Error(err))
	}
}

func (c *Cache) Close() error {
	return c.client.Close()
}
