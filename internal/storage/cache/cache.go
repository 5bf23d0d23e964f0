// Package cache wraps a board backend with a Redis read-through cache for GetAll.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"kanban/internal/models"
	"kanban/internal/storage"
)

// Cache serves GetAll from Redis and evicts a user's entry after every write.
type Cache struct {
	base  storage.Backend
	redis *redis.Client
	ttl   time.Duration
}

var _ storage.Backend = (*Cache)(nil)

// New creates a caching backend using the provided Redis client and TTL.
func New(base storage.Backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("cache.New: base backend is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) GetAll(ctx context.Context, userID string) ([]models.ListDocument, error) {
	if docs, ok := c.load(ctx, userID); ok {
		return docs, nil
	}

	docs, err := c.base.GetAll(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.store(ctx, userID, docs)
	return docs, nil
}

func (c *Cache) Put(ctx context.Context, doc models.ListDocument) error {
	// evict on both sides of the write so a concurrent reader cannot re-cache stale data
	c.evict(ctx, doc.UserID)
	if err := c.base.Put(ctx, doc); err != nil {
		return err
	}
	c.evict(ctx, doc.UserID)
	return nil
}

func (c *Cache) Patch(ctx context.Context, userID, listID string, patch storage.ListPatch) error {
	c.evict(ctx, userID)
	if err := c.base.Patch(ctx, userID, listID, patch); err != nil {
		return err
	}
	c.evict(ctx, userID)
	return nil
}

func (c *Cache) load(ctx context.Context, userID string) ([]models.ListDocument, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, Key(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, Key(userID)).Err()
		}
		return nil, false
	}
	var docs []models.ListDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		_ = c.redis.Del(ctx, Key(userID)).Err()
		return nil, false
	}
	return docs, true
}

func (c *Cache) store(ctx context.Context, userID string, docs []models.ListDocument) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(docs)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, Key(userID), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, userID string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, Key(userID)).Err()
}

// Key is the cache entry for a user's board.
func Key(userID string) string {
	return "board:" + storage.UserOrLocal(userID)
}
