package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "cache:"

// SnapshotCache memoizes serialized response snapshots under namespaced
// keys with a freshness timestamp. A stale entry is dropped on read and
// reported as a miss; this is memoization, not a consistency mechanism.
type SnapshotCache struct {
	client *goredis.Client
	now    func() time.Time
}

type cacheEntry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

func NewSnapshotCache(client *goredis.Client) *SnapshotCache {
	return &SnapshotCache{
		client: client,
		now:    time.Now,
	}
}

// WithClock replaces the freshness clock. Tests use it to age entries
// without sleeping.
func (c *SnapshotCache) WithClock(now func() time.Time) *SnapshotCache {
	if now != nil {
		c.now = now
	}
	return c
}

// Get returns the cached snapshot if it is younger than ttl. The second
// return is false on miss, stale entry, or any transport failure (a cache
// problem must never fail the read path).
func (c *SnapshotCache) Get(ctx context.Context, namespace, key string, ttl time.Duration) (json.RawMessage, bool) {
	if c == nil || c.client == nil || ttl <= 0 {
		return nil, false
	}

	raw, err := c.client.Get(ctx, c.key(namespace, key)).Bytes()
	if err != nil {
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		_ = c.client.Del(ctx, c.key(namespace, key)).Err()
		return nil, false
	}

	age := c.now().UnixMilli() - entry.Timestamp
	if age < 0 || age > ttl.Milliseconds() {
		_ = c.client.Del(ctx, c.key(namespace, key)).Err()
		return nil, false
	}

	return entry.Data, true
}

func (c *SnapshotCache) Set(ctx context.Context, namespace, key string, data json.RawMessage) error {
	if c == nil || c.client == nil {
		return nil
	}

	entry := cacheEntry{
		Data:      data,
		Timestamp: c.now().UnixMilli(),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := c.client.Set(ctx, c.key(namespace, key), raw, 0).Err(); err != nil {
		return fmt.Errorf("set cache entry: %w", err)
	}

	return nil
}

func (c *SnapshotCache) Invalidate(ctx context.Context, namespace, key string) error {
	if c == nil || c.client == nil {
		return nil
	}

	if err := c.client.Del(ctx, c.key(namespace, key)).Err(); err != nil {
		return fmt.Errorf("invalidate cache entry: %w", err)
	}

	return nil
}

func (c *SnapshotCache) key(namespace, key string) string {
	return cacheKeyPrefix + strings.TrimSpace(namespace) + ":" + strings.TrimSpace(key)
}
