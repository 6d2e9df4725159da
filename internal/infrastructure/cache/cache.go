// Package cache provides the Redis read cache for API views.
//
// Cached entries are keyed by the versions of the resource tags they depend
// on. Invalidate bumps a tag version, so every entry built from the old
// version becomes unreachable and expires by TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"pheezes/pkg/logger"
)

// Resource tags.
const (
	TagProducts = "products"
	TagOrders   = "orders"
	TagCash     = "cash"
)

const keyPrefix = "pheezes:view"

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}
	return client, nil
}

// Cache is a versioned JSON view cache. A nil *Cache is valid and caches
// nothing.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// New creates a cache over client.
func New(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

// Enabled reports whether a Redis client is configured.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Key composes a cache key from parts and the current versions of tags.
func (c *Cache) Key(ctx context.Context, tags []string, parts ...string) (string, error) {
	segments := append([]string{keyPrefix}, parts...)
	if !c.Enabled() {
		return strings.Join(segments, ":"), nil
	}

	for _, tag := range tags {
		ver, err := c.version(ctx, tag)
		if err != nil {
			return "", err
		}
		segments = append(segments, tag+"@"+strconv.FormatInt(ver, 10))
	}
	return strings.Join(segments, ":"), nil
}

// Fetch returns the JSON encoding of the cached value under key, loading and
// storing it on a miss. Concurrent misses for one key share a single load.
// Redis failures degrade to calling load directly.
func (c *Cache) Fetch(ctx context.Context, key string, load func(context.Context) (any, error)) (json.RawMessage, error) {
	if !c.Enabled() {
		return loadJSON(ctx, load)
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return payload, nil
	}
	if !errors.Is(err, redis.Nil) {
		logger.Warn(ctx, "cache read failed", "key", key, "error", err)
		return loadJSON(ctx, load)
	}

	// Every waiter on key shares this load; it outlives the caller that
	// started it.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		raw, err := loadJSON(shared, load)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(shared, key, []byte(raw), c.ttl).Err(); err != nil {
			logger.Warn(shared, "cache write failed", "key", key, "error", err)
		}
		return raw, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(json.RawMessage), nil
	}
}

// View serves load through the cache under a key built from parts and the
// versions of tags. A failed version lookup bypasses the cache.
func (c *Cache) View(ctx context.Context, tags []string, parts []string, load func(context.Context) (any, error)) (json.RawMessage, error) {
	key, err := c.Key(ctx, tags, parts...)
	if err != nil {
		logger.Warn(ctx, "cache key failed", "error", err)
		return loadJSON(ctx, load)
	}
	return c.Fetch(ctx, key, load)
}

// Invalidate bumps the versions of tags. Failures are logged; entries then
// live until their TTL.
func (c *Cache) Invalidate(ctx context.Context, tags ...string) {
	if !c.Enabled() || len(tags) == 0 {
		return
	}

	pipe := c.client.TxPipeline()
	for _, tag := range tags {
		pipe.Incr(ctx, versionKey(tag))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn(ctx, "cache invalidation failed", "tags", tags, "error", err)
		return
	}
	logger.Debug(ctx, "cache invalidated", "tags", tags)
}

func (c *Cache) version(ctx context.Context, tag string) (int64, error) {
	ver, err := c.client.Get(ctx, versionKey(tag)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache: version of %s: %w", tag, err)
	}
	return ver, nil
}

func versionKey(tag string) string {
	return keyPrefix + ":version:" + tag
}

func loadJSON(ctx context.Context, load func(context.Context) (any, error)) (json.RawMessage, error) {
	value, err := load(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("cache: encode value: %w", err)
	}
	return raw, nil
}
