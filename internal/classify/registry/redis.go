package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"idbridge/internal/classify"
)

const cacheKeyPrefix = "registry:entry:"

// Cached decorates a registry store with a Redis read-through cache.
// Upserts write through to the inner store and invalidate the cached entry,
// so classification results are consistently sourced from one place.
type Cached struct {
	inner  classify.RegistryStore
	client *redis.Client
	ttl    time.Duration
}

// NewCached wraps inner with a Redis cache.
func NewCached(inner classify.RegistryStore, client *redis.Client, ttl time.Duration) *Cached {
	return &Cached{inner: inner, client: client, ttl: ttl}
}

func (c *Cached) Find(ctx context.Context, key string) (classify.RegistryEntry, error) {
	cacheKey := cacheKeyPrefix + key

	raw, err := c.client.Get(ctx, cacheKey).Bytes()
	if err == nil {
		var entry classify.RegistryEntry
		if jsonErr := json.Unmarshal(raw, &entry); jsonErr == nil {
			return entry, nil
		}
		// Corrupt cache entry: fall through to the inner store.
	} else if !errors.Is(err, redis.Nil) {
		// Cache unavailable is not fatal for a read-mostly registry; the
		// inner store remains authoritative.
		entry, innerErr := c.inner.Find(ctx, key)
		if innerErr != nil {
			return classify.RegistryEntry{}, innerErr
		}
		return entry, nil
	}

	entry, err := c.inner.Find(ctx, key)
	if err != nil {
		return classify.RegistryEntry{}, err
	}

	if data, jsonErr := json.Marshal(entry); jsonErr == nil {
		// Best effort; a failed cache fill only costs the next read.
		_ = c.client.Set(ctx, cacheKey, data, c.ttl).Err()
	}
	return entry, nil
}

func (c *Cached) Upsert(ctx context.Context, entry classify.RegistryEntry) error {
	if err := c.inner.Upsert(ctx, entry); err != nil {
		return err
	}
	if err := c.client.Del(ctx, cacheKeyPrefix+entry.Key).Err(); err != nil {
		return fmt.Errorf("invalidate registry cache for %q: %w", entry.Key, err)
	}
	return nil
}

var _ classify.RegistryStore = (*Cached)(nil)
