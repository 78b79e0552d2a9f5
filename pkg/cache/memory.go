package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type memoryEntry struct {
	value      []byte
	slidingTTL time.Duration
}

// MemoryRedirectCache keeps entries in process. It is used when no Redis URL
// is configured, so each process has its own view.
type MemoryRedirectCache struct {
	items *gocache.Cache
}

func NewMemoryRedirectCache(cleanupInterval time.Duration) *MemoryRedirectCache {
	return &MemoryRedirectCache{items: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (c *MemoryRedirectCache) Get(_ context.Context, token string) ([]byte, error) {
	v, ok := c.items.Get(token)
	if !ok {
		return nil, nil
	}
	entry := v.(memoryEntry)
	// re-arm the sliding window; Replace is a no-op if Remove got in first
	_ = c.items.Replace(token, entry, entry.slidingTTL)
	return entry.value, nil
}

func (c *MemoryRedirectCache) Set(_ context.Context, token string, value []byte, slidingTTL time.Duration) error {
	c.items.Set(token, memoryEntry{value: value, slidingTTL: slidingTTL}, slidingTTL)
	return nil
}

func (c *MemoryRedirectCache) Remove(_ context.Context, token string) error {
	c.items.Delete(token)
	return nil
}
