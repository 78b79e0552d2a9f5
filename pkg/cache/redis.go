package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheUnavailable wraps transport failures of the cache backend.
var ErrCacheUnavailable = errors.New("redirect cache unavailable")

// RedirectCache is a best-effort token -> url mapping with sliding expiration.
// Get returns (nil, nil) on a miss.
type RedirectCache interface {
	Get(ctx context.Context, token string) ([]byte, error)
	Set(ctx context.Context, token string, value []byte, slidingTTL time.Duration) error
	Remove(ctx context.Context, token string) error
}

const (
	fieldData    = "data"
	fieldSliding = "sldexp"
)

// getAndRefresh returns the cached bytes and re-arms the key's TTL with the
// sliding expiration stored next to it.
var getAndRefresh = redis.NewScript(`
local v = redis.call('HMGET', KEYS[1], 'data', 'sldexp')
if not v[1] then
	return false
end
local ttl = tonumber(v[2])
if ttl and ttl > 0 then
	redis.call('PEXPIRE', KEYS[1], ttl)
end
return v[1]
`)

type RedisRedirectCache struct {
	client *redis.Client
	prefix string
}

func NewRedisRedirectCache(client *redis.Client, prefix string) *RedisRedirectCache {
	return &RedisRedirectCache{client: client, prefix: prefix}
}

func (c *RedisRedirectCache) key(token string) string {
	return c.prefix + token
}

func (c *RedisRedirectCache) Get(ctx context.Context, token string) ([]byte, error) {
	val, err := getAndRefresh.Run(ctx, c.client, []string{c.key(token)}).Text()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
	}
	return []byte(val), nil
}

func (c *RedisRedirectCache) Set(ctx context.Context, token string, value []byte, slidingTTL time.Duration) error {
	key := c.key(token)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldData, value, fieldSliding, slidingTTL.Milliseconds())
		pipe.PExpire(ctx, key, slidingTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
	}
	return nil
}

func (c *RedisRedirectCache) Remove(ctx context.Context, token string) error {
	if err := c.client.Del(ctx, c.key(token)).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
	}
	return nil
}
