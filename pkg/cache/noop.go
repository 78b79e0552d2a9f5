package cache

import (
	"context"
	"time"
)

// NoopRedirectCache never holds anything; every Get is a miss. It is used by
// processes that cannot see the evictions of the process that deletes links.
type NoopRedirectCache struct{}

func (NoopRedirectCache) Get(context.Context, string) ([]byte, error) { return nil, nil }

func (NoopRedirectCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NoopRedirectCache) Remove(context.Context, string) error { return nil }
