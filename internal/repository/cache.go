package repository

import (
	"context"
	"time"
)

// Cache is the injected cache port for provider responses. Implementations
// must treat misses as (nil, false, nil), not as errors.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key with a TTL, optionally registering the key
	// under invalidation tags.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error
	// InvalidateTag drops every key registered under the tag.
	InvalidateTag(ctx context.Context, tag string) error
}
