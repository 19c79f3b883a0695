package rediscache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/toolscout-service/pkg/utils"
)

const (
	cacheKeyPrefix = "toolscout:cache:"
	tagKeyPrefix   = "toolscout:tag:"
)

// CacheImpl provides the Cache port implementation using Redis. Tags are
// modelled as sets of member keys; invalidating a tag deletes every member.
type CacheImpl struct {
	client *redis.Client
}

// NewCache creates a new instance of CacheImpl.
func NewCache(client *redis.Client) *CacheImpl {
	return &CacheImpl{client: client}
}

// generateKey hashes the logical key so provider URLs stay safe as Redis keys.
func (c *CacheImpl) generateKey(key string) string {
	return cacheKeyPrefix + utils.HashURL(key)
}

func (c *CacheImpl) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, c.generateKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *CacheImpl) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	storageKey := c.generateKey(key)
	if err := c.client.Set(ctx, storageKey, value, ttl).Err(); err != nil {
		return err
	}
	for _, tag := range tags {
		tagKey := tagKeyPrefix + tag
		if err := c.client.SAdd(ctx, tagKey, storageKey).Err(); err != nil {
			return err
		}
		// Tag sets outlive their members slightly; expired members become
		// harmless no-op deletes at invalidation time.
		if err := c.client.Expire(ctx, tagKey, 2*ttl).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (c *CacheImpl) InvalidateTag(ctx context.Context, tag string) error {
	tagKey := tagKeyPrefix + tag
	members, err := c.client.SMembers(ctx, tagKey).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	if len(members) > 0 {
		if err := c.client.Del(ctx, members...).Err(); err != nil {
			return err
		}
	}
	return c.client.Del(ctx, tagKey).Err()
}
