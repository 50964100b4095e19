package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "link:"
	targetTTL = time.Hour
)

// RedisCache caches key→target lookups on the redirect path.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr string) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func (c *RedisCache) GetTarget(ctx context.Context, key string) (string, error) {
	target, err := c.client.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return target, nil
}

func (c *RedisCache) SetTarget(ctx context.Context, key, target string) error {
	return c.client.Set(ctx, keyPrefix+key, target, targetTTL).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, key string) error {
	return c.client.Del(ctx, keyPrefix+key).Err()
}
