package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"cueclub/backend/internal/domain"
)

type RedisEstimateCache struct {
	client *redis.Client
}

func NewRedisEstimateCache(addr string, password string, db int) *RedisEstimateCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisEstimateCache{client: client}
}

func (c *RedisEstimateCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisEstimateCache) Close() error {
	return c.client.Close()
}

func (c *RedisEstimateCache) Get(ctx context.Context, key string) (*domain.LiveEstimate, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var estimate domain.LiveEstimate
	if err := json.Unmarshal([]byte(val), &estimate); err != nil {
		return nil, false, err
	}
	return &estimate, true, nil
}

func (c *RedisEstimateCache) Set(ctx context.Context, key string, value *domain.LiveEstimate, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

func (c *RedisEstimateCache) Invalidate(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}
