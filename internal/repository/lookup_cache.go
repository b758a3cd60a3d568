package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lookup cache keys for shop reference data.
const (
	KeyManufacturers = "lookup:manufacturers"
	KeyCategories    = "lookup:categories"
)

// LookupCache stores small JSON documents with a TTL.
type LookupCache interface {
	// Get decodes the cached value into dest. A miss returns false, nil.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

type redisLookupCache struct{ rdb *redis.Client }

func NewLookupCache(rdb *redis.Client) LookupCache { return &redisLookupCache{rdb: rdb} }

func (c *redisLookupCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup cache: get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("lookup cache: decode %s: %w", key, err)
	}
	return true, nil
}

func (c *redisLookupCache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("lookup cache: encode %s: %w", key, err)
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

func (c *redisLookupCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}
