// Package redis provides the production draft cache on top of go-redis.
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Drafts survive editor restarts but are not meant to live forever.
const draftTTL = 14 * 24 * time.Hour

// Cache implements draft.KeyValueCache on a Redis client.
type Cache struct {
	rdb *redis.Client
}

// NewCache connects a client; the connection is verified lazily on first use.
func NewCache(address, username, password string) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     address,
		Username: username,
		Password: password,
		DB:       0,
	})
	return &Cache{rdb: rdb}
}

// Ping verifies connectivity at startup.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		log.Error().Err(err).Msg("redis ping failed")
		return err
	}
	return nil
}

func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis get failed")
		return "", false, err
	}
	return value, true, nil
}

func (c *Cache) Set(ctx context.Context, key, value string) error {
	if err := c.rdb.Set(ctx, key, value, draftTTL).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis set failed")
		return err
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis del failed")
		return err
	}
	return nil
}
