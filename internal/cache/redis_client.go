package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var ErrCacheMiss = errors.New("cache miss")

// RedisClient stores JSON encoded values of T under plain string keys.
type RedisClient[T any] struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewRedisClient[T any](client *redis.Client, logger zerolog.Logger) *RedisClient[T] {
	return &RedisClient[T]{
		client: client,
		log:    logger.With().Str("component", "RedisClient").Logger(),
	}
}

func (c *RedisClient[T]) Set(
	ctx context.Context,
	key string,
	value T,
	expiration time.Duration,
) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.log.Debug().Ctx(ctx).Str("key", key).Dur("ttl", expiration).Msg("cache set")
	return c.client.Set(ctx, key, data, expiration).Err()
}

// Get returns ErrCacheMiss when the key is absent or expired.
func (c *RedisClient[T]) Get(ctx context.Context, key string, returnValue *T) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}

	return json.Unmarshal(data, returnValue)
}
