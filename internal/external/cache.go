package external

import (
	"context"
	"errors"
	"time"

	"github.com/dom/anivers/internal/logging"
	"github.com/go-redis/redis/v8"
)

// Cache stores raw provider responses. A miss and a broken cache look the same
// to callers: the provider is asked instead.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

type noCache struct{}

func (noCache) Get(context.Context, string) ([]byte, bool)         { return nil, false }
func (noCache) Set(context.Context, string, []byte, time.Duration) {}

// NoCache disables response caching.
func NoCache() Cache { return noCache{} }

type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to redisURL and pings it once.
func NewRedisCache(ctx context.Context, redisURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisCache{client: client, prefix: "anivers:catalog:"}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
		}
		return nil, false
	}
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
