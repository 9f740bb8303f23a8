package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis is a response cache backed by Redis, for deployments that share a
// cache across engine instances. Errors degrade to cache misses; the
// provider clients never depend on the cache for correctness.
type Redis struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedis creates a Redis-backed response cache.
func NewRedis(client *redis.Client, logger *zap.Logger) *Redis {
	return &Redis{
		client: client,
		prefix: "fooddata:response:",
		logger: logger.Named("response-cache"),
	}
}

// Get returns the payload while the key is live in Redis.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	payload, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("cache get failed", zap.Error(err))
		}
		return nil, false
	}
	return payload, true
}

// Set stores the payload with the given TTL.
func (r *Redis) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	if err := r.client.Set(ctx, r.prefix+key, payload, ttl).Err(); err != nil {
		r.logger.Warn("cache set failed", zap.Error(err))
	}
}

// Delete removes the key.
func (r *Redis) Delete(ctx context.Context, key string) {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		r.logger.Warn("cache delete failed", zap.Error(err))
	}
}
