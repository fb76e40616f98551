package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Redis backs the response cache with a shared Redis instance so multiple
// replicas of the service pool their upstream lookups.
type Redis struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedis connects to Redis and verifies the connection with a ping.
func NewRedis(redisURL string, logger zerolog.Logger) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Redis{client: client, logger: logger}, nil
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Get retrieves a cached response. A Redis failure is treated as a miss; the
// caller falls through to the upstream API.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn().Err(err).Str("key", key).Msg("response cache read failed")
		}
		return nil, false
	}
	return val, true
}

// Set stores a response with a TTL. Failures are logged and ignored.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("response cache write failed")
	}
}
