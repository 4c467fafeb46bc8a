package database

import (
	"context"
	"fmt"
	"time"

	"github.com/andikafs/marketpulse-go/internal/config"
	"github.com/andikafs/marketpulse-go/internal/logging"
	"github.com/redis/go-redis/v9"
)

// RedisClient wraps a Redis client with enhanced logging and error tracking.
// All methods tolerate a nil receiver so callers can hold a nil client when
// Redis is unavailable and still call through safely.
type RedisClient struct {
	Client *redis.Client
	logger logging.Logger
}

// NewRedisConnection creates a new Redis connection.
//
// Parameters:
//
//	cfg: Redis configuration.
//	logger: Logger.
//
// Returns:
//
//	*RedisClient: The initialized client.
//	error: Error if connection fails.
func NewRedisConnection(cfg config.RedisConfig, logger logging.Logger) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Add Sentry hook for error tracking
	rdb.AddHook(NewRedisSentryHook("response_cache"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis")

	return &RedisClient{
		Client: rdb,
		logger: logger.WithComponent("redis"),
	}, nil
}

// Close closes the Redis connection.
func (r *RedisClient) Close() {
	if r == nil || r.Client == nil {
		return
	}
	if err := r.Client.Close(); err != nil {
		r.logger.WithError(err).Error("Error closing Redis client")
		return
	}
	r.logger.Info("Redis connection closed")
}

// HealthCheck verifies the Redis connection.
//
// Parameters:
//
//	ctx: Context.
//
// Returns:
//
//	error: Error if ping fails.
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return r.Client.Ping(ctx).Err()
}

// Set stores a key-value pair with expiration.
func (r *RedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if r == nil || r.Client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return r.Client.Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value by key.
func (r *RedisClient) Get(ctx context.Context, key string) (string, error) {
	if r == nil || r.Client == nil {
		return "", fmt.Errorf("redis client is nil")
	}
	return r.Client.Get(ctx, key).Result()
}

// Delete removes one or more keys.
func (r *RedisClient) Delete(ctx context.Context, keys ...string) error {
	if r == nil || r.Client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return r.Client.Del(ctx, keys...).Err()
}

// Exists checks if keys exist.
func (r *RedisClient) Exists(ctx context.Context, keys ...string) (int64, error) {
	if r == nil || r.Client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}
	return r.Client.Exists(ctx, keys...).Result()
}

// DeleteByPattern removes every key matching a glob pattern. Used to
// invalidate cached analytics after an upload changes the underlying tables.
func (r *RedisClient) DeleteByPattern(ctx context.Context, pattern string) error {
	if r == nil || r.Client == nil {
		return fmt.Errorf("redis client is nil")
	}

	iter := r.Client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.Client.Del(ctx, keys...).Err()
}
