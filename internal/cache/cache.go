package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andikafs/marketpulse-go/internal/database"
	"github.com/andikafs/marketpulse-go/internal/logging"
	"github.com/andikafs/marketpulse-go/internal/observability"
)

// ResponseCache is a JSON read-through cache for computed analytics
// responses. When Redis is unavailable every operation is a no-op, so the
// API keeps serving with recomputation instead of failing.
type ResponseCache struct {
	redis  *database.RedisClient
	ttl    time.Duration
	logger logging.Logger
}

// New creates a ResponseCache. A nil redis client disables caching.
func New(redisClient *database.RedisClient, ttl time.Duration, logger logging.Logger) *ResponseCache {
	return &ResponseCache{
		redis:  redisClient,
		ttl:    ttl,
		logger: logger.WithComponent("cache"),
	}
}

// Key builds a deterministic cache key from an endpoint name and its query
// parameters. Parameters are sorted so equivalent requests share an entry,
// and empty values are skipped.
func Key(endpoint string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for name, value := range params {
		if value == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("analytics:")
	b.WriteString(endpoint)
	for _, name := range names {
		fmt.Fprintf(&b, ":%s=%s", name, params[name])
	}
	return b.String()
}

// Get loads a cached response into dest.
//
// Returns:
//
//	bool: True on a cache hit.
func (c *ResponseCache) Get(ctx context.Context, key string, dest interface{}) bool {
	if c == nil || c.redis == nil {
		return false
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanOpCacheGet, key)
	defer observability.FinishSpan(span, nil)

	cached, err := c.redis.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).WithFields(map[string]interface{}{"key": key}).Warn("Cache read failed")
		}
		return false
	}
	if err := json.Unmarshal([]byte(cached), dest); err != nil {
		c.logger.WithError(err).WithFields(map[string]interface{}{"key": key}).Warn("Discarding undecodable cache entry")
		_ = c.redis.Delete(ctx, key)
		return false
	}

	c.logger.LogCacheOperation("get", key, true, 0)
	return true
}

// Set stores a response under key for the configured TTL. Failures are
// logged and swallowed.
func (c *ResponseCache) Set(ctx context.Context, key string, value interface{}) {
	if c == nil || c.redis == nil {
		return
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanOpCacheSet, key)
	defer observability.FinishSpan(span, nil)

	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.WithError(err).WithFields(map[string]interface{}{"key": key}).Warn("Cache encode failed")
		return
	}
	if err := c.redis.Set(ctx, key, string(payload), c.ttl); err != nil {
		c.logger.WithError(err).WithFields(map[string]interface{}{"key": key}).Warn("Cache write failed")
		return
	}
	c.logger.LogCacheOperation("set", key, true, 0)
}

// Invalidate drops every analytics entry. Called after uploads change the
// underlying tables.
func (c *ResponseCache) Invalidate(ctx context.Context) {
	if c == nil || c.redis == nil {
		return
	}
	if err := c.redis.DeleteByPattern(ctx, "analytics:*"); err != nil {
		c.logger.WithError(err).Warn("Cache invalidation failed")
		return
	}
	c.logger.Info("Analytics cache invalidated")
}
