package database

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
)

// RedisSentryHook implements redis.Hook for Sentry error tracking and tracing.
type RedisSentryHook struct {
	serviceName string
}

// NewRedisSentryHook creates a new Redis Sentry hook.
func NewRedisSentryHook(serviceName string) *RedisSentryHook {
	if serviceName == "" {
		serviceName = "redis"
	}
	return &RedisSentryHook{serviceName: serviceName}
}

// DialHook is called when a new connection is established.
func (h *RedisSentryHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		span := sentry.StartSpan(ctx, "db.redis.dial")
		span.Description = fmt.Sprintf("Redis dial %s", addr)
		span.SetTag("db.system", "redis")
		span.SetTag("net.peer.name", addr)
		span.SetTag("net.transport", network)
		defer span.Finish()

		conn, err := next(ctx, network, addr)
		if err != nil {
			span.Status = sentry.SpanStatusInternalError
			span.SetTag("error", "true")
			captureRedisError(ctx, err, "dial", addr)
		} else {
			span.Status = sentry.SpanStatusOK
		}
		return conn, err
	}
}

// ProcessHook is called before processing a command.
func (h *RedisSentryHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		cmdName := cmd.Name()

		// Start span for the Redis command
		span := sentry.StartSpan(ctx, "db.redis")
		span.Description = cmdName
		span.SetTag("db.system", "redis")
		span.SetTag("db.operation", cmdName)
		span.SetTag("service", h.serviceName)

		// Add breadcrumb for debugging
		addRedisBreadcrumb(ctx, cmdName, "start")

		start := time.Now()
		err := next(ctx, cmd)
		duration := time.Since(start)

		span.SetData("db.duration_ms", duration.Milliseconds())

		if err != nil && err != redis.Nil {
			span.Status = sentry.SpanStatusInternalError
			span.SetTag("error", "true")
			span.SetData("error.message", err.Error())
			captureRedisError(ctx, err, cmdName, "")
		} else {
			span.Status = sentry.SpanStatusOK
		}

		span.Finish()

		// Track slow queries (>100ms)
		if duration > 100*time.Millisecond {
			addRedisBreadcrumb(ctx, cmdName, fmt.Sprintf("slow query: %dms", duration.Milliseconds()))
		}

		return err
	}
}

// ProcessPipelineHook is called before processing a pipeline.
func (h *RedisSentryHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		span := sentry.StartSpan(ctx, "db.redis.pipeline")
		span.Description = fmt.Sprintf("Redis pipeline (%d commands)", len(cmds))
		span.SetTag("db.system", "redis")
		span.SetTag("db.operation", "pipeline")
		span.SetData("db.pipeline_size", len(cmds))

		// Collect command names for context
		cmdNames := make([]string, 0, len(cmds))
		for _, cmd := range cmds {
			cmdNames = append(cmdNames, cmd.Name())
		}
		span.SetData("db.commands", cmdNames)

		start := time.Now()
		err := next(ctx, cmds)
		duration := time.Since(start)

		span.SetData("db.duration_ms", duration.Milliseconds())

		if err != nil && err != redis.Nil {
			span.Status = sentry.SpanStatusInternalError
			span.SetTag("error", "true")
			captureRedisError(ctx, err, "pipeline", "")
		} else {
			span.Status = sentry.SpanStatusOK
		}

		span.Finish()
		return err
	}
}

// captureRedisError captures a Redis error with context.
func captureRedisError(ctx context.Context, err error, operation string, addr string) {
	if err == nil || err == redis.Nil {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("db.system", "redis")
		scope.SetTag("db.operation", operation)
		scope.SetLevel(sentry.LevelError)
		if addr != "" {
			scope.SetTag("net.peer.name", addr)
		}
		scope.SetExtra("error_type", fmt.Sprintf("%T", err))
		hub.CaptureException(err)
	})
}

// addRedisBreadcrumb adds a breadcrumb for Redis operations.
func addRedisBreadcrumb(ctx context.Context, operation string, message string) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	hub.AddBreadcrumb(&sentry.Breadcrumb{
		Category:  "redis",
		Message:   fmt.Sprintf("%s: %s", operation, message),
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}, nil)
}
