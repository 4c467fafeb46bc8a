package observability

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/andikafs/marketpulse-go/internal/config"
	"github.com/getsentry/sentry-go"
)

// SpanOperation constants for consistent span naming
const (
	SpanOpStoreQuery  = "store.query"
	SpanOpStoreInsert = "store.insert"
	SpanOpCacheGet    = "cache.get"
	SpanOpCacheSet    = "cache.set"
	SpanOpAggregation = "analytics.aggregation"
	SpanOpForecast    = "analytics.forecast"
	SpanOpCorrelation = "analytics.correlation"
	SpanOpUpload      = "upload.ingest"
	SpanOpExternalAPI = "external.api"
)

// InitSentry configures the Sentry SDK using application config.
//
// Parameters:
//
//	cfg: Sentry configuration.
//	fallbackRelease: Release version if not specified in config.
//	fallbackEnv: Environment if not specified in config.
//
// Returns:
//
//	error: Error if initialization fails.
func InitSentry(cfg config.SentryConfig, fallbackRelease string, fallbackEnv string) error {
	if !cfg.Enabled || cfg.DSN == "" {
		return nil
	}

	release := cfg.Release
	if release == "" {
		release = fallbackRelease
	}

	environment := cfg.Environment
	if environment == "" {
		environment = fallbackEnv
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      environment,
		Release:          release,
		EnableTracing:    cfg.TracesSampleRate > 0,
		TracesSampleRate: cfg.TracesSampleRate,
		AttachStacktrace: true,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			// Add runtime info to all events
			event.Tags["go_version"] = runtime.Version()
			event.Tags["go_os"] = runtime.GOOS
			event.Tags["go_arch"] = runtime.GOARCH
			return event
		},
	})
}

// Flush drains buffered Sentry events within the provided context deadline.
//
// Parameters:
//
//	ctx: Context with optional deadline.
func Flush(ctx context.Context) {
	timeout := 2 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout < 0 {
			timeout = 0
		}
	}
	sentry.Flush(timeout)
}

// CaptureException sends an exception to Sentry with context enrichment.
// It uses the hub from the context if available, otherwise uses the global hub.
//
// Parameters:
//
//	ctx: Context.
//	err: Error to capture.
func CaptureException(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}

// CaptureExceptionWithContext sends an exception with full context enrichment.
//
// Parameters:
//
//	ctx: Context.
//	err: Error to capture.
//	operation: The operation that failed.
//	extra: Additional context data.
func CaptureExceptionWithContext(ctx context.Context, err error, operation string, extra map[string]interface{}) {
	if err == nil {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("operation", operation)
		scope.SetLevel(sentry.LevelError)

		for k, v := range extra {
			scope.SetExtra(k, v)
		}

		hub.CaptureException(err)
	})
}

// StartSpan creates a new Sentry span for tracing.
//
// Parameters:
//
//	ctx: Parent context.
//	operation: Span operation name.
//	description: Human-readable description.
//
// Returns:
//
//	context.Context: Context with the span attached.
//	*sentry.Span: The created span (must be finished with span.Finish()).
func StartSpan(ctx context.Context, operation string, description string) (context.Context, *sentry.Span) {
	span := sentry.StartSpan(ctx, operation)
	span.Description = description
	return span.Context(), span
}

// FinishSpan completes a span and optionally records an error.
//
// Parameters:
//
//	span: The span to finish.
//	err: Optional error to record (can be nil).
func FinishSpan(span *sentry.Span, err error) {
	if span == nil {
		return
	}

	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		span.SetTag("error", "true")
		span.SetData("error.message", err.Error())
	} else {
		span.Status = sentry.SpanStatusOK
	}

	span.Finish()
}

// AddBreadcrumb adds a breadcrumb to the current scope for debugging.
//
// Parameters:
//
//	ctx: Context.
//	category: Breadcrumb category (e.g., "store", "http", "cache").
//	message: Breadcrumb message.
//	level: Breadcrumb level.
func AddBreadcrumb(ctx context.Context, category string, message string, level sentry.Level) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	hub.AddBreadcrumb(&sentry.Breadcrumb{
		Category:  category,
		Message:   message,
		Level:     level,
		Timestamp: time.Now(),
	}, nil)
}

// SetUser sets user context for error tracking.
//
// Parameters:
//
//	ctx: Context.
//	userID: User identifier.
//	email: User email (optional).
func SetUser(ctx context.Context, userID string, email string) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	hub.Scope().SetUser(sentry.User{
		ID:    userID,
		Email: email,
	})
}

// TraceStoreQuery creates a span for tabular store reads.
//
// Parameters:
//
//	ctx: Parent context.
//	table: Table name.
//
// Returns:
//
//	context.Context: Context with span.
//	*sentry.Span: The span.
func TraceStoreQuery(ctx context.Context, table string) (context.Context, *sentry.Span) {
	spanCtx, span := StartSpan(ctx, SpanOpStoreQuery, fmt.Sprintf("GET %s", table))
	span.SetTag("store.table", table)
	return spanCtx, span
}

// TraceExternalAPI creates a span for external API calls.
//
// Parameters:
//
//	ctx: Parent context.
//	service: External service name.
//	operation: API operation.
//
// Returns:
//
//	context.Context: Context with span.
//	*sentry.Span: The span.
func TraceExternalAPI(ctx context.Context, service string, operation string) (context.Context, *sentry.Span) {
	description := fmt.Sprintf("%s.%s", service, operation)
	spanCtx, span := StartSpan(ctx, SpanOpExternalAPI, description)
	span.SetTag("external.service", service)
	span.SetTag("external.operation", operation)
	return spanCtx, span
}
