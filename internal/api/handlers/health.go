package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
)

// StoreHealthChecker interface for data store health checks.
type StoreHealthChecker interface {
	// HealthCheck verifies the store is reachable.
	HealthCheck(ctx context.Context) error
}

// RedisHealthChecker interface for redis health checks.
type RedisHealthChecker interface {
	// HealthCheck verifies the Redis connection.
	HealthCheck(ctx context.Context) error
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	store StoreHealthChecker
	redis RedisHealthChecker
}

// HealthResponse represents the health status response.
type HealthResponse struct {
	// Status is the overall system status ("healthy", "degraded").
	Status string `json:"status"`
	// Timestamp is the check time.
	Timestamp time.Time `json:"timestamp"`
	// Services contains status of individual services.
	Services map[string]string `json:"services"`
	// Version is the application version.
	Version string `json:"version"`
	// Uptime is the service uptime.
	Uptime string `json:"uptime"`
}

// NewHealthHandler creates a new instance of HealthHandler.
//
// Parameters:
//
//	tableStore: Data store checker.
//	redis: Redis checker, nil when caching is disabled.
//
// Returns:
//
//	*HealthHandler: Initialized handler.
func NewHealthHandler(tableStore StoreHealthChecker, redis RedisHealthChecker) *HealthHandler {
	return &HealthHandler{
		store: tableStore,
		redis: redis,
	}
}

// HealthCheck performs a comprehensive system health check.
// It verifies connectivity to the data store and Redis.
//
// Parameters:
//
//	w: HTTP response writer.
//	r: HTTP request.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	span := sentry.StartSpan(ctx, "health_check")
	defer span.Finish()
	ctx = span.Context()

	span.SetTag("http.method", r.Method)
	span.SetTag("handler.name", "HealthCheck")

	servicesStatus := make(map[string]string)

	// Check data store
	if h.store != nil {
		if err := h.store.HealthCheck(ctx); err != nil {
			servicesStatus["store"] = "unhealthy: " + err.Error()
			span.SetTag("store.status", "unhealthy")
			sentry.CaptureException(err)
		} else {
			servicesStatus["store"] = "healthy"
			span.SetTag("store.status", "healthy")
		}
	} else {
		servicesStatus["store"] = "unhealthy: not configured"
		span.SetTag("store.status", "not_configured")
	}

	// Check Redis. The response cache is optional, so a missing client is
	// reported but never degrades the service.
	if h.redis != nil {
		if err := h.redis.HealthCheck(ctx); err != nil {
			servicesStatus["redis"] = "unhealthy: " + err.Error()
			span.SetTag("redis.status", "unhealthy")
			sentry.CaptureException(err)
		} else {
			servicesStatus["redis"] = "healthy"
			span.SetTag("redis.status", "healthy")
		}
	} else {
		servicesStatus["redis"] = "not configured"
		span.SetTag("redis.status", "not_configured")
	}

	// The store is the only critical dependency
	criticalServices := map[string]bool{"store": true}
	criticalUnhealthy := false
	status := "healthy"
	for serviceName, s := range servicesStatus {
		if s != "healthy" && s != "not configured" {
			status = "degraded"
			if criticalServices[serviceName] {
				criticalUnhealthy = true
			}
		}
	}
	span.SetTag("overall.status", status)

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Services:  servicesStatus,
		Version:   os.Getenv("APP_VERSION"),
		Uptime:    time.Since(startTime).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if criticalUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		span.Status = sentry.SpanStatusUnavailable
	} else {
		w.WriteHeader(http.StatusOK)
		span.Status = sentry.SpanStatusOK
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		sentry.CaptureException(err)
		span.Status = sentry.SpanStatusInternalError
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// Global start time for uptime calculation
var startTime = time.Now()

// ReadinessCheck checks if the service is ready to accept traffic.
// This is typically used by load balancers or Kubernetes.
//
// Parameters:
//
//	w: HTTP response writer.
//	r: HTTP request.
func (h *HealthHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	span := sentry.StartSpan(r.Context(), "readiness_check")
	defer span.Finish()
	ctx := span.Context()

	span.SetTag("http.method", r.Method)
	span.SetTag("handler.name", "ReadinessCheck")

	servicesStatus := make(map[string]string)

	if h.store != nil {
		if err := h.store.HealthCheck(ctx); err != nil {
			servicesStatus["store"] = "not ready"
			span.SetTag("store.readiness", "not_ready")
			sentry.CaptureException(err)
			span.Status = sentry.SpanStatusInternalError
			w.WriteHeader(http.StatusServiceUnavailable)
			if err := json.NewEncoder(w).Encode(map[string]interface{}{
				"ready":    false,
				"services": servicesStatus,
			}); err != nil {
				sentry.CaptureException(err)
				http.Error(w, "Failed to encode response", http.StatusInternalServerError)
			}
			return
		}
		servicesStatus["store"] = "ready"
		span.SetTag("store.readiness", "ready")
	}

	span.Status = sentry.SpanStatusOK
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"ready":    true,
		"services": servicesStatus,
	}); err != nil {
		sentry.CaptureException(err)
		span.Status = sentry.SpanStatusInternalError
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// LivenessCheck checks if the service is alive.
// This is a lightweight check to confirm the process is running.
//
// Parameters:
//
//	w: HTTP response writer.
//	r: HTTP request.
func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	span := sentry.StartSpan(r.Context(), "liveness_check")
	defer span.Finish()

	span.SetTag("http.method", r.Method)
	span.SetTag("handler.name", "LivenessCheck")

	span.Status = sentry.SpanStatusOK
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status":    "alive",
		"timestamp": time.Now().Format(time.RFC3339),
	}); err != nil {
		sentry.CaptureException(err)
		span.Status = sentry.SpanStatusInternalError
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
