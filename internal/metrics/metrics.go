package metrics

import (
	"strconv"
	"time"

	"github.com/andikafs/marketpulse-go/internal/logging"
)

// Package metrics emits application metrics as structured log events so they
// can be scraped from the log pipeline without a dedicated metrics backend.

// MetricType represents the type of metric being recorded.
type MetricType string

const (
	MetricTypeCounter MetricType = "counter"
	MetricTypeGauge   MetricType = "gauge"
	MetricTypeTiming  MetricType = "timing"
)

// Metric represents a standardized metric structure.
type Metric struct {
	Name      string            `json:"name"`
	Type      MetricType        `json:"type"`
	Value     float64           `json:"value"`
	Unit      string            `json:"unit"`
	Timestamp time.Time         `json:"timestamp"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// Collector provides standardized metrics collection.
type Collector struct {
	logger      logging.Logger
	serviceName string
}

// NewCollector creates a new metrics collector.
//
// Parameters:
//
//	logger: Logger the metrics are emitted through.
//	serviceName: Name of the service.
//
// Returns:
//
//	*Collector: Initialized collector.
func NewCollector(logger logging.Logger, serviceName string) *Collector {
	return &Collector{
		logger:      logger,
		serviceName: serviceName,
	}
}

// RecordCounter records a counter metric.
func (c *Collector) RecordCounter(name string, value float64, tags map[string]string) {
	c.logMetric(Metric{
		Name:      name,
		Type:      MetricTypeCounter,
		Value:     value,
		Unit:      "count",
		Timestamp: time.Now(),
		Tags:      c.addServiceTag(tags),
	})
}

// RecordGauge records a gauge metric.
func (c *Collector) RecordGauge(name string, value float64, unit string, tags map[string]string) {
	c.logMetric(Metric{
		Name:      name,
		Type:      MetricTypeGauge,
		Value:     value,
		Unit:      unit,
		Timestamp: time.Now(),
		Tags:      c.addServiceTag(tags),
	})
}

// RecordTiming records a timing metric.
func (c *Collector) RecordTiming(name string, duration time.Duration, tags map[string]string) {
	c.logMetric(Metric{
		Name:      name,
		Type:      MetricTypeTiming,
		Value:     float64(duration.Milliseconds()),
		Unit:      "ms",
		Timestamp: time.Now(),
		Tags:      c.addServiceTag(tags),
	})
}

// addServiceTag adds the service name to tags
func (c *Collector) addServiceTag(tags map[string]string) map[string]string {
	// Copy the input map to avoid modifying the caller's tags
	result := make(map[string]string)
	for k, v := range tags {
		result[k] = v
	}
	result["service"] = c.serviceName
	return result
}

// logMetric logs the metric using the standardized logger
func (c *Collector) logMetric(metric Metric) {
	c.logger.WithFields(map[string]interface{}{
		"event":  "metric",
		"metric": metric,
	}).Debug("Metric recorded")
}

// RecordAPIRequestMetrics records standardized API request metrics.
//
// Parameters:
//
//	method: HTTP method.
//	endpoint: Route pattern the request matched.
//	statusCode: HTTP status code.
//	duration: Request duration.
//	userID: Authenticated user, empty for unauthenticated routes.
func (c *Collector) RecordAPIRequestMetrics(method, endpoint string, statusCode int, duration time.Duration, userID string) {
	tags := map[string]string{
		"method":      method,
		"endpoint":    endpoint,
		"status_code": strconv.Itoa(statusCode),
	}
	if userID != "" {
		tags["user_id"] = userID
	}

	c.RecordCounter("api_requests_total", 1, tags)
	c.RecordTiming("api_request_duration", duration, tags)
}

// RecordStoreMetrics records standardized tabular store operation metrics.
//
// Parameters:
//
//	operation: Store operation (e.g., "select", "insert").
//	table: Table name.
//	duration: Operation duration.
//	rows: Number of rows read or written, -1 when unknown.
//	success: Whether the operation succeeded.
func (c *Collector) RecordStoreMetrics(operation, table string, duration time.Duration, rows int64, success bool) {
	tags := map[string]string{
		"operation": operation,
		"table":     table,
		"success":   "true",
	}
	if !success {
		tags["success"] = "false"
	}

	c.RecordCounter("store_operations_total", 1, tags)
	c.RecordTiming("store_operation_duration", duration, tags)
	if rows >= 0 {
		c.RecordGauge("store_rows", float64(rows), "rows", tags)
	}
}

// RecordCacheMetrics records standardized cache operation metrics.
//
// Parameters:
//
//	operation: Cache operation (e.g., "get", "set").
//	hit: Whether it was a cache hit.
//	duration: Operation duration.
func (c *Collector) RecordCacheMetrics(operation string, hit bool, duration time.Duration) {
	tags := map[string]string{
		"operation": operation,
		"hit":       "false",
	}
	if hit {
		tags["hit"] = "true"
	}

	c.RecordCounter("cache_operations_total", 1, tags)
	c.RecordTiming("cache_operation_duration", duration, tags)
}

// RecordUploadMetrics records standardized spreadsheet upload metrics.
//
// Parameters:
//
//	platform: Dataset the upload targeted.
//	duration: End to end processing time.
//	success: Whether the upload succeeded.
func (c *Collector) RecordUploadMetrics(platform string, duration time.Duration, success bool) {
	tags := map[string]string{
		"platform": platform,
		"success":  "true",
	}
	if !success {
		tags["success"] = "false"
	}

	c.RecordCounter("uploads_total", 1, tags)
	c.RecordTiming("upload_duration", duration, tags)
}
