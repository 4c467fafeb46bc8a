package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andikafs/marketpulse-go/internal/cache"
	"github.com/andikafs/marketpulse-go/internal/logging"
	"github.com/andikafs/marketpulse-go/internal/models"
	"github.com/andikafs/marketpulse-go/internal/services"
)

// AnalyticsHandler serves the aggregation, forecasting and correlation
// endpoints.
type AnalyticsHandler struct {
	aggregation *services.AggregationService
	forecast    *services.ForecastService
	correlation *services.CorrelationService
	cache       *cache.ResponseCache
	logger      logging.Logger
}

// NewAnalyticsHandler creates a new instance of AnalyticsHandler.
//
// Parameters:
//
//	aggregation: Performance data service.
//	forecast: Predictive analytics service.
//	correlation: Correlation analysis service.
//	responseCache: Response cache, may be disabled.
//	logger: Logger.
//
// Returns:
//
//	*AnalyticsHandler: Initialized handler.
func NewAnalyticsHandler(aggregation *services.AggregationService, forecast *services.ForecastService, correlation *services.CorrelationService, responseCache *cache.ResponseCache, logger logging.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		aggregation: aggregation,
		forecast:    forecast,
		correlation: correlation,
		cache:       responseCache,
		logger:      logger.WithComponent("analytics_handler"),
	}
}

// GetPerformanceData returns bucketed engagement, reach and sales series with
// narrative insights for the requested range and platform.
func (h *AnalyticsHandler) GetPerformanceData(c *gin.Context) {
	startDate := c.Query("start_date")
	endDate := c.Query("end_date")
	filter, err := models.ParsePlatformFilter(c.Query("platform"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cacheKey := cache.Key("performance-data", map[string]string{
		"start_date": startDate,
		"end_date":   endDate,
		"platform":   filter.String(),
	})
	var cached services.PerformanceResponse
	if h.cache.Get(c.Request.Context(), cacheKey, &cached) {
		c.JSON(http.StatusOK, cached)
		return
	}

	response, err := h.aggregation.PerformanceData(c.Request.Context(), startDate, endDate, filter)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.cache.Set(c.Request.Context(), cacheKey, response)
	c.JSON(http.StatusOK, response)
}

// GetPredictiveAnalytics returns the monthly forecast for one metric.
func (h *AnalyticsHandler) GetPredictiveAnalytics(c *gin.Context) {
	metricType := c.Query("metric_type")
	if metricType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Metric type is required (e.g., 'sales', 'engagement', 'reach')."})
		return
	}
	metric, err := services.ParseForecastMetric(metricType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported metric type."})
		return
	}

	response, err := h.forecast.Predict(c.Request.Context(), metric)
	if err != nil {
		h.logger.WithError(err).Error("Predictive analytics failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Predictive analytics failed"})
		return
	}
	c.JSON(http.StatusOK, response)
}

// GetCorrelationAnalysis returns pairwise Spearman correlations between
// engagement, reach and sales with narrative recommendations.
func (h *AnalyticsHandler) GetCorrelationAnalysis(c *gin.Context) {
	filter, err := models.ParsePlatformFilter(c.Query("platform"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.correlation.Analyze(c.Request.Context(), c.Query("start_date"), c.Query("end_date"), filter)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, response)
}
