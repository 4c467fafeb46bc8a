package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andikafs/marketpulse-go/internal/api/handlers"
	"github.com/andikafs/marketpulse-go/internal/cache"
	"github.com/andikafs/marketpulse-go/internal/database"
	"github.com/andikafs/marketpulse-go/internal/identity"
	"github.com/andikafs/marketpulse-go/internal/logging"
	"github.com/andikafs/marketpulse-go/internal/metrics"
	"github.com/andikafs/marketpulse-go/internal/middleware"
	"github.com/andikafs/marketpulse-go/internal/services"
	"github.com/andikafs/marketpulse-go/internal/store"
)

// Dependencies carries everything the route tree needs.
type Dependencies struct {
	Store         *store.Client
	Redis         *database.RedisClient
	Identity      *identity.Client
	ResponseCache *cache.ResponseCache
	Aggregation   *services.AggregationService
	Forecast      *services.ForecastService
	Correlation   *services.CorrelationService
	Upload        *services.UploadService
	RawData       *services.RawDataService
	Activity      *services.ActivityService
	Logger        logging.Logger
}

// SetupRoutes configures all the HTTP routes for the application.
// It sets up middleware, health checks, and the API endpoints, and injects
// the necessary dependencies into handlers.
//
// Parameters:
//
//	router: The Gin engine instance to register routes on.
//	deps: Initialized services and clients.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	// Unexpected panics surface as an opaque 500; details stay server-side
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		deps.Logger.WithFields(map[string]interface{}{
			"panic": recovered,
			"path":  c.Request.URL.Path,
		}).Error("Recovered from panic in request handler")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}))
	collector := metrics.NewCollector(deps.Logger, "marketpulse-backend-api")
	router.Use(middleware.RequestMetrics(collector))

	authMiddleware := middleware.NewAuthMiddleware(deps.Identity, deps.Logger)
	adminMiddleware := middleware.NewAdminMiddleware(deps.Identity, deps.Logger)

	// Health check endpoints
	healthHandler := handlers.NewHealthHandler(deps.Store, healthRedis(deps.Redis))
	router.GET("/health", gin.WrapF(healthHandler.HealthCheck))
	router.HEAD("/health", gin.WrapF(healthHandler.HealthCheck))
	router.GET("/ready", gin.WrapF(healthHandler.ReadinessCheck))
	router.GET("/live", gin.WrapF(healthHandler.LivenessCheck))

	// Initialize handlers
	analyticsHandler := handlers.NewAnalyticsHandler(deps.Aggregation, deps.Forecast, deps.Correlation, deps.ResponseCache, deps.Logger)
	rawDataHandler := handlers.NewRawDataHandler(deps.RawData, deps.Logger)
	uploadHandler := handlers.NewUploadHandler(deps.Upload, deps.ResponseCache, collector, deps.Logger)
	userHandler := handlers.NewUserHandler(deps.Identity, deps.Logger)
	activityHandler := handlers.NewActivityHandler(deps.Activity, deps.Logger)

	api := router.Group("/api")
	api.Use(authMiddleware.RequireAuth())
	{
		// Analytics routes
		api.GET("/performance-data", analyticsHandler.GetPerformanceData)
		api.GET("/predictive-analytics", analyticsHandler.GetPredictiveAnalytics)
		api.GET("/correlation-analysis", analyticsHandler.GetCorrelationAnalysis)

		// Raw data routes
		api.GET("/facebookdata", rawDataHandler.GetFacebookData)
		api.GET("/tiktokdata", rawDataHandler.GetTikTokData)
		api.GET("/salesdata", rawDataHandler.GetSalesData)
		api.GET("/sales/summary", rawDataHandler.GetSalesSummary)
		api.GET("/sales/top", rawDataHandler.GetTopProducts)
		api.GET("/tiktok/reach_summary", rawDataHandler.GetTikTokReachSummary)
		api.GET("/tiktok/engagement_summary", rawDataHandler.GetTikTokEngagementSummary)

		// Upload route
		api.POST("/upload-data", uploadHandler.UploadData)

		// Audit trail
		api.POST("/log_activity", activityHandler.LogActivity)

		// Admin-only routes
		admin := api.Group("")
		admin.Use(adminMiddleware.RequireAdmin())
		{
			admin.GET("/users", userHandler.ListUsers)
			admin.POST("/users", userHandler.CreateUser)
			admin.PUT("/users/:uid", userHandler.UpdateUser)
			admin.DELETE("/users/:uid", userHandler.DeleteUser)
			admin.GET("/activity_logs", activityHandler.GetActivityLogs)
		}
	}
}

// healthRedis keeps a nil *RedisClient from masquerading as a non-nil
// interface value inside the health handler.
func healthRedis(redis *database.RedisClient) handlers.RedisHealthChecker {
	if redis == nil {
		return nil
	}
	return redis
}
