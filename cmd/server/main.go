package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/andikafs/marketpulse-go/internal/api"
	"github.com/andikafs/marketpulse-go/internal/cache"
	"github.com/andikafs/marketpulse-go/internal/config"
	"github.com/andikafs/marketpulse-go/internal/database"
	"github.com/andikafs/marketpulse-go/internal/identity"
	"github.com/andikafs/marketpulse-go/internal/logging"
	"github.com/andikafs/marketpulse-go/internal/observability"
	"github.com/andikafs/marketpulse-go/internal/services"
	"github.com/andikafs/marketpulse-go/internal/store"
)

// main serves as the entry point for the application.
// It delegates execution to the run function and handles exit codes based on success or failure.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

// run orchestrates the startup sequence of the server.
// It loads configuration, initializes observability, clients, services, and the HTTP server.
// It also manages graceful shutdown upon receiving termination signals.
//
// Returns:
//   - An error if initialization fails at any critical step.
func run() error {
	// Local development convenience; the file is absent in production
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize Sentry for observability
	if err := observability.InitSentry(cfg.Sentry, cfg.Server.Version, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize Sentry: %v\n", err)
	}
	defer observability.Flush(context.Background())

	// Initialize standard logger (Zap based)
	logger := logging.NewStandardLogger(cfg.LogLevel, cfg.Environment)

	// Initialize the tabular store client
	storeClient := store.NewClient(&cfg.Store, logger)

	// Initialize the identity provider client
	identityClient := identity.NewClient(&cfg.Identity, logger)

	// Initialize Redis. The response cache is optional: on connection failure
	// the API serves uncached rather than refusing to start.
	var redisClient *database.RedisClient
	if cfg.Redis.Enabled {
		redisClient, err = database.NewRedisConnection(cfg.Redis, logger)
		if err != nil {
			logger.WithError(err).Error("Failed to connect to Redis - continuing without cache")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}
	responseCache := cache.New(redisClient, time.Duration(cfg.Redis.TTL)*time.Second, logger)

	// Initialize services
	aggregationService := services.NewAggregationService(storeClient, &cfg.Analytics, logger)
	forecastService := services.NewForecastService(storeClient, &cfg.Analytics, logger)
	correlationService := services.NewCorrelationService(storeClient, &cfg.Analytics, logger)
	uploadService := services.NewUploadService(storeClient, logger)
	rawDataService := services.NewRawDataService(storeClient, logger)
	activityService := services.NewActivityService(storeClient, logger)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger())
	if cfg.Sentry.Enabled && cfg.Sentry.DSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{
			Repanic:         true,
			WaitForDelivery: false,
			Timeout:         2 * time.Second,
		}))
	}
	router.MaxMultipartMemory = int64(cfg.Upload.MaxFileSizeMB) << 20

	// Setup routes
	api.SetupRoutes(router, api.Dependencies{
		Store:         storeClient,
		Redis:         redisClient,
		Identity:      identityClient,
		ResponseCache: responseCache,
		Aggregation:   aggregationService,
		Forecast:      forecastService,
		Correlation:   correlationService,
		Upload:        uploadService,
		RawData:       rawDataService,
		Activity:      activityService,
		Logger:        logger,
	})

	// Create HTTP server with security timeouts
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       15 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.LogStartup("marketpulse-backend-api", cfg.Server.Version, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.LogShutdown("marketpulse-backend-api", "signal received")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited gracefully")
	return nil
}
