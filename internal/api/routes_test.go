package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andikafs/marketpulse-go/internal/cache"
	"github.com/andikafs/marketpulse-go/internal/config"
	"github.com/andikafs/marketpulse-go/internal/identity"
	"github.com/andikafs/marketpulse-go/internal/logging"
	"github.com/andikafs/marketpulse-go/internal/services"
	"github.com/andikafs/marketpulse-go/internal/store"
)

// testBackends fakes the identity provider and the tabular store.
func testBackends(t *testing.T, admin bool) (*identity.Client, *store.Client) {
	t.Helper()
	logger := logging.NewStandardLogger("error", "production")

	identitySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/token/verify":
			_ = json.NewEncoder(w).Encode(identity.TokenClaims{UID: "uid-1", Email: "a@example.com"})
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/users/"):
			_ = json.NewEncoder(w).Encode(identity.User{
				UID:          "uid-1",
				CustomClaims: map[string]interface{}{"admin": admin},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(identitySrv.Close)

	storeSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}))
	t.Cleanup(storeSrv.Close)

	identityClient := identity.NewClient(&config.IdentityConfig{
		ServiceURL:       identitySrv.URL,
		APIKey:           "test-key",
		Timeout:          5,
		ClockSkewSeconds: 60,
	}, logger)
	storeClient := store.NewClient(&config.StoreConfig{
		BaseURL:    storeSrv.URL,
		ServiceKey: "test-key",
		Timeout:    5,
		PageSize:   100,
	}, logger)
	return identityClient, storeClient
}

func testToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "uid-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func testEngine(t *testing.T, admin bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logging.NewStandardLogger("error", "production")
	identityClient, storeClient := testBackends(t, admin)

	analyticsCfg := &config.AnalyticsConfig{
		ForecastHorizonMonths: 36,
		MinTrainingMonths:     24,
		SeasonalPeriod:        12,
	}
	responseCache := cache.New(nil, time.Minute, logger)

	router := gin.New()
	SetupRoutes(router, Dependencies{
		Store:         storeClient,
		Redis:         nil,
		Identity:      identityClient,
		ResponseCache: responseCache,
		Aggregation:   services.NewAggregationService(storeClient, analyticsCfg, logger),
		Forecast:      services.NewForecastService(storeClient, analyticsCfg, logger),
		Correlation:   services.NewCorrelationService(storeClient, analyticsCfg, logger),
		Upload:        services.NewUploadService(storeClient, logger),
		RawData:       services.NewRawDataService(storeClient, logger),
		Activity:      services.NewActivityService(storeClient, logger),
		Logger:        logger,
	})
	return router
}

func TestRoutesRequireAuthentication(t *testing.T) {
	router := testEngine(t, false)

	for _, path := range []string{
		"/api/performance-data",
		"/api/correlation-analysis",
		"/api/salesdata",
		"/api/activity_logs",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestHealthEndpointsAreOpen(t *testing.T) {
	router := testEngine(t, false)

	for _, path := range []string{"/health", "/live"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestAuthenticatedRouteServes(t *testing.T) {
	router := testEngine(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/salesdata", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestAdminRoutesRequireAdminClaim(t *testing.T) {
	router := testEngine(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/activity_logs", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminRouteServesForAdmin(t *testing.T) {
	router := testEngine(t, true)

	req := httptest.NewRequest(http.MethodGet, "/api/activity_logs", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_count":0`)
}
