package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewStandardLogger(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		environment string
	}{
		{name: "development console logger", level: "debug", environment: "development"},
		{name: "production json logger", level: "info", environment: "production"},
		{name: "unknown level defaults to info", level: "verbose", environment: "production"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewStandardLogger(tt.level, tt.environment)
			require.NotNil(t, logger)
			require.NotNil(t, logger.Logger())
		})
	}
}

func TestGetZapLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, getZapLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, getZapLevel("warn"))
	assert.Equal(t, zapcore.WarnLevel, getZapLevel("WARNING"))
	assert.Equal(t, zapcore.ErrorLevel, getZapLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, getZapLevel(""))
	assert.Equal(t, zapcore.InfoLevel, getZapLevel("nonsense"))
}

func TestContextHelpersReturnNewLogger(t *testing.T) {
	base := NewStandardLogger("info", "production")

	derived := base.
		WithComponent("store").
		WithTable("sales_data").
		WithPlatform("tiktok").
		WithUserID("uid-1").
		WithRequestID("req-1").
		WithOperation("fetch_all")

	require.NotNil(t, derived)
	assert.NotSame(t, base, derived)

	// Chained helpers never mutate the receiver
	withFields := base.WithFields(map[string]interface{}{"rows": 42})
	assert.NotSame(t, base, withFields)
	assert.Same(t, base, base.WithFields(nil).(*StandardLogger))
}

func TestStructuredEventHelpers(t *testing.T) {
	logger := NewStandardLogger("info", "production")

	// Smoke coverage: these must not panic with empty or populated values
	logger.LogStartup("marketpulse-api", "1.0.0", 8080)
	logger.LogShutdown("marketpulse-api", "signal received")
	logger.LogStoreOperation("GET", "facebook_data", 12, 250)
	logger.LogCacheOperation("get", "performance:all:30d", true, 2)
	logger.Info("plain message")
	logger.Info("formatted %s", "message")
	logger.Warn("warned")
	logger.Debug("debugging")
}
