package logging

import (
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger interface defines the common logging methods.
type Logger interface {
	// WithComponent adds component name to the log context.
	WithComponent(componentName string) Logger
	// WithOperation adds operation name to the log context.
	WithOperation(operationName string) Logger
	// WithRequestID adds request ID to the log context.
	WithRequestID(requestID string) Logger
	// WithUserID adds user ID to the log context.
	WithUserID(userID string) Logger
	// WithTable adds store table name to the log context.
	WithTable(table string) Logger
	// WithPlatform adds platform name to the log context.
	WithPlatform(platform string) Logger
	// WithError adds error details to the log context.
	WithError(err error) Logger
	// WithFields adds multiple fields to the log context and returns a Logger for chaining.
	WithFields(fields map[string]interface{}) Logger

	// Info logs an info-level message with optional arguments.
	Info(msg string, args ...interface{})
	// Warn logs a warning-level message with optional arguments.
	Warn(msg string, args ...interface{})
	// Error logs an error-level message with optional arguments.
	Error(msg string, args ...interface{})
	// Debug logs a debug-level message with optional arguments.
	Debug(msg string, args ...interface{})
	// Fatal logs a fatal-level message and exits.
	Fatal(msg string, args ...interface{})

	// LogStartup logs application startup information.
	LogStartup(serviceName string, version string, port int)
	// LogShutdown logs application shutdown information.
	LogShutdown(serviceName string, reason string)
	// LogStoreOperation logs tabular store operations in a standardized format.
	LogStoreOperation(operation string, table string, duration int64, rows int)
	// LogCacheOperation logs cache operations in a standardized format.
	LogCacheOperation(operation string, key string, hit bool, duration int64)

	// Logger returns the underlying *zap.Logger.
	Logger() *zap.Logger
}

// StandardLogger provides a standardized logging interface.
type StandardLogger struct {
	logger *zap.Logger
}

// NewStandardLogger creates a new standardized logger based on configuration.
//
// Parameters:
//
//	logLevel: The log level (debug, info, warn, error).
//	environment: The environment (development, production).
//
// Returns:
//
//	*StandardLogger: The initialized logger.
func NewStandardLogger(logLevel string, environment string) *StandardLogger {
	level := getZapLevel(logLevel)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var core zapcore.Core

	if environment == "development" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		consoleEncoder := zapcore.NewConsoleEncoder(encoderConfig)
		core = zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level)
	} else {
		jsonEncoder := zapcore.NewJSONEncoder(encoderConfig)
		core = zapcore.NewCore(jsonEncoder, zapcore.AddSync(os.Stdout), level)
	}

	// Sentry is initialized globally via observability.InitSentry; this core
	// forwards Error and Fatal entries there.
	sentryCore := newSentryCore(level)
	core = zapcore.NewTee(core, sentryCore)

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	return &StandardLogger{
		logger: logger,
	}
}

func (l *StandardLogger) Logger() *zap.Logger {
	return l.logger
}

// WithComponent creates a logger with component context.
func (l *StandardLogger) WithComponent(componentName string) Logger {
	return &StandardLogger{logger: l.logger.With(zap.String("component", componentName))}
}

// WithOperation creates a logger with operation context.
func (l *StandardLogger) WithOperation(operationName string) Logger {
	return &StandardLogger{logger: l.logger.With(zap.String("operation", operationName))}
}

// WithRequestID creates a logger with request ID context.
func (l *StandardLogger) WithRequestID(requestID string) Logger {
	return &StandardLogger{logger: l.logger.With(zap.String("request_id", requestID))}
}

// WithUserID creates a logger with user ID context.
func (l *StandardLogger) WithUserID(userID string) Logger {
	return &StandardLogger{logger: l.logger.With(zap.String("user_id", userID))}
}

// WithTable creates a logger with store table context.
func (l *StandardLogger) WithTable(table string) Logger {
	return &StandardLogger{logger: l.logger.With(zap.String("table", table))}
}

// WithPlatform creates a logger with platform context.
func (l *StandardLogger) WithPlatform(platform string) Logger {
	return &StandardLogger{logger: l.logger.With(zap.String("platform", platform))}
}

// WithError creates a logger with error context.
func (l *StandardLogger) WithError(err error) Logger {
	return &StandardLogger{logger: l.logger.With(zap.Error(err))}
}

// WithFields adds multiple fields to the log context.
func (l *StandardLogger) WithFields(fields map[string]interface{}) Logger {
	if len(fields) == 0 {
		return l
	}
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	return &StandardLogger{logger: l.logger.With(zapFields...)}
}

// Info logs an info-level message.
func (l *StandardLogger) Info(msg string, args ...interface{}) {
	if len(args) > 0 {
		l.logger.Sugar().Infof(msg, args...)
	} else {
		l.logger.Info(msg)
	}
}

// Warn logs a warning-level message.
func (l *StandardLogger) Warn(msg string, args ...interface{}) {
	if len(args) > 0 {
		l.logger.Sugar().Warnf(msg, args...)
	} else {
		l.logger.Warn(msg)
	}
}

// Error logs an error-level message.
func (l *StandardLogger) Error(msg string, args ...interface{}) {
	if len(args) > 0 {
		l.logger.Sugar().Errorf(msg, args...)
	} else {
		l.logger.Error(msg)
	}
}

// Debug logs a debug-level message.
func (l *StandardLogger) Debug(msg string, args ...interface{}) {
	if len(args) > 0 {
		l.logger.Sugar().Debugf(msg, args...)
	} else {
		l.logger.Debug(msg)
	}
}

// Fatal logs a fatal-level message.
func (l *StandardLogger) Fatal(msg string, args ...interface{}) {
	if len(args) > 0 {
		l.logger.Sugar().Fatalf(msg, args...)
	} else {
		l.logger.Fatal(msg)
	}
}

// LogStartup logs application startup information.
func (l *StandardLogger) LogStartup(serviceName string, version string, port int) {
	l.logger.Info("Service starting",
		zap.String("service", serviceName),
		zap.String("version", version),
		zap.Int("port", port),
		zap.String("event", "startup"),
	)
}

// LogShutdown logs application shutdown information.
func (l *StandardLogger) LogShutdown(serviceName string, reason string) {
	l.logger.Info("Service shutting down",
		zap.String("service", serviceName),
		zap.String("reason", reason),
		zap.String("event", "shutdown"),
	)
}

// LogStoreOperation logs tabular store operations.
func (l *StandardLogger) LogStoreOperation(operation string, table string, duration int64, rows int) {
	l.logger.Info("Store operation",
		zap.String("operation", operation),
		zap.String("table", table),
		zap.Int64("duration_ms", duration),
		zap.Int("rows", rows),
		zap.String("event", "store_operation"),
	)
}

// LogCacheOperation logs cache operations.
func (l *StandardLogger) LogCacheOperation(operation string, key string, hit bool, duration int64) {
	l.logger.Info("Cache operation",
		zap.String("operation", operation),
		zap.String("key", key),
		zap.Bool("hit", hit),
		zap.Int64("duration_ms", duration),
		zap.String("event", "cache_operation"),
	)
}

// getZapLevel converts string level to zapcore.Level.
func getZapLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// sentryCore is a custom zapcore.Core that sends errors to Sentry.
type sentryCore struct {
	zapcore.LevelEnabler
}

func newSentryCore(minLevel zapcore.Level) *sentryCore {
	return &sentryCore{
		LevelEnabler: minLevel,
	}
}

func (s *sentryCore) With(fields []zapcore.Field) zapcore.Core {
	return s // Fields are not accumulated here, the core only intercepts Check/Write
}

func (s *sentryCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if s.Enabled(ent.Level) && (ent.Level == zapcore.ErrorLevel || ent.Level == zapcore.FatalLevel) {
		return ce.AddCore(ent, s)
	}
	return ce
}

func (s *sentryCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	sentry.CaptureMessage(ent.Message)

	for _, f := range fields {
		if f.Type == zapcore.ErrorType && f.Interface != nil {
			if err, ok := f.Interface.(error); ok {
				sentry.CaptureException(err)
			}
		}
	}
	return nil
}

func (s *sentryCore) Sync() error {
	sentry.Flush(2 * time.Second)
	return nil
}
