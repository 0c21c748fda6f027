package observability

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/soneri/appcanvas/internal/config"
	"github.com/soneri/appcanvas/model"
)

// Context key for the logger.
type loggerKey struct{}

// NewLogger creates a zap.Logger configured for JSON output to stdout.
//
// Log level usage conventions:
//   - error: Infrastructure failures (upstream down, unhandled panics), 5xx responses
//   - warn:  Client errors (4xx), swallowed publish group failures, rejected sessions
//   - info:  Request start/end, publish attempts, catalog reload
//   - debug: Cache operations, retry attempts, theming key resolution
func NewLogger(cfg config.ObservabilityConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(level),
		Development: false,
		Encoding:    "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return zapCfg.Build()
}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFrom returns the logger stored in the context, or the provided
// fallback if none is found.
func LoggerFrom(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return fallback
}

// RequestLogger returns a logger enriched with operator-context fields.
// If no logger is in the context, the fallback is used.
func RequestLogger(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	logger := LoggerFrom(ctx, fallback)

	octx := model.OperatorContextFrom(ctx)
	if octx == nil {
		return logger
	}

	fields := []zap.Field{
		zap.String("subject_id", octx.SubjectID),
		zap.String("correlation_id", octx.CorrelationID),
	}

	if traceID := TraceIDFromContext(ctx); traceID != "" {
		fields = append(fields, zap.String("trace_id", traceID))
	}

	return logger.With(fields...)
}
