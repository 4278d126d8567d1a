// Package logger is the process-wide structured logging facade. All helpers
// take a context so messages can be stamped with the active trace and span
// ids. Backed by zap.
package logger

import (
	"context"
	"os"
	"strings"

	otelcodes "go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ai-trader/internal/trace"
)

var (
	base     *zap.SugaredLogger
	detailed bool
)

// Config holds logging configuration.
type Config struct {
	Level    string // DEBUG, INFO, WARN, ERROR
	Format   string // json or console
	Detailed bool   // enable debug-level output and caller info
}

// Init initializes the global logger from environment variables.
func Init() error {
	return InitWithConfig(LoadConfigFromEnv())
}

// LoadConfigFromEnv reads LOG_LEVEL, LOG_FORMAT and LOG_DETAILED.
func LoadConfigFromEnv() Config {
	return Config{
		Level:    getEnvOrDefault("LOG_LEVEL", "INFO"),
		Format:   getEnvOrDefault("LOG_FORMAT", "json"),
		Detailed: getEnvOrDefault("LOG_DETAILED", "false") == "true",
	}
}

// InitWithConfig builds the zap core and installs it globally.
func InitWithConfig(cfg Config) error {
	detailed = cfg.Detailed

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if strings.EqualFold(cfg.Format, "console") || strings.EqualFold(cfg.Format, "text") {
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stdout), parseLevel(cfg.Level))

	opts := []zap.Option{zap.AddCallerSkip(2)}
	if cfg.Detailed {
		opts = append(opts, zap.AddCaller())
	}
	l := zap.New(core, opts...)
	zap.ReplaceGlobals(l)
	base = l.Sugar()
	return nil
}

// Sync flushes buffered log entries. Call on shutdown.
func Sync() {
	if base != nil {
		_ = base.Sync()
	}
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "INFO":
		return zapcore.InfoLevel
	case "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// withTrace prepends trace and span ids when a span is active.
func withTrace(ctx context.Context, args []any) []any {
	if traceID, spanID, ok := trace.GetTraceFields(ctx); ok {
		return append([]any{"trace_id", traceID, "span_id", spanID}, args...)
	}
	return args
}

func sugar() *zap.SugaredLogger {
	if base == nil {
		// Init not called; fall back to a no-frills logger rather than panic.
		base = zap.NewNop().Sugar()
	}
	return base
}

// Debug logs a debug message. Suppressed unless detailed logging is on.
func Debug(ctx context.Context, msg string, args ...any) {
	if !detailed {
		return
	}
	sugar().Debugw(msg, withTrace(ctx, args)...)
}

// Info logs an info message.
func Info(ctx context.Context, msg string, args ...any) {
	sugar().Infow(msg, withTrace(ctx, args)...)
}

// Warn logs a warning message.
func Warn(ctx context.Context, msg string, args ...any) {
	sugar().Warnw(msg, withTrace(ctx, args)...)
}

// Error logs an error message.
func Error(ctx context.Context, msg string, args ...any) {
	sugar().Errorw(msg, withTrace(ctx, args)...)
}

// ErrorWithErr logs an error message with the error object and records the
// error on the active span.
func ErrorWithErr(ctx context.Context, msg string, err error, args ...any) {
	if trace.Enabled() {
		span := oteltrace.SpanFromContext(ctx)
		if span.SpanContext().IsValid() {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
		}
	}
	sugar().Errorw(msg, withTrace(ctx, append([]any{"error", err}, args...))...)
}

// InfoSkip logs at info level attributing the call site `skip` frames up.
// Used by observability middleware wrappers.
func InfoSkip(ctx context.Context, skip int, msg string, args ...any) {
	sugar().WithOptions(zap.AddCallerSkip(skip)).Infow(msg, withTrace(ctx, args)...)
}

// DebugSkip is Debug with call-site attribution `skip` frames up.
func DebugSkip(ctx context.Context, skip int, msg string, args ...any) {
	if !detailed {
		return
	}
	sugar().WithOptions(zap.AddCallerSkip(skip)).Debugw(msg, withTrace(ctx, args)...)
}

// ErrorWithErrSkip is ErrorWithErr with call-site attribution `skip` frames up.
func ErrorWithErrSkip(ctx context.Context, skip int, msg string, err error, args ...any) {
	if trace.Enabled() {
		span := oteltrace.SpanFromContext(ctx)
		if span.SpanContext().IsValid() {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
		}
	}
	sugar().WithOptions(zap.AddCallerSkip(skip)).Errorw(msg, withTrace(ctx, append([]any{"error", err}, args...))...)
}

// IsDebugEnabled reports whether detailed logging is enabled.
func IsDebugEnabled() bool {
	return detailed
}
