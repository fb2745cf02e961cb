package observe

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is a minimal structured logging interface.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: a context carrying a recording span adds trace_id and span_id.
// - Errors: logging must be best-effort and must not panic.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)

	// With returns a child logger that adds fields to every entry.
	With(fields ...Field) Logger
}

// Field represents a structured log field.
type Field struct {
	Key   string
	Value any
}

// LogLevel represents a logging level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLogLevel parses a string log level.
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// zeroLogger writes JSON entries through zerolog.
type zeroLogger struct {
	zl zerolog.Logger
}

// NewLogger creates a JSON logger on stderr with the given level.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a JSON logger with a custom writer.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	zl := zerolog.New(w).
		Level(ParseLogLevel(level).zerolog()).
		With().Timestamp().Logger()
	return &zeroLogger{zl: zl}
}

// NewFileLogger creates a logger writing to a size-rotated file. The
// returned closer releases the file and must be called on shutdown.
func NewFileLogger(cfg LoggingConfig) (Logger, io.Closer) {
	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB, // megabytes
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays, // days
		Compress:   true,
	}

	var w io.Writer = rotator
	if cfg.Console {
		w = zerolog.MultiLevelWriter(rotator, os.Stderr)
	}
	return NewLoggerWithWriter(cfg.Level, w), rotator
}

func (l *zeroLogger) With(fields ...Field) Logger {
	zc := l.zl.With()
	for _, f := range fields {
		if isRedactedField(f.Key) {
			zc = zc.Str(f.Key, redactedValue)
			continue
		}
		zc = zc.Interface(f.Key, f.Value)
	}
	return &zeroLogger{zl: zc.Logger()}
}

func (l *zeroLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, l.zl.Info(), msg, fields)
}

func (l *zeroLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, l.zl.Warn(), msg, fields)
}

func (l *zeroLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, l.zl.Error(), msg, fields)
}

func (l *zeroLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, l.zl.Debug(), msg, fields)
}

// write fills and sends ev. A nil event means the level is filtered out.
func (l *zeroLogger) write(ctx context.Context, ev *zerolog.Event, msg string, fields []Field) {
	if ev == nil {
		return
	}

	if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			ev = ev.Str("trace_id", sc.TraceID().String()).
				Str("span_id", sc.SpanID().String())
		}
	}

	for _, f := range fields {
		ev = appendField(ev, f)
	}
	ev.Msg(msg)
}

const redactedValue = "[REDACTED]"

func appendField(ev *zerolog.Event, f Field) *zerolog.Event {
	if isRedactedField(f.Key) {
		return ev.Str(f.Key, redactedValue)
	}
	switch v := f.Value.(type) {
	case string:
		return ev.Str(f.Key, v)
	case bool:
		return ev.Bool(f.Key, v)
	case int:
		return ev.Int(f.Key, v)
	case int64:
		return ev.Int64(f.Key, v)
	case float64:
		return ev.Float64(f.Key, v)
	case time.Duration:
		return ev.Dur(f.Key, v)
	case error:
		return ev.AnErr(f.Key, v)
	default:
		return ev.Interface(f.Key, v)
	}
}

// isRedactedField returns true if the field should be redacted.
func isRedactedField(key string) bool {
	for _, k := range RedactedFields {
		if k == key {
			return true
		}
	}
	return false
}

type nopLogger struct{}

// NopLogger returns a logger that discards everything.
func NopLogger() Logger { return nopLogger{} }

func (nopLogger) Info(context.Context, string, ...Field)  {}
func (nopLogger) Warn(context.Context, string, ...Field)  {}
func (nopLogger) Error(context.Context, string, ...Field) {}
func (nopLogger) Debug(context.Context, string, ...Field) {}
func (n nopLogger) With(...Field) Logger                  { return n }

var (
	_ Logger = (*zeroLogger)(nil)
	_ Logger = nopLogger{}
)
