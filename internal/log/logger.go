package log

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _logger *zap.Logger
var defaultlogger *zap.Logger

type contextKey int

const (
	contextKeyFields contextKey = iota
)

// Formats accepted by Setup (and the LOGFORMAT environment variable)
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

func init() {
	if err := Setup(os.Getenv("LOGFORMAT"), os.Getenv("LOGLEVEL")); err != nil {
		if err := Setup(FormatJSON, ""); err != nil {
			panic(err)
		}
	}
}

func setLogger(l *zap.Logger) {
	defaultlogger = l
}
func resetLogger() {
	defaultlogger = _logger
}

// Setup installs the process logger.
// format is one of FormatJSON (default) or FormatConsole, level is a zap level ("debug" if empty).
func Setup(format, level string) error {
	var cfg zap.Config
	switch strings.ToLower(format) {
	case "", FormatJSON:
		cfg = structuredConfig()
	case FormatConsole:
		cfg = consoleConfig()
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	if level != "" {
		if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
			return fmt.Errorf("unknown log level %q: %w", level, err)
		}
	}
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	_logger = l
	defaultlogger = _logger
	return nil
}

func structuredConfig() zap.Config {
	cfg := zap.NewProductionConfig()
	enc := zap.NewProductionEncoderConfig()
	enc.LevelKey = "severity"
	enc.TimeKey = "timestamp"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.StacktraceKey = ""
	enc.MessageKey = "message"
	cfg.EncoderConfig = enc
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	return cfg
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02T15:04:05.000"))
}

func consoleConfig() zap.Config {
	cfg := zap.NewDevelopmentConfig()
	enc := zap.NewDevelopmentEncoderConfig()
	enc.LevelKey = "severity"
	enc.TimeKey = "timestamp"
	enc.EncodeTime = timeEncoder
	enc.StacktraceKey = ""
	enc.MessageKey = "message"
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig = enc
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	return cfg
}

// Logger returns a logger that will print fields previously added to the context
func Logger(ctx context.Context) *zap.Logger {
	flds := ctx.Value(contextKeyFields)
	if flds != nil {
		fflds := flds.([]zap.Field)
		return defaultlogger.With(fflds...)
	}
	return defaultlogger
}

// With adds a key=value field to the returned context
func With(ctx context.Context, key string, value interface{}) context.Context {
	fld := zap.Any(key, value)
	return WithFields(ctx, fld)
}

// CopyContext returns a context derived from dst that contains the eventual logging
// keys that are contained in ctx
func CopyContext(ctx context.Context, dst context.Context) context.Context {
	cflds := ctx.Value(contextKeyFields)
	if cflds == nil {
		return dst
	}
	flds := append([]zapcore.Field{}, cflds.([]zapcore.Field)...)
	if cdflds := dst.Value(contextKeyFields); cdflds != nil {
		flds = append(flds, cdflds.([]zapcore.Field)...)
	}
	return context.WithValue(dst, contextKeyFields, flds)
}

// WithFields adds fields to the returned context
func WithFields(ctx context.Context, fields ...zapcore.Field) context.Context {
	flds := ctx.Value(contextKeyFields)
	var fflds []zap.Field
	if flds != nil {
		fflds = append(fflds, flds.([]zap.Field)...)
	}
	fflds = append(fflds, fields...)
	return context.WithValue(ctx, contextKeyFields, fflds)
}

// Sync flushes the process logger
func Sync() {
	_ = defaultlogger.Sync()
}
