package log

import (
	"os"

	zaplogfmt "github.com/jsternberg/zap-logfmt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger is the default Logger implementation, built on go.uber.org/zap.
// It is safe for concurrent use; the With* methods return derived loggers
// and never mutate the receiver.
type ZapLogger struct {
	lg   *zap.SugaredLogger
	name string
	kv   []any
}

var _ Logger = (*ZapLogger)(nil)

// NewZapLogger creates a ZapLogger writing to the given sink with the
// provided configuration. An empty Config produces a logfmt logger at
// info level.
func NewZapLogger(cfg Config, ws zapcore.WriteSyncer) *ZapLogger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch cfg.Format {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	default:
		encoder = zaplogfmt.NewEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, ws, zapLevel(cfg.Level))
	return &ZapLogger{
		lg: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar(),
	}
}

// NewStderrLogger is a convenience constructor for a ZapLogger writing
// to standard error.
func NewStderrLogger(cfg Config) *ZapLogger {
	return NewZapLogger(cfg, zapcore.Lock(os.Stderr))
}

func zapLevel(level Level) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *ZapLogger) Debug(msg string, keysAndValues ...any) {
	l.lg.Debugw(msg, keysAndValues...)
}

func (l *ZapLogger) Info(msg string, keysAndValues ...any) {
	l.lg.Infow(msg, keysAndValues...)
}

func (l *ZapLogger) Warn(msg string, keysAndValues ...any) {
	l.lg.Warnw(msg, keysAndValues...)
}

func (l *ZapLogger) Error(msg string, keysAndValues ...any) {
	l.lg.Errorw(msg, keysAndValues...)
}

// WithName extends the logger name with the given component name.
// Names are joined with dots, e.g. "client.http-transport".
func (l *ZapLogger) WithName(name string) Logger {
	fullName := name
	if l.name != "" {
		fullName = l.name + "." + name
	}
	return &ZapLogger{
		lg:   l.lg.Named(name),
		name: fullName,
		kv:   l.kv,
	}
}

// Name returns the full dot-joined logger name.
func (l *ZapLogger) Name() string {
	return l.name
}

// WithKV returns a derived logger that includes the key-value pair in
// every entry.
func (l *ZapLogger) WithKV(key string, value any) Logger {
	return &ZapLogger{
		lg:   l.lg.With(key, value),
		name: l.name,
		kv:   append(append([]any{}, l.kv...), key, value),
	}
}
