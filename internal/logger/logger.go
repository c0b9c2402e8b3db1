package logger

import (
	"os"
	"sync"
	"time"

	"github.com/leandrodaf/pianosync/sdk/contracts"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger implements the Logger contract on top of Uber's zap.
type ZapLogger struct {
	mu     sync.RWMutex
	logger *zap.Logger
	level  zap.AtomicLevel
	sink   *os.File // open log file, nil when writing to the console
}

// NewZapLogger creates a logger writing JSON entries to stderr at InfoLevel.
func NewZapLogger() contracts.Logger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	return &ZapLogger{
		logger: zap.New(newCore(zapcore.Lock(os.Stderr), level, false), zap.AddCaller(), zap.AddCallerSkip(2)),
		level:  level,
	}
}

// NewConsoleLogger creates a human-readable logger for interactive use.
func NewConsoleLogger() contracts.Logger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	return &ZapLogger{
		logger: zap.New(newCore(zapcore.Lock(os.Stderr), level, true), zap.AddCaller(), zap.AddCallerSkip(2)),
		level:  level,
	}
}

// NewFromCore wraps an arbitrary zap core, mainly for tests.
func NewFromCore(core zapcore.Core) contracts.Logger {
	return &ZapLogger{
		logger: zap.New(core),
		level:  zap.NewAtomicLevelAt(zapcore.DebugLevel),
	}
}

func newCore(ws zapcore.WriteSyncer, level zap.AtomicLevel, console bool) zapcore.Core {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	var enc zapcore.Encoder
	if console {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	} else {
		enc = zapcore.NewJSONEncoder(cfg)
	}
	return zapcore.NewCore(enc, ws, level)
}

// Info logs a message at the INFO level
func (z *ZapLogger) Info(msg string, fields ...contracts.Field) {
	z.log(zapcore.InfoLevel, msg, fields...)
}

// Error logs a message at the ERROR level
func (z *ZapLogger) Error(msg string, fields ...contracts.Field) {
	z.log(zapcore.ErrorLevel, msg, fields...)
}

// Debug logs a message at the DEBUG level
func (z *ZapLogger) Debug(msg string, fields ...contracts.Field) {
	z.log(zapcore.DebugLevel, msg, fields...)
}

// Warn logs a message at the WARN level
func (z *ZapLogger) Warn(msg string, fields ...contracts.Field) {
	z.log(zapcore.WarnLevel, msg, fields...)
}

// Fatal logs a message at the FATAL level and terminates the application
func (z *ZapLogger) Fatal(msg string, fields ...contracts.Field) {
	z.log(zapcore.FatalLevel, msg, fields...)
}

// Field returns a new instance of Field
func (z *ZapLogger) Field() contracts.Field {
	return zapField{}
}

// SetLevel sets the logging level
func (z *ZapLogger) SetLevel(level contracts.LogLevel) {
	z.level.SetLevel(toZapLevel(level))
}

// SetDestination switches output between the console and a log file.
// A file destination without a path is ignored.
func (z *ZapLogger) SetDestination(dest contracts.LogDestination, filePath ...string) {
	var ws zapcore.WriteSyncer
	var sink *os.File
	switch dest {
	case contracts.FileLog:
		if len(filePath) == 0 || filePath[0] == "" {
			z.Warn("file log destination requested without a path")
			return
		}
		f, err := os.OpenFile(filePath[0], os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			z.Error("failed to open log file", z.Field().String("path", filePath[0]), z.Field().Error("error", err))
			return
		}
		ws, sink = zapcore.AddSync(f), f
	default:
		ws = zapcore.Lock(os.Stderr)
	}

	z.mu.Lock()
	defer z.mu.Unlock()
	_ = z.logger.Sync()
	if z.sink != nil {
		_ = z.sink.Close()
	}
	z.logger = zap.New(newCore(ws, z.level, false), zap.AddCaller(), zap.AddCallerSkip(2))
	z.sink = sink
}

// log is the single funnel for all levels
func (z *ZapLogger) log(level zapcore.Level, msg string, fields ...contracts.Field) {
	if !z.level.Enabled(level) {
		return
	}
	z.mu.RLock()
	l := z.logger
	z.mu.RUnlock()

	if ce := l.Check(level, msg); ce != nil {
		ce.Write(toZapFields(fields)...)
	}
}

func toZapLevel(level contracts.LogLevel) zapcore.Level {
	switch level {
	case contracts.DebugLevel:
		return zapcore.DebugLevel
	case contracts.WarnLevel:
		return zapcore.WarnLevel
	case contracts.ErrorLevel:
		return zapcore.ErrorLevel
	case contracts.FatalLevel:
		return zapcore.FatalLevel
	}
	return zapcore.InfoLevel
}

func toZapFields(fields []contracts.Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		if zf, ok := f.(zapField); ok && zf.field.Key != "" {
			out = append(out, zf.field)
		}
	}
	return out
}

// zapField implements contracts.Field by carrying a native zap.Field.
type zapField struct {
	field zap.Field
}

func (zapField) Bool(key string, val bool) contracts.Field {
	return zapField{zap.Bool(key, val)}
}

func (zapField) Int(key string, val int) contracts.Field {
	return zapField{zap.Int(key, val)}
}

func (zapField) Float64(key string, val float64) contracts.Field {
	return zapField{zap.Float64(key, val)}
}

func (zapField) String(key string, val string) contracts.Field {
	return zapField{zap.String(key, val)}
}

func (zapField) Time(key string, val time.Time) contracts.Field {
	return zapField{zap.Time(key, val)}
}

func (zapField) Int64(key string, val int64) contracts.Field {
	return zapField{zap.Int64(key, val)}
}

func (zapField) Error(key string, val error) contracts.Field {
	return zapField{zap.NamedError(key, val)}
}

func (zapField) Uint64(key string, val uint64) contracts.Field {
	return zapField{zap.Uint64(key, val)}
}

func (zapField) Uint8(key string, val uint8) contracts.Field {
	return zapField{zap.Uint8(key, val)}
}
