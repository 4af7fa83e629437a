package logger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dreschagin/photo-gallery/internal/application/port"
)

// publishTimeout ограничивает отправку одной записи во внешний publisher.
const publishTimeout = 200 * time.Millisecond

type Logger struct {
	core  *zap.Logger
	level Level

	mu        sync.RWMutex
	publisher port.LogPublisher
}

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// Options управляет форматом и уровнем логирования.
type Options struct {
	Level  string
	Format string // "json" или "console"
}

func NewWithOptions(opts Options) *Logger {
	lvl := parseLevel(opts.Level)

	encoderConfig := zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "level",
		TimeKey:        "timestamp",
		NameKey:        "logger",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}

	encoding := "json"
	if opts.Format == "console" {
		encoding = "console"
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(toZapLevel(lvl)),
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		DisableCaller:    true,
	}

	core, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build zap logger: %v", err))
	}

	return &Logger{core: core, level: lvl}
}

// NewNop возвращает logger, который ничего не пишет. Удобно для тестов.
func NewNop() *Logger {
	return &Logger{core: zap.NewNop(), level: ERROR}
}

// SetLogPublisher дублирует записи во внешнюю систему логов (например, CloudWatch Logs).
func (l *Logger) SetLogPublisher(publisher port.LogPublisher) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.publisher = publisher
}

func parseLevel(level string) Level {
	switch level {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

func toZapLevel(level Level) zapcore.Level {
	switch level {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.level <= DEBUG {
		l.core.Debug(msg, toFields(args...)...)
		l.publish(port.LogLevelDebug, msg, args...)
	}
}

func (l *Logger) Info(msg string, args ...interface{}) {
	if l.level <= INFO {
		l.core.Info(msg, toFields(args...)...)
		l.publish(port.LogLevelInfo, msg, args...)
	}
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.level <= WARN {
		l.core.Warn(msg, toFields(args...)...)
		l.publish(port.LogLevelWarn, msg, args...)
	}
}

func (l *Logger) Error(msg string, err error, args ...interface{}) {
	if l.level <= ERROR {
		if err != nil {
			args = append(args, "error", err.Error())
		}
		l.core.Error(msg, toFields(args...)...)
		l.publish(port.LogLevelError, msg, args...)
	}
}

// Sync сбрасывает буферы zap.
func (l *Logger) Sync() error {
	return l.core.Sync()
}

func (l *Logger) publish(level port.LogLevel, msg string, args ...interface{}) {
	l.mu.RLock()
	publisher := l.publisher
	l.mu.RUnlock()

	if publisher == nil {
		return
	}

	fields := make(map[string]interface{}, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		fields[fmt.Sprint(args[i])] = args[i+1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	// Ошибку публикации не логируем, чтобы не уйти в рекурсию.
	_ = publisher.Publish(ctx, port.LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   msg,
		Fields:    fields,
	})
}

func toFields(args ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fields = append(fields, zap.Any(fmt.Sprint(args[i]), args[i+1]))
		}
	}
	return fields
}
