package port

import (
	"context"
	"time"
)

// LogLevel is the severity attached to a forwarded log entry.
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// LogEntry is one structured log record forwarded outside the process.
type LogEntry struct {
	Timestamp time.Time
	Level     LogLevel
	Message   string
	Fields    map[string]interface{}
}

// LogPublisher forwards log records to an external sink such as CloudWatch Logs.
type LogPublisher interface {
	Publish(ctx context.Context, entry LogEntry) error
	PublishBatch(ctx context.Context, entries []LogEntry) error
	// Flush pushes buffered entries. Call it before shutdown.
	Flush(ctx context.Context) error
}
