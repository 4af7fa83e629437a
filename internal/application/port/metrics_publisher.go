package port

import (
	"context"
	"time"
)

// MetricUnit is the unit attached to a published metric.
type MetricUnit string

const (
	MetricUnitCount        MetricUnit = "count"
	MetricUnitMilliseconds MetricUnit = "ms"
	MetricUnitNone         MetricUnit = ""
)

// Metric is a single observation produced by the application layer.
type Metric struct {
	Name       string
	Value      float64
	Unit       MetricUnit
	Timestamp  time.Time
	Dimensions map[string]string
}

// MetricsPublisher defines the interface for publishing metrics to external observability platforms.
// This port allows the application layer to publish metrics without coupling to specific implementations.
type MetricsPublisher interface {
	// PublishBatch publishes multiple metrics in a single operation.
	// Implementations should handle batching constraints (e.g., CloudWatch's 1000 metrics/request limit).
	PublishBatch(ctx context.Context, metrics []Metric) error

	// Flush forces immediate publication of any buffered metrics.
	// Should be called before the process is frozen or shut down to prevent data loss.
	Flush(ctx context.Context) error
}
