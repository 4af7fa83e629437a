package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dreschagin/photo-gallery/internal/application/port"
)

// Publisher exposes use-case metrics as Prometheus collectors.
// Millisecond metrics feed a histogram in seconds, everything else a counter.
type Publisher struct {
	durations *prometheus.HistogramVec
	counters  *prometheus.CounterVec
}

var _ port.MetricsPublisher = (*Publisher)(nil)

func NewPublisher(registry prometheus.Registerer) *Publisher {
	p := &Publisher{
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "photo_gallery_operation_duration_seconds",
			Help:    "Duration of application operations in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"name"}),
		counters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "photo_gallery_operation_events_total",
			Help: "Counters reported by application operations.",
		}, []string{"name", "error_kind"}),
	}

	registry.MustRegister(p.durations, p.counters)
	return p
}

func (p *Publisher) PublishBatch(_ context.Context, metrics []port.Metric) error {
	for _, metric := range metrics {
		switch metric.Unit {
		case port.MetricUnitMilliseconds:
			p.durations.WithLabelValues(metric.Name).Observe(metric.Value / 1000)
		default:
			if metric.Value < 0 {
				continue
			}
			p.counters.WithLabelValues(metric.Name, metric.Dimensions["ErrorKind"]).Add(metric.Value)
		}
	}
	return nil
}

// Flush is a no-op: Prometheus pulls.
func (p *Publisher) Flush(context.Context) error {
	return nil
}

// MultiPublisher fans a batch out to several publishers and returns the first error.
type MultiPublisher []port.MetricsPublisher

func (m MultiPublisher) PublishBatch(ctx context.Context, metrics []port.Metric) error {
	var firstErr error
	for _, publisher := range m {
		if err := publisher.PublishBatch(ctx, metrics); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m MultiPublisher) Flush(ctx context.Context) error {
	var firstErr error
	for _, publisher := range m {
		if err := publisher.Flush(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
