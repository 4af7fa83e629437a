package cloudwatch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/dreschagin/photo-gallery/internal/application/port"
)

// CloudWatch accepts at most 1000 datums per PutMetricData call.
const maxMetricsPerRequest = 1000

// putMetricDataAPI is the subset of the CloudWatch client the publisher needs.
type putMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// MetricsPublisherConfig holds configuration for CloudWatch metrics publishing.
type MetricsPublisherConfig struct {
	Namespace         string            // e.g. "PhotoGallery/API"
	Region            string            // AWS region
	Endpoint          string            // optional endpoint override (LocalStack)
	AccessKeyID       string            // optional, default credential chain otherwise
	SecretAccessKey   string            // optional
	DefaultDimensions map[string]string // added to every datum
	BufferSize        int               // buffer capacity; wakes the flush loop when reached
	// FlushInterval drives the background flush loop. A negative value disables
	// the loop; the caller must then Flush explicitly (Lambda mode).
	FlushInterval     time.Duration
	StorageResolution int32 // 1 or 60 seconds
}

// MetricsPublisher buffers application metrics and ships them to CloudWatch.
// PublishBatch never calls the network: it only buffers, evicting the oldest
// datums above BufferSize. Sending happens in Flush, the background loop and Close.
type MetricsPublisher struct {
	client            putMetricDataAPI
	namespace         string
	defaultDimensions map[string]string
	storageResolution int32

	buffer     []port.Metric
	bufferSize int
	dropped    atomic.Uint64
	mu         sync.Mutex
	// flushMu serializes network flushes; mu guards only the buffer.
	flushMu sync.Mutex

	flushTicker *time.Ticker
	flushCh     chan struct{}
	stopCh      chan struct{}
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

var _ port.MetricsPublisher = (*MetricsPublisher)(nil)

// NewMetricsPublisher creates a new CloudWatch metrics publisher.
func NewMetricsPublisher(ctx context.Context, cfg MetricsPublisherConfig) (*MetricsPublisher, error) {
	if err := validateMetricsConfig(&cfg); err != nil {
		return nil, err
	}

	awsCfg, err := buildAWSConfig(ctx, cfg.Region, cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	return newMetricsPublisher(cloudwatch.NewFromConfig(awsCfg), cfg), nil
}

func validateMetricsConfig(cfg *MetricsPublisherConfig) error {
	if cfg.Namespace == "" {
		return fmt.Errorf("namespace is required")
	}
	if cfg.Region == "" {
		return fmt.Errorf("region is required")
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 100
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 10 * time.Second
	}
	if cfg.StorageResolution != 1 && cfg.StorageResolution != 60 {
		cfg.StorageResolution = 60
	}
	return nil
}

func newMetricsPublisher(client putMetricDataAPI, cfg MetricsPublisherConfig) *MetricsPublisher {
	p := &MetricsPublisher{
		client:            client,
		namespace:         cfg.Namespace,
		defaultDimensions: cfg.DefaultDimensions,
		storageResolution: cfg.StorageResolution,
		buffer:            make([]port.Metric, 0, cfg.BufferSize),
		bufferSize:        cfg.BufferSize,
		flushCh:           make(chan struct{}, 1),
		stopCh:            make(chan struct{}),
	}

	if cfg.FlushInterval > 0 {
		p.flushTicker = time.NewTicker(cfg.FlushInterval)
		p.wg.Add(1)
		go p.flushLoop()
	}

	return p
}

// PublishBatch buffers metrics and wakes the flush loop once the buffer is full.
func (p *MetricsPublisher) PublishBatch(_ context.Context, metrics []port.Metric) error {
	if len(metrics) == 0 {
		return nil
	}

	p.mu.Lock()
	var dropped int
	p.buffer, dropped = appendBounded(p.buffer, metrics, p.bufferSize)
	full := len(p.buffer) >= p.bufferSize
	p.mu.Unlock()

	if dropped > 0 {
		p.dropped.Add(uint64(dropped))
	}
	if full {
		notify(p.flushCh)
	}
	return nil
}

// Dropped reports how many datums were evicted from a full buffer.
func (p *MetricsPublisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Flush publishes buffered metrics. Chunks that were delivered are removed
// even when a later chunk fails; undelivered ones go back to the buffer.
func (p *MetricsPublisher) Flush(ctx context.Context) error {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	p.mu.Lock()
	pending := p.buffer
	p.buffer = make([]port.Metric, 0, p.bufferSize)
	p.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	for i := 0; i < len(pending); i += maxMetricsPerRequest {
		end := min(i+maxMetricsPerRequest, len(pending))

		data := make([]types.MetricDatum, 0, end-i)
		for _, metric := range pending[i:end] {
			data = append(data, p.convertToDatum(metric))
		}

		if err := p.publishBatchWithRetry(ctx, data); err != nil {
			p.mu.Lock()
			var dropped int
			p.buffer, dropped = requeue(pending[i:], p.buffer, p.bufferSize)
			p.mu.Unlock()
			if dropped > 0 {
				p.dropped.Add(uint64(dropped))
			}
			return fmt.Errorf("failed to publish chunk: %w", err)
		}
	}

	return nil
}

// Close stops the background flush goroutine and flushes remaining metrics.
func (p *MetricsPublisher) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		close(p.stopCh)
		if p.flushTicker != nil {
			p.flushTicker.Stop()
		}
		p.wg.Wait()
	})

	return p.Flush(ctx)
}

func (p *MetricsPublisher) flushLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.flushTicker.C:
		case <-p.flushCh:
		case <-p.stopCh:
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		// Undelivered datums stay buffered; the next tick retries.
		_ = p.Flush(ctx)
		cancel()
	}
}

func (p *MetricsPublisher) publishBatchWithRetry(ctx context.Context, data []types.MetricDatum) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(p.namespace),
			MetricData: data,
		})
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt < maxRetries-1 {
			if err := sleepBackoff(ctx, &backoff); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// convertToDatum maps a port.Metric to a CloudWatch MetricDatum.
// Metric dimensions override default dimensions with the same name.
func (p *MetricsPublisher) convertToDatum(metric port.Metric) types.MetricDatum {
	timestamp := metric.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	merged := make(map[string]string, len(p.defaultDimensions)+len(metric.Dimensions))
	for key, value := range p.defaultDimensions {
		merged[key] = value
	}
	for key, value := range metric.Dimensions {
		merged[key] = value
	}

	names := make([]string, 0, len(merged))
	for key := range merged {
		names = append(names, key)
	}
	sort.Strings(names)

	dimensions := make([]types.Dimension, 0, len(names))
	for _, name := range names {
		dimensions = append(dimensions, types.Dimension{
			Name:  aws.String(name),
			Value: aws.String(merged[name]),
		})
	}

	datum := types.MetricDatum{
		MetricName: aws.String(metric.Name),
		Value:      aws.Float64(metric.Value),
		Unit:       mapUnit(metric.Unit),
		Timestamp:  aws.Time(timestamp),
		Dimensions: dimensions,
	}
	if p.storageResolution > 0 {
		datum.StorageResolution = aws.Int32(p.storageResolution)
	}

	return datum
}

func mapUnit(unit port.MetricUnit) types.StandardUnit {
	switch unit {
	case port.MetricUnitCount:
		return types.StandardUnitCount
	case port.MetricUnitMilliseconds:
		return types.StandardUnitMilliseconds
	default:
		return types.StandardUnitNone
	}
}
