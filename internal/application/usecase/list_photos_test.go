package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dreschagin/photo-gallery/internal/application/port"
	"github.com/dreschagin/photo-gallery/internal/domain/apperror"
	"github.com/dreschagin/photo-gallery/internal/domain/entity"
	"github.com/dreschagin/photo-gallery/pkg/logger"
)

type mockPhotoStorage struct {
	objects   []port.PhotoObject
	listErr   error
	signErrAt map[string]error
	delays    map[string]time.Duration

	mu        sync.Mutex
	lastQuery port.ListObjectsQuery
	lastTTL   time.Duration
	signCalls int

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (m *mockPhotoStorage) ListObjects(_ context.Context, query port.ListObjectsQuery) ([]port.PhotoObject, error) {
	m.mu.Lock()
	m.lastQuery = query
	m.mu.Unlock()

	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.objects, nil
}

func (m *mockPhotoStorage) PresignGetObject(ctx context.Context, key string, ttl time.Duration) (string, error) {
	current := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		seen := m.maxInFlight.Load()
		if current <= seen || m.maxInFlight.CompareAndSwap(seen, current) {
			break
		}
	}

	m.mu.Lock()
	m.lastTTL = ttl
	m.signCalls++
	m.mu.Unlock()

	if delay, ok := m.delays[key]; ok {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if err, ok := m.signErrAt[key]; ok {
		return "", err
	}
	return fmt.Sprintf("https://signed.example.com/%s?X-Amz-Expires=%d", key, int64(ttl/time.Second)), nil
}

type recordingMetricsPublisher struct {
	mu      sync.Mutex
	metrics []port.Metric
}

func (p *recordingMetricsPublisher) PublishBatch(_ context.Context, metrics []port.Metric) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics = append(p.metrics, metrics...)
	return nil
}

func (p *recordingMetricsPublisher) Flush(_ context.Context) error {
	return nil
}

func (p *recordingMetricsPublisher) find(name string) (port.Metric, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, metric := range p.metrics {
		if metric.Name == name {
			return metric, true
		}
	}
	return port.Metric{}, false
}

// blockingMetricsPublisher ждет отмены контекста, как зависший CloudWatch endpoint.
type blockingMetricsPublisher struct{}

func (blockingMetricsPublisher) PublishBatch(ctx context.Context, _ []port.Metric) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockingMetricsPublisher) Flush(context.Context) error {
	return nil
}

type recordingLogPublisher struct {
	mu      sync.Mutex
	entries []port.LogEntry
}

func (p *recordingLogPublisher) Publish(_ context.Context, entry port.LogEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, entry)
	return nil
}

func (p *recordingLogPublisher) PublishBatch(ctx context.Context, entries []port.LogEntry) error {
	for _, entry := range entries {
		_ = p.Publish(ctx, entry)
	}
	return nil
}

func (p *recordingLogPublisher) Flush(context.Context) error {
	return nil
}

func newTestUseCase(t *testing.T, storage port.PhotoStorage, publisher port.MetricsPublisher, cfg ListPhotosConfig) *ListPhotosUseCase {
	t.Helper()
	uc, err := NewListPhotosUseCase(storage, publisher, cfg, logger.NewNop())
	if err != nil {
		t.Fatalf("NewListPhotosUseCase() error = %v", err)
	}
	return uc
}

func TestListPhotosUseCase_EmptyBucket(t *testing.T) {
	storage := &mockPhotoStorage{}
	uc := newTestUseCase(t, storage, nil, ListPhotosConfig{})

	photos, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if photos == nil || len(photos) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", photos)
	}
	if storage.signCalls != 0 {
		t.Fatalf("expected no sign calls, got %d", storage.signCalls)
	}
}

func TestListPhotosUseCase_SignsEveryObjectWithConfiguredExpiry(t *testing.T) {
	storage := &mockPhotoStorage{
		objects: []port.PhotoObject{
			{Key: "a.jpg"},
			{Key: "b.jpg"},
			{Key: "nested/c.png"},
		},
	}
	uc := newTestUseCase(t, storage, nil, ListPhotosConfig{
		KeyPrefix:  "uploads/",
		MaxObjects: 50,
	})

	photos, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(photos) != 3 {
		t.Fatalf("expected 3 photos, got %d", len(photos))
	}
	if storage.lastQuery.Prefix != "uploads/" || storage.lastQuery.MaxObjects != 50 {
		t.Fatalf("unexpected list query: %+v", storage.lastQuery)
	}
	if storage.lastTTL != 24*time.Hour {
		t.Fatalf("expected default 24h ttl, got %s", storage.lastTTL)
	}
	for _, photo := range photos {
		if photo.Filename() == "" {
			t.Fatalf("expected non-empty filename")
		}
		if !strings.Contains(photo.URL(), "X-Amz-Expires=86400") {
			t.Fatalf("expected 24h expiry in url, got %s", photo.URL())
		}
	}
}

func TestListPhotosUseCase_PreservesOrderWithUnevenLatency(t *testing.T) {
	objects := make([]port.PhotoObject, 0, 20)
	delays := make(map[string]time.Duration)
	for i := 0; i < 20; i++ {
		key := fmt.Sprintf("photo-%02d.jpg", i)
		objects = append(objects, port.PhotoObject{Key: key})
		// Ранние ключи подписываются дольше поздних.
		delays[key] = time.Duration(20-i) * time.Millisecond
	}

	storage := &mockPhotoStorage{objects: objects, delays: delays}
	uc := newTestUseCase(t, storage, nil, ListPhotosConfig{SignConcurrency: 20})

	photos, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(photos) != len(objects) {
		t.Fatalf("expected %d photos, got %d", len(objects), len(photos))
	}
	for i, photo := range photos {
		if photo.Filename() != objects[i].Key {
			t.Fatalf("position %d: expected %s, got %s", i, objects[i].Key, photo.Filename())
		}
		if !strings.Contains(photo.URL(), "/"+objects[i].Key+"?") {
			t.Fatalf("position %d: url %s does not belong to %s", i, photo.URL(), objects[i].Key)
		}
	}
}

func TestListPhotosUseCase_RespectsSignConcurrency(t *testing.T) {
	objects := make([]port.PhotoObject, 0, 12)
	delays := make(map[string]time.Duration)
	for i := 0; i < 12; i++ {
		key := fmt.Sprintf("p%d.jpg", i)
		objects = append(objects, port.PhotoObject{Key: key})
		delays[key] = 5 * time.Millisecond
	}

	storage := &mockPhotoStorage{objects: objects, delays: delays}
	uc := newTestUseCase(t, storage, nil, ListPhotosConfig{SignConcurrency: 3})

	if _, err := uc.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if max := storage.maxInFlight.Load(); max > 3 {
		t.Fatalf("expected at most 3 concurrent sign calls, got %d", max)
	}
}

func TestListPhotosUseCase_ListingErrorKeepsKind(t *testing.T) {
	storage := &mockPhotoStorage{
		listErr: apperror.Wrap(errors.New("AccessDenied: Access Denied"), apperror.KindPermission, "s3.list", apperror.DefaultMessage(apperror.KindPermission)),
	}
	publisher := &recordingMetricsPublisher{}
	uc := newTestUseCase(t, storage, publisher, ListPhotosConfig{})

	photos, err := uc.Execute(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if photos != nil {
		t.Fatalf("expected no photos on failure")
	}
	if apperror.KindOf(err) != apperror.KindPermission {
		t.Fatalf("expected permission kind, got %s", apperror.KindOf(err))
	}

	failure, ok := publisher.find(MetricListFailures)
	if !ok {
		t.Fatalf("expected failure metric to be published")
	}
	if failure.Dimensions["ErrorKind"] != string(apperror.KindPermission) {
		t.Fatalf("unexpected failure dimensions: %v", failure.Dimensions)
	}
}

func TestListPhotosUseCase_SingleSignFailureFailsWholeRequest(t *testing.T) {
	storage := &mockPhotoStorage{
		objects: []port.PhotoObject{{Key: "a.jpg"}, {Key: "b.jpg"}, {Key: "c.jpg"}},
		signErrAt: map[string]error{
			"b.jpg": apperror.Wrap(errors.New("SlowDown"), apperror.KindTransient, "s3.presign", apperror.DefaultMessage(apperror.KindTransient)),
		},
	}
	uc := newTestUseCase(t, storage, nil, ListPhotosConfig{})

	photos, err := uc.Execute(context.Background())
	if err == nil {
		t.Fatalf("expected error when one signature fails")
	}
	if photos != nil {
		t.Fatalf("expected no partial result, got %d photos", len(photos))
	}
	if !apperror.IsRetryable(err) {
		t.Fatalf("expected transient error to stay retryable, got %v", err)
	}
}

func TestListPhotosUseCase_UnclassifiedErrorBecomesInternal(t *testing.T) {
	storage := &mockPhotoStorage{listErr: errors.New("boom")}
	uc := newTestUseCase(t, storage, nil, ListPhotosConfig{})

	_, err := uc.Execute(context.Background())
	if apperror.KindOf(err) != apperror.KindInternal {
		t.Fatalf("expected internal kind, got %s", apperror.KindOf(err))
	}
	if apperror.PublicMessage(err) == "boom" {
		t.Fatalf("raw error text must not become the public message")
	}
}

func TestListPhotosUseCase_PublishesSuccessMetrics(t *testing.T) {
	storage := &mockPhotoStorage{objects: []port.PhotoObject{{Key: "a.jpg"}, {Key: "b.jpg"}}}
	publisher := &recordingMetricsPublisher{}
	uc := newTestUseCase(t, storage, publisher, ListPhotosConfig{})

	if _, err := uc.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	listed, ok := publisher.find(MetricPhotosListed)
	if !ok || listed.Value != 2 {
		t.Fatalf("expected PhotosListed=2, got %+v", listed)
	}
	if _, ok := publisher.find(MetricListDuration); !ok {
		t.Fatalf("expected duration metric")
	}
}

func TestNewListPhotosUseCase_RejectsInvalidExpiry(t *testing.T) {
	_, err := NewListPhotosUseCase(&mockPhotoStorage{}, nil, ListPhotosConfig{URLExpiry: 30 * 24 * time.Hour}, nil)
	if err == nil {
		t.Fatalf("expected error for expiry above presign maximum")
	}
}

func TestListPhotosUseCase_HungMetricsPublisherDoesNotBlockRequest(t *testing.T) {
	storage := &mockPhotoStorage{objects: []port.PhotoObject{{Key: "a.jpg"}}}
	uc := newTestUseCase(t, storage, blockingMetricsPublisher{}, ListPhotosConfig{})
	uc.publishTimeout = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := uc.Execute(ctx)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Execute is still blocked on metrics publishing")
	}
}

func TestListPhotosUseCase_FailureIsNotLoggedAsError(t *testing.T) {
	storage := &mockPhotoStorage{listErr: errors.New("boom")}
	log := logger.NewWithOptions(logger.Options{Level: "error", Format: "console"})
	published := &recordingLogPublisher{}
	log.SetLogPublisher(published)

	uc, err := NewListPhotosUseCase(storage, nil, ListPhotosConfig{}, log)
	if err != nil {
		t.Fatalf("NewListPhotosUseCase() error = %v", err)
	}
	if _, err := uc.Execute(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if len(published.entries) != 0 {
		t.Fatalf("expected the caller to own the ERROR line, got %+v", published.entries)
	}
}

func TestEarliestExpiry(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	late, _ := entity.NewPhoto("late.jpg", "https://x/late", base.Add(time.Minute))
	early, _ := entity.NewPhoto("early.jpg", "https://x/early", base)

	got, ok := earliestExpiry([]*entity.Photo{late, early})
	if !ok || !got.Equal(base) {
		t.Fatalf("earliestExpiry() = %v, %v; want %v", got, ok, base)
	}
	if _, ok := earliestExpiry(nil); ok {
		t.Fatalf("expected no expiry for an empty listing")
	}
}
