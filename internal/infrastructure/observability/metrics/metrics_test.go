package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dreschagin/photo-gallery/internal/application/port"
)

func TestMiddleware_RecordsRouteAndStatus(t *testing.T) {
	m := New(prometheus.NewRegistry())

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/getAllPhotos" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/getAllPhotos", "/healthz", "/some/random/path"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/getAllPhotos", "GET", "500")); got != 1 {
		t.Fatalf("expected 1 failed photo request, got %v", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/healthz", "GET", "200")); got != 1 {
		t.Fatalf("expected 1 health request, got %v", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("other", "GET", "200")); got != 1 {
		t.Fatalf("expected unknown path collapsed into other, got %v", got)
	}
}

func TestPublisher_SplitsDurationsAndCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	p := NewPublisher(registry)

	err := p.PublishBatch(context.Background(), []port.Metric{
		{Name: "ListDuration", Value: 250, Unit: port.MetricUnitMilliseconds},
		{Name: "PhotosListed", Value: 7, Unit: port.MetricUnitCount},
		{Name: "ListFailures", Value: 1, Unit: port.MetricUnitCount, Dimensions: map[string]string{"ErrorKind": "permission_denied"}},
	})
	if err != nil {
		t.Fatalf("PublishBatch() error = %v", err)
	}

	if got := testutil.ToFloat64(p.counters.WithLabelValues("PhotosListed", "")); got != 7 {
		t.Fatalf("expected PhotosListed=7, got %v", got)
	}
	if got := testutil.ToFloat64(p.counters.WithLabelValues("ListFailures", "permission_denied")); got != 1 {
		t.Fatalf("expected one permission failure, got %v", got)
	}
	if count := testutil.CollectAndCount(p.durations); count != 1 {
		t.Fatalf("expected one duration series, got %d", count)
	}
}

type countingPublisher struct {
	batches int
	flushes int
}

func (c *countingPublisher) PublishBatch(context.Context, []port.Metric) error {
	c.batches++
	return nil
}

func (c *countingPublisher) Flush(context.Context) error {
	c.flushes++
	return nil
}

func TestMultiPublisher_FansOut(t *testing.T) {
	a, b := &countingPublisher{}, &countingPublisher{}
	multi := MultiPublisher{a, b}

	_ = multi.PublishBatch(context.Background(), []port.Metric{{Name: "PhotosListed", Value: 1}})
	_ = multi.Flush(context.Background())

	if a.batches != 1 || b.batches != 1 || a.flushes != 1 || b.flushes != 1 {
		t.Fatalf("expected both publishers called once, got %+v %+v", a, b)
	}
}
