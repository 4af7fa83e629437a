package http

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dreschagin/photo-gallery/internal/application/dto"
	"github.com/dreschagin/photo-gallery/internal/application/port"
	"github.com/dreschagin/photo-gallery/internal/application/usecase"
	"github.com/dreschagin/photo-gallery/internal/domain/apperror"
	"github.com/dreschagin/photo-gallery/internal/infrastructure/observability/metrics"
	"github.com/dreschagin/photo-gallery/internal/interfaces/http/handler"
	"github.com/dreschagin/photo-gallery/pkg/config"
	"github.com/dreschagin/photo-gallery/pkg/logger"
	"github.com/dreschagin/photo-gallery/web"
)

const testToken = "test-token"

type memoryPhotoStorage struct {
	mu      sync.Mutex
	keys    []string
	listErr error
}

func (s *memoryPhotoStorage) ListObjects(_ context.Context, _ port.ListObjectsQuery) ([]port.PhotoObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	objects := make([]port.PhotoObject, 0, len(s.keys))
	for _, key := range s.keys {
		objects = append(objects, port.PhotoObject{Key: key})
	}
	return objects, nil
}

func (s *memoryPhotoStorage) PresignGetObject(_ context.Context, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://photos.s3.amazonaws.com/%s?X-Amz-Expires=%d", key, int(ttl.Seconds())), nil
}

func (s *memoryPhotoStorage) Ping(context.Context) error {
	return nil
}

func newTestServer(t *testing.T, storage *memoryPhotoStorage, security config.SecurityConfig) (*httptest.Server, *prometheus.Registry) {
	t.Helper()

	log := logger.NewNop()
	registry := prometheus.NewRegistry()

	uc, err := usecase.NewListPhotosUseCase(storage, metrics.NewPublisher(registry), usecase.ListPhotosConfig{}, log)
	if err != nil {
		t.Fatalf("NewListPhotosUseCase: %v", err)
	}

	router := NewRouter(
		handler.NewPhotoAPIHandler(uc, log),
		handler.NewHealthHandler(storage, time.Second, log),
		security,
		log,
		WithPrometheus(metrics.New(registry), registry),
		WithStaticFiles(web.Files),
	)

	server := httptest.NewServer(router.Setup())
	t.Cleanup(server.Close)
	return server, registry
}

func TestE2EHealthEndpoints(t *testing.T) {
	server, _ := newTestServer(t, &memoryPhotoStorage{}, config.SecurityConfig{})

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", path, resp.StatusCode)
		}
		if resp.Header.Get("X-Request-Id") == "" {
			t.Fatalf("GET %s: expected request id header", path)
		}
	}
}

func TestE2EGetAllPhotos(t *testing.T) {
	storage := &memoryPhotoStorage{keys: []string{"a.jpg", "b.jpg", "c.jpg"}}
	server, _ := newTestServer(t, storage, config.SecurityConfig{AllowedOrigins: []string{"*"}})

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/getAllPhotos", nil)
	req.Header.Set("Origin", "https://gallery.example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /getAllPhotos: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected CORS header, got %q", resp.Header.Get("Access-Control-Allow-Origin"))
	}

	var photos []dto.PhotoDTO
	if err := json.NewDecoder(resp.Body).Decode(&photos); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(photos) != 3 {
		t.Fatalf("expected 3 photos, got %d", len(photos))
	}
	for i, key := range storage.keys {
		if photos[i].Filename != key || !strings.Contains(photos[i].URL, "/"+key+"?X-Amz-Expires=86400") {
			t.Fatalf("position %d: unexpected photo %+v", i, photos[i])
		}
	}
}

func TestE2EGetAllPhotosGzip(t *testing.T) {
	server, _ := newTestServer(t, &memoryPhotoStorage{keys: []string{"a.jpg"}}, config.SecurityConfig{})

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/getAllPhotos", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	// Explicit header disables transparent decompression in net/http.
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.Header.Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip response")
	}
	reader, err := gzip.NewReader(resp.Body)
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	body, _ := io.ReadAll(reader)
	if !strings.Contains(string(body), `"filename":"a.jpg"`) {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestE2EGetAllPhotosFailure(t *testing.T) {
	storage := &memoryPhotoStorage{
		listErr: apperror.Wrap(errors.New("AccessDenied: User arn:aws:sts::1:assumed-role/x"), apperror.KindPermission, "s3.list_objects", ""),
	}
	server, registry := newTestServer(t, storage, config.SecurityConfig{})

	resp, err := http.Get(server.URL + "/getAllPhotos")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if strings.Contains(string(body), "arn:aws") {
		t.Fatalf("provider detail leaked: %s", body)
	}

	var errBody dto.ErrorResponse
	if err := json.Unmarshal(body, &errBody); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errBody.Error.Code != "permission_denied" {
		t.Fatalf("unexpected code %q", errBody.Error.Code)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, family := range families {
		if family.GetName() == "photo_gallery_operation_events_total" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected failure counter to be exported")
	}
}

func TestE2EMethodNotAllowed(t *testing.T) {
	server, _ := newTestServer(t, &memoryPhotoStorage{}, config.SecurityConfig{})

	resp, err := http.Post(server.URL+"/getAllPhotos", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func TestE2EAuthEnabled(t *testing.T) {
	server, _ := newTestServer(t, &memoryPhotoStorage{}, config.SecurityConfig{
		AuthEnabled: true,
		AuthToken:   testToken,
	})

	resp, err := http.Get(server.URL + "/getAllPhotos")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/getAllPhotos", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.StatusCode)
	}
}

func TestE2EMetricsAndStaticSite(t *testing.T) {
	server, _ := newTestServer(t, &memoryPhotoStorage{}, config.SecurityConfig{})

	// Generate at least one observed request.
	if resp, err := http.Get(server.URL + "/getAllPhotos"); err == nil {
		resp.Body.Close()
	}

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "photo_gallery_http_requests_total") {
		t.Fatalf("expected http metrics in /metrics output")
	}

	resp, err = http.Get(server.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "Photo Gallery") {
		t.Fatalf("expected gallery page, got %d", resp.StatusCode)
	}
}
