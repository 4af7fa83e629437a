package http

import (
	"io/fs"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dreschagin/photo-gallery/internal/infrastructure/observability/metrics"
	"github.com/dreschagin/photo-gallery/internal/interfaces/http/handler"
	"github.com/dreschagin/photo-gallery/internal/interfaces/http/middleware"
	"github.com/dreschagin/photo-gallery/pkg/config"
	"github.com/dreschagin/photo-gallery/pkg/logger"
)

// Router настраивает маршруты приложения
type Router struct {
	mux             *http.ServeMux
	photoAPIHandler *handler.PhotoAPIHandler
	healthHandler   *handler.HealthHandler
	metrics         *metrics.Metrics
	gatherer        prometheus.Gatherer
	staticFiles     fs.FS
	security        config.SecurityConfig
	logger          *logger.Logger
}

type RouterOption func(*Router)

// WithPrometheus включает HTTP метрики и endpoint /metrics.
func WithPrometheus(m *metrics.Metrics, gatherer prometheus.Gatherer) RouterOption {
	return func(rt *Router) {
		rt.metrics = m
		rt.gatherer = gatherer
	}
}

// WithStaticFiles раздает статический сайт галереи с корня.
func WithStaticFiles(files fs.FS) RouterOption {
	return func(rt *Router) {
		rt.staticFiles = files
	}
}

// NewRouter создает новый router
func NewRouter(
	photoAPIHandler *handler.PhotoAPIHandler,
	healthHandler *handler.HealthHandler,
	security config.SecurityConfig,
	log *logger.Logger,
	opts ...RouterOption,
) *Router {
	if log == nil {
		log = logger.NewNop()
	}
	if healthHandler == nil {
		healthHandler = handler.NewHealthHandler(nil, 0, log)
	}

	rt := &Router{
		mux:             http.NewServeMux(),
		photoAPIHandler: photoAPIHandler,
		healthHandler:   healthHandler,
		security:        security,
		logger:          log,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	rt.mux.HandleFunc("/healthz", rt.healthHandler.Live)
	rt.mux.HandleFunc("/readyz", rt.healthHandler.Ready)

	rt.mux.HandleFunc("/getAllPhotos", rt.photoAPIHandler.GetAllPhotos)

	if rt.gatherer != nil {
		rt.mux.Handle("/metrics", promhttp.HandlerFor(rt.gatherer, promhttp.HandlerOpts{}))
	}
	if rt.staticFiles != nil {
		rt.mux.Handle("/", http.FileServerFS(rt.staticFiles))
	}

	var onPanic, onDrop, onAuthFailure func()
	if rt.metrics != nil {
		onPanic = rt.metrics.PanicsRecovered.Inc
		onDrop = rt.metrics.RateLimitDropped.Inc
		onAuthFailure = rt.metrics.AuthFailures.Inc
	}

	// Порядок: первый - внешний.
	chain := []func(http.Handler) http.Handler{
		middleware.Recovery(rt.logger, onPanic),
		middleware.RequestID,
		middleware.Logger(rt.logger),
	}
	if rt.metrics != nil {
		chain = append(chain, rt.metrics.Middleware)
	}
	if rt.security.RateLimitRPS > 0 {
		limiter := middleware.NewIPRateLimiter(rt.security.RateLimitRPS, rt.security.RateLimitBurst)
		chain = append(chain, middleware.RateLimit(limiter, onDrop))
	}
	chain = append(chain,
		middleware.Auth(middleware.AuthConfig{
			Enabled:     rt.security.AuthEnabled,
			BearerToken: rt.security.AuthToken,
		}, rt.logger, onAuthFailure),
		middleware.CORS(middleware.CORSConfig{AllowedOrigins: rt.security.AllowedOrigins}),
		middleware.Compression,
	)

	return middleware.Chain(rt.mux, chain...)
}
