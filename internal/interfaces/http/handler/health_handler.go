package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/dreschagin/photo-gallery/internal/domain/apperror"
	"github.com/dreschagin/photo-gallery/pkg/logger"
)

// ReadinessChecker проверяет доступность зависимостей (бакет).
type ReadinessChecker interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	checker ReadinessChecker
	timeout time.Duration
	logger  *logger.Logger
}

func NewHealthHandler(checker ReadinessChecker, timeout time.Duration, log *logger.Logger) *HealthHandler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &HealthHandler{checker: checker, timeout: timeout, logger: log}
}

func (h *HealthHandler) Live(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.checker != nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		if err := h.checker.Ping(ctx); err != nil {
			h.logger.Warn("Readiness check failed",
				"kind", string(apperror.KindOf(err)),
				"error", err.Error(),
			)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
