package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dreschagin/photo-gallery/internal/application/dto"
	"github.com/dreschagin/photo-gallery/internal/domain/apperror"
	"github.com/dreschagin/photo-gallery/internal/domain/entity"
	"github.com/dreschagin/photo-gallery/pkg/logger"
)

// RequestIDHeader дублирует заголовок из middleware, чтобы handler не зависел от него.
const RequestIDHeader = "X-Request-Id"

// PhotoLister - то, что нужно handler-у от use case листинга.
type PhotoLister interface {
	Execute(ctx context.Context) ([]*entity.Photo, error)
}

// PhotoAPIHandler отдает список фотографий с подписанными URL.
type PhotoAPIHandler struct {
	listPhotosUC PhotoLister
	logger       *logger.Logger
}

func NewPhotoAPIHandler(listPhotosUC PhotoLister, log *logger.Logger) *PhotoAPIHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &PhotoAPIHandler{
		listPhotosUC: listPhotosUC,
		logger:       log,
	}
}

// GetAllPhotos обрабатывает GET /getAllPhotos.
// Успех: 200 и JSON-массив; любая ошибка: 500 и структурированное тело без деталей провайдера.
func (h *PhotoAPIHandler) GetAllPhotos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD, OPTIONS")
		writeJSON(w, http.StatusMethodNotAllowed, dto.ErrorResponse{Error: dto.ErrorDTO{
			Code:    string(apperror.KindInvalid),
			Message: "method not allowed",
		}})
		return
	}

	photos, err := h.listPhotosUC.Execute(r.Context())
	if err != nil {
		h.logger.Error("Failed to list photos", err,
			"request_id", r.Header.Get(RequestIDHeader),
			"kind", string(apperror.KindOf(err)),
		)
		writeJSON(w, http.StatusInternalServerError, dto.FromError(err))
		return
	}

	writeJSON(w, http.StatusOK, dto.ToPhotoDTOs(photos))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	payload, err := json.Marshal(body)
	if err != nil {
		http.Error(w, `{"error":{"code":"internal","message":"an internal error occurred","retryable":false}}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}
