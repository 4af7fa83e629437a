package dto

import (
	"github.com/dreschagin/photo-gallery/internal/domain/apperror"
	"github.com/dreschagin/photo-gallery/internal/domain/entity"
)

// PhotoDTO - элемент ответа GET /getAllPhotos.
type PhotoDTO struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// ErrorDTO описывает ошибку без внутренних деталей провайдера.
type ErrorDTO struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

type ErrorResponse struct {
	Error ErrorDTO `json:"error"`
}

// FromPhoto конвертирует Domain Entity в DTO
func FromPhoto(photo *entity.Photo) PhotoDTO {
	return PhotoDTO{
		Filename: photo.Filename(),
		URL:      photo.URL(),
	}
}

// ToPhotoDTOs всегда возвращает не-nil слайс, чтобы пустой бакет сериализовался в [].
func ToPhotoDTOs(photos []*entity.Photo) []PhotoDTO {
	dtos := make([]PhotoDTO, 0, len(photos))
	for _, photo := range photos {
		if photo == nil {
			continue
		}
		dtos = append(dtos, FromPhoto(photo))
	}
	return dtos
}

func FromError(err error) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDTO{
			Code:      string(apperror.KindOf(err)),
			Message:   apperror.PublicMessage(err),
			Retryable: apperror.IsRetryable(err),
		},
	}
}
