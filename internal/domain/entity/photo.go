package entity

import (
	"errors"
	"strings"
	"time"
)

// Photo представляет ссылку на фотографию в бакете вместе с временным URL.
// Создается заново на каждый запрос и нигде не сохраняется.
type Photo struct {
	filename  string
	url       string
	expiresAt time.Time
}

// NewPhoto создает Photo с валидацией (Factory Method)
func NewPhoto(filename, url string, expiresAt time.Time) (*Photo, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, errors.New("photo filename cannot be empty")
	}
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("photo url cannot be empty")
	}

	return &Photo{
		filename:  filename,
		url:       url,
		expiresAt: expiresAt.UTC(),
	}, nil
}

// Filename возвращает ключ объекта в бакете
func (p *Photo) Filename() string {
	return p.filename
}

// URL возвращает подписанный URL
func (p *Photo) URL() string {
	return p.url
}

// ExpiresAt возвращает момент истечения подписи
func (p *Photo) ExpiresAt() time.Time {
	return p.expiresAt
}
