package port

import (
	"context"
	"time"
)

// PhotoObject описывает объект, найденный в бакете с фотографиями.
type PhotoObject struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ListObjectsQuery определяет параметры листинга бакета.
type ListObjectsQuery struct {
	// Prefix ограничивает листинг ключами с указанным префиксом. Пустой префикс означает весь бакет.
	Prefix string
	// MaxObjects - верхняя граница числа объектов; 0 означает без ограничения.
	MaxObjects int
}

// PhotoStorage определяет интерфейс объектного хранилища фотографий.
type PhotoStorage interface {
	// ListObjects возвращает все объекты бакета в порядке листинга, проходя по всем страницам.
	ListObjects(ctx context.Context, query ListObjectsQuery) ([]PhotoObject, error)

	// PresignGetObject возвращает подписанный URL для чтения объекта, действующий ttl.
	PresignGetObject(ctx context.Context, key string, ttl time.Duration) (string, error)
}
