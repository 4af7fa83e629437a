package valueobject

import (
	"fmt"
	"time"
)

const (
	// DefaultURLExpiry - срок действия подписанного URL по умолчанию.
	DefaultURLExpiry = 24 * time.Hour
	// MinURLExpiry - минимальный осмысленный срок действия.
	MinURLExpiry = time.Second
	// MaxURLExpiry - максимум, который допускает SigV4 presign.
	MaxURLExpiry = 7 * 24 * time.Hour
)

// URLExpiry представляет срок действия подписанного URL (Value Object)
type URLExpiry struct {
	duration time.Duration
}

// NewURLExpiry создает URLExpiry с валидацией. Нулевое значение заменяется на DefaultURLExpiry.
func NewURLExpiry(d time.Duration) (URLExpiry, error) {
	if d == 0 {
		d = DefaultURLExpiry
	}
	if d < MinURLExpiry {
		return URLExpiry{}, fmt.Errorf("url expiry must be at least %s, got %s", MinURLExpiry, d)
	}
	if d > MaxURLExpiry {
		return URLExpiry{}, fmt.Errorf("url expiry must not exceed %s, got %s", MaxURLExpiry, d)
	}
	return URLExpiry{duration: d.Truncate(time.Second)}, nil
}

// Duration возвращает срок действия
func (e URLExpiry) Duration() time.Duration {
	return e.duration
}

// Seconds возвращает срок действия в секундах (как в X-Amz-Expires)
func (e URLExpiry) Seconds() int64 {
	return int64(e.duration / time.Second)
}

// ExpiresAt вычисляет момент истечения относительно now
func (e URLExpiry) ExpiresAt(now time.Time) time.Time {
	return now.Add(e.duration)
}

func (e URLExpiry) String() string {
	return e.duration.String()
}
