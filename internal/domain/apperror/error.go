package apperror

import (
	"errors"
	"fmt"
)

// Kind классифицирует ошибку по тому, что с ней может сделать вызывающая сторона.
type Kind string

const (
	KindTransient     Kind = "transient_provider_error" // троттлинг, 5xx, таймауты - можно повторить
	KindPermission    Kind = "permission_denied"        // 401/403 от провайдера
	KindNotFound      Kind = "not_found"                // нет бакета или объекта
	KindLimitExceeded Kind = "listing_limit_exceeded"   // листинг больше разрешенного
	KindInvalid       Kind = "invalid_argument"         // некорректные входные данные
	KindInternal      Kind = "internal"                 // все остальное, детали скрываются
)

// Error - ошибка приложения с классификацией.
// Message безопасно показывать клиенту, Err сохраняется только для логов.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Op != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New создает ошибку без причины.
func New(kind Kind, op, message string) error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap оборачивает err. Возвращает nil, если err == nil.
// Пустой message заменяется стандартным текстом для kind.
func Wrap(err error, kind Kind, op, message string) error {
	if err == nil {
		return nil
	}
	if message == "" {
		message = DefaultMessage(kind)
	}
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// WithOp добавляет операцию к уже классифицированной ошибке, сохраняя ее вид и сообщение.
func WithOp(err error, op string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return &Error{Kind: e.Kind, Op: op, Message: e.Message, Err: err}
	}
	return &Error{Kind: KindInternal, Op: op, Message: PublicMessage(err), Err: err}
}

// KindOf извлекает вид ошибки. Для неклассифицированных ошибок возвращает KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage возвращает текст, который можно отдать клиенту.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal && e.Message != "" {
		return e.Message
	}
	return defaultMessages[KindInternal]
}

// IsRetryable сообщает, имеет ли смысл повторить запрос позже.
func IsRetryable(err error) bool {
	return KindOf(err) == KindTransient
}

// DefaultMessage возвращает стандартный текст для вида ошибки.
func DefaultMessage(kind Kind) string {
	if msg, ok := defaultMessages[kind]; ok {
		return msg
	}
	return defaultMessages[KindInternal]
}

var defaultMessages = map[Kind]string{
	KindTransient:     "photo storage is temporarily unavailable, try again later",
	KindPermission:    "access to photo storage was denied",
	KindNotFound:      "photo storage was not found",
	KindLimitExceeded: "photo listing exceeds the configured limit",
	KindInvalid:       "invalid request",
	KindInternal:      "an internal error occurred",
}
