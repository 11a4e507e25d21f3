// Package apperr описывает таксономию ошибок бизнес-уровня и их отображение в HTTP-статусы.
//
// Сервисы переводят ошибки хранилища в *Error с одним из Kind, HTTP-слой
// по Kind выбирает код ответа, а Message показывает пользователю.
package apperr

import (
	"errors"
	"net/http"
)

// Kind — класс ошибки.
type Kind int

const (
	// KindInternal — непредвиденная ошибка (500).
	KindInternal Kind = iota
	// KindValidation — некорректные входные данные (400).
	KindValidation
	// KindDuplicateEmail — email уже занят (400).
	KindDuplicateEmail
	// KindInvalidCredentials — неверный email или пароль (401).
	KindInvalidCredentials
	// KindNotFound — запрошенный объект не найден (404).
	KindNotFound
	// KindUnknownCustomer — покупатель из webhook не сопоставлен с пользователем (404).
	KindUnknownCustomer
	// KindStoreUnavailable — хранилище недоступно или не настроено (503).
	KindStoreUnavailable
)

// String возвращает машиночитаемое имя класса.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDuplicateEmail:
		return "duplicate_email"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindNotFound:
		return "not_found"
	case KindUnknownCustomer:
		return "unknown_customer"
	case KindStoreUnavailable:
		return "store_unavailable"
	default:
		return "internal"
	}
}

// Error — ошибка бизнес-уровня с классом, сообщением для пользователя и исходной причиной.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New создает ошибку заданного класса.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap создает ошибку заданного класса, сохраняя причину.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Validation — сокращение для New(KindValidation, msg).
func Validation(msg string) *Error {
	return New(KindValidation, msg)
}

// Internal — сокращение для Wrap(KindInternal, msg, err).
func Internal(msg string, err error) *Error {
	return Wrap(KindInternal, msg, err)
}

// KindOf возвращает класс ошибки. Ошибки вне таксономии считаются внутренними.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is сообщает, относится ли ошибка к классу kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message возвращает текст для пользователя. Детали внутренних ошибок не раскрываются.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return "internal error"
}

// HTTPStatus возвращает HTTP-код для ошибки.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindDuplicateEmail:
		return http.StatusBadRequest
	case KindInvalidCredentials:
		return http.StatusUnauthorized
	case KindNotFound, KindUnknownCustomer:
		return http.StatusNotFound
	case KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
