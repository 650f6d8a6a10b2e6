package apiclient

import (
	"errors"
	"fmt"
)

// Kind — класс ошибки обращения к бэкенду.
type Kind uint8

const (
	// KindNetwork — ответ не получен (соединение, DNS, таймаут).
	KindNetwork Kind = iota + 1
	// KindProtocol — ожидался JSON, пришло что-то другое. Не повторяется.
	KindProtocol
	// KindSessionExpired — 401 и refresh не удался; сессия очищена.
	KindSessionExpired
	// KindRequest — не-2xx с разобранным конвертом.
	KindRequest
	// KindServer — не-2xx с не-JSON телом.
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindProtocol:
		return "protocol"
	case KindSessionExpired:
		return "session_expired"
	case KindRequest:
		return "request"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Сентинелы для errors.Is; конкретная ошибка всегда *Error.
var (
	ErrNetwork        = errors.New("network error")
	ErrProtocol       = errors.New("invalid response from server")
	ErrSessionExpired = errors.New("session expired")
	ErrRequest        = errors.New("request failed")
	ErrServer         = errors.New("server error")
)

// Error — единая ошибка клиента.
// Message — текст для показа пользователю; Status и Code есть только у HTTP-ошибок.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "api client error"
	}

	if e.Message != "" {
		return e.Message
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is сопоставляет ошибку с сентинелом её Kind.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}

	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrProtocol:
		return e.Kind == KindProtocol
	case ErrSessionExpired:
		return e.Kind == KindSessionExpired
	case ErrRequest:
		return e.Kind == KindRequest
	case ErrServer:
		return e.Kind == KindServer
	}

	return false
}

// StatusOf возвращает HTTP-статус из цепочки ошибок или 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}

	return 0
}

// KindOf возвращает Kind из цепочки ошибок или 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return 0
}
