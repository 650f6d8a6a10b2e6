package stubserver

import (
	"encoding/json"
	"errors"
	"net/http"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrEmailTaken         = errors.New("email already taken")
	ErrNotFound           = errors.New("not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrForbidden          = errors.New("forbidden")

	errInternal = errors.New("internal")
)

// apiError — поле error конверта.
type apiError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
	Count   *int      `json:"count,omitempty"`
}

// toHTTP маппит доменную ошибку в HTTP-статус и код конверта.
// Неизвестные ошибки — 500/internal без деталей.
func toHTTP(err error) (int, apiError) {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized, apiError{Code: "invalid_credentials", Message: "Invalid email or password"}
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenRevoked):
		return http.StatusUnauthorized, apiError{Code: "unauthorized", Message: "Invalid or expired token"}
	case errors.Is(err, ErrEmailTaken):
		return http.StatusConflict, apiError{Code: "email_taken", Message: "Email already registered"}
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, apiError{Code: "not_found", Message: "Not found"}
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest, apiError{Code: "invalid_argument", Message: "Invalid argument"}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, apiError{Code: "forbidden", Message: "Forbidden"}
	default:
		return http.StatusInternalServerError, apiError{Code: "internal", Message: "Internal error"}
	}
}

// writeError пишет конверт ошибки и прокидывает request_id из X-Request-Id.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := toHTTP(err)
	body.RequestID = r.Header.Get("X-Request-Id")

	writeJSON(w, status, envelope{Success: false, Error: &body})
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// writeCount — счётчики непрочитанного отдаются в корне: {"success":true,"count":N}.
func writeCount(w http.ResponseWriter, n int) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Count: &n})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return ErrInvalidArgument
	}

	return nil
}
