package apiclient

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
)

// Envelope — конверт ответа `{success, data, error}`.
// Message встречается у части эндпойнтов на верхнем уровне; count
// (счётчики непрочитанного) читает models.CountFrom из Response.Raw.
type Envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *EnvelopeError  `json:"error"`
	Message json.RawMessage `json:"message"`
}

// EnvelopeError — поле error конверта. Бэкенд иногда отдаёт его строкой.
type EnvelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *EnvelopeError) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		e.Message = s
		return nil
	}

	type plain EnvelopeError
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		// Неизвестная форма поля error не должна ломать разбор конверта.
		return nil
	}

	*e = EnvelopeError(p)
	return nil
}

// parseEnvelope разбирает тело; ok=false — валидный JSON, но не объект.
func parseEnvelope(body []byte) (Envelope, bool) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, false
	}

	return env, true
}

// errorMessage — error.message -> error.code -> message -> текст статуса.
func (env Envelope) errorMessage(status int) (msg, code string) {
	if env.Error != nil {
		code = env.Error.Code
		if m := strings.TrimSpace(env.Error.Message); m != "" {
			return m, code
		}
		if c := strings.TrimSpace(env.Error.Code); c != "" {
			return c, code
		}
	}

	if m := rawString(env.Message); m != "" {
		return m, code
	}

	if t := http.StatusText(status); t != "" {
		return t, code
	}

	return "Request failed", code
}

// data — полезная нагрузка успешного ответа: data из конверта,
// либо всё тело, если поля success нет.
func (env Envelope) data(body []byte) json.RawMessage {
	if env.Success == nil {
		return json.RawMessage(body)
	}

	if isNull(env.Data) {
		return json.RawMessage("null")
	}

	return env.Data
}

func rawString(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}

	return strings.TrimSpace(s)
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}
