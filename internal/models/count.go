package models

import (
	"bytes"
	"encoding/json"
)

// CountFrom достаёт счётчик непрочитанного.
// Бэкенд отдаёт его то в data.count, то числом в data, то в корне ответа ("count").
func CountFrom(data, raw json.RawMessage) int {
	if n, ok := countField(data); ok {
		return n
	}

	var direct int
	if !isNull(data) && json.Unmarshal(data, &direct) == nil {
		return direct
	}

	if n, ok := countField(raw); ok {
		return n
	}

	return 0
}

func countField(raw json.RawMessage) (int, bool) {
	if isNull(raw) {
		return 0, false
	}

	var v struct {
		Count *int `json:"count"`
	}
	if err := json.Unmarshal(raw, &v); err != nil || v.Count == nil {
		return 0, false
	}

	return *v.Count, true
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}
