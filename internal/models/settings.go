package models

import "encoding/json"

// Settings — агрегированные настройки пользователя. Разделы отдаются как есть:
// их схема принадлежит бэкенду, клиент их только пересылает.
type Settings struct {
	Profile       json.RawMessage `json:"profile,omitempty"`
	Security      json.RawMessage `json:"security,omitempty"`
	Privacy       json.RawMessage `json:"privacy,omitempty"`
	Notifications json.RawMessage `json:"notifications,omitempty"`
	Preferences   json.RawMessage `json:"preferences,omitempty"`
}

type ActiveSession struct {
	ID         string `json:"id"`
	DeviceName string `json:"device_name,omitempty"`
	IPAddress  string `json:"ip_address,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
	Current    bool   `json:"current"`
	LastSeenAt string `json:"last_seen_at,omitempty"`
}

type ConnectedAccountRequest struct {
	Provider    string `json:"provider"`
	ProviderID  string `json:"provider_id,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
}

type AccountDeletionRequest struct {
	DaysUntilDeletion int `json:"days_until_deletion"`
}
