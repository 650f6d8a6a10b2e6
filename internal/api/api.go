// api — ресурсные пространства имён поверх apiclient.
//
// Каждый метод — фиксированная пара (path, method) плюс сборка query.
// Ошибки apiclient (*apiclient.Error) возвращаются без обёртки, чтобы
// вызывающий показывал пользователю их Message; локальные сбои
// (хранилище, разбор ответа) оборачиваются в стиле "op: err".
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/pribylovaa/dashboard-client/internal/apiclient"
	"github.com/pribylovaa/dashboard-client/internal/session"
)

var (
	// ErrNoAccessToken — ответ логина не содержит access-токена.
	ErrNoAccessToken = errors.New("login response has no access token")
	// ErrEmptyID — пустой идентификатор ресурса в пути.
	ErrEmptyID = errors.New("empty resource id")
)

type API struct {
	Auth          *AuthAPI
	Users         *UsersAPI
	Settings      *SettingsAPI
	Dashboard     *DashboardAPI
	Messaging     *MessagingAPI
	Notifications *NotificationsAPI
	Search        *SearchAPI
	Admin         *AdminAPI
	Files         *FilesAPI
}

// New собирает все пространства имён над одним клиентом и хранилищем.
// store должен быть тем же, что передан в apiclient.New.
func New(c *apiclient.Client, store session.Store) *API {
	files := &FilesAPI{c: c}

	return &API{
		Auth:          &AuthAPI{c: c, store: store},
		Users:         &UsersAPI{c: c, store: store, files: files},
		Settings:      &SettingsAPI{c: c, store: store},
		Dashboard:     &DashboardAPI{c: c},
		Messaging:     &MessagingAPI{c: c},
		Notifications: &NotificationsAPI{c: c},
		Search:        &SearchAPI{c: c},
		Admin:         &AdminAPI{c: c, store: store},
		Files:         files,
	}
}

// decodeList разбирает список, который бэкенд отдаёт либо массивом,
// либо объектом с массивом под одним из ключей.
func decodeList[T any](op string, raw json.RawMessage, keys ...string) ([]T, error) {
	var list []T
	if err := json.Unmarshal(raw, &list); err == nil {
		if list == nil {
			list = []T{}
		}
		return list, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, k := range keys {
		v, ok := obj[k]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, &list); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if list == nil {
			list = []T{}
		}
		return list, nil
	}

	return []T{}, nil
}

func decode[T any](op string, raw json.RawMessage) (T, error) {
	v, err := apiclient.Decode[T](raw)
	if err != nil {
		return v, fmt.Errorf("%s: %w", op, err)
	}

	return v, nil
}

func itemPath(prefix, id string) (string, error) {
	if id == "" {
		return "", ErrEmptyID
	}

	return prefix + "/" + url.PathEscape(id), nil
}
