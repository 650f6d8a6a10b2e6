package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/pribylovaa/dashboard-client/internal/apiclient"
	"github.com/pribylovaa/dashboard-client/internal/models"
	"github.com/pribylovaa/dashboard-client/internal/session"
)

const settingsPath = "/users/me/settings"

type SettingsAPI struct {
	c     *apiclient.Client
	store session.Store
}

func (s *SettingsAPI) Get(ctx context.Context) (*models.Settings, error) {
	data, err := s.c.Get(ctx, settingsPath, nil)
	if err != nil {
		return nil, err
	}

	v, err := decode[models.Settings]("api.Settings.Get", data)
	if err != nil {
		return nil, err
	}

	return &v, nil
}

func (s *SettingsAPI) Sessions(ctx context.Context) ([]models.ActiveSession, error) {
	data, err := s.c.Get(ctx, settingsPath+"/sessions", nil)
	if err != nil {
		return nil, err
	}

	return decodeList[models.ActiveSession]("api.Settings.Sessions", data, "sessions")
}

func (s *SettingsAPI) LogoutAllDevices(ctx context.Context) (json.RawMessage, error) {
	return s.c.Post(ctx, settingsPath+"/sessions/logout-all", struct{}{})
}

func (s *SettingsAPI) UpdateProfile(ctx context.Context, v any) (json.RawMessage, error) {
	return s.c.Put(ctx, settingsPath+"/profile", v)
}

func (s *SettingsAPI) UpdateSecurity(ctx context.Context, v any) (json.RawMessage, error) {
	return s.c.Put(ctx, settingsPath+"/security", v)
}

func (s *SettingsAPI) UpdatePrivacy(ctx context.Context, v any) (json.RawMessage, error) {
	return s.c.Put(ctx, settingsPath+"/privacy", v)
}

func (s *SettingsAPI) UpdateNotifications(ctx context.Context, v any) (json.RawMessage, error) {
	return s.c.Put(ctx, settingsPath+"/notifications", v)
}

func (s *SettingsAPI) UpdatePreferences(ctx context.Context, v any) (json.RawMessage, error) {
	return s.c.Put(ctx, settingsPath+"/preferences", v)
}

func (s *SettingsAPI) AddConnectedAccount(ctx context.Context, req models.ConnectedAccountRequest) (json.RawMessage, error) {
	return s.c.Post(ctx, settingsPath+"/connected-accounts", req)
}

// RemoveConnectedAccount — DELETE с телом {"provider": ...}.
func (s *SettingsAPI) RemoveConnectedAccount(ctx context.Context, provider string) (json.RawMessage, error) {
	return s.c.Request(ctx, settingsPath+"/connected-accounts", apiclient.RequestOptions{
		Method: http.MethodDelete,
		Body:   models.ConnectedAccountRequest{Provider: provider},
	})
}

func (s *SettingsAPI) DeactivateAccount(ctx context.Context) (json.RawMessage, error) {
	return s.c.Post(ctx, settingsPath+"/account/deactivate", struct{}{})
}

func (s *SettingsAPI) ReactivateAccount(ctx context.Context) (json.RawMessage, error) {
	return s.c.Post(ctx, settingsPath+"/account/reactivate", struct{}{})
}

func (s *SettingsAPI) RequestAccountDeletion(ctx context.Context, daysUntilDeletion int) (json.RawMessage, error) {
	return s.c.Post(ctx, settingsPath+"/account/delete", models.AccountDeletionRequest{DaysUntilDeletion: daysUntilDeletion})
}

// SetNotificationsEnabled — локальный флаг поллера уведомлений (без сетевого вызова).
func (s *SettingsAPI) SetNotificationsEnabled(ctx context.Context, enabled bool) error {
	return s.setFlag(ctx, "api.Settings.SetNotificationsEnabled", session.KeyNotificationsEnabled, enabled)
}

// SetMessagingEnabled — локальный флаг поллера сообщений.
func (s *SettingsAPI) SetMessagingEnabled(ctx context.Context, enabled bool) error {
	return s.setFlag(ctx, "api.Settings.SetMessagingEnabled", session.KeyMessagingEnabled, enabled)
}

func (s *SettingsAPI) setFlag(ctx context.Context, op, key string, enabled bool) error {
	if err := s.store.Set(ctx, key, strconv.FormatBool(enabled)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
