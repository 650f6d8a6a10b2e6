package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/pribylovaa/dashboard-client/internal/apiclient"
	"github.com/pribylovaa/dashboard-client/internal/models"
	"github.com/pribylovaa/dashboard-client/internal/session"
)

type AuthAPI struct {
	c     *apiclient.Client
	store session.Store
}

func (a *AuthAPI) Signup(ctx context.Context, req models.SignupRequest) (json.RawMessage, error) {
	return a.c.Post(ctx, "/auth/signup", req)
}

// Login выполняет вход и сохраняет в сессию токены и нормализованный профиль.
func (a *AuthAPI) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error) {
	data, err := a.c.Post(ctx, "/auth/login", req)
	if err != nil {
		return nil, err
	}

	return saveSession(ctx, a.store, "api.Auth.Login", data, "user")
}

// Logout сообщает бэкенду о выходе и очищает сессию при любом исходе вызова.
func (a *AuthAPI) Logout(ctx context.Context) error {
	const op = "api.Auth.Logout"

	_, callErr := a.c.Request(ctx, "/auth/logout", apiclient.RequestOptions{Method: http.MethodPost})

	// ctx мог отменить слушатель истечения сессии; очистка всё равно нужна.
	if err := a.store.Clear(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	// Истёкшая сессия при выходе — не ошибка: результат тот же.
	if errors.Is(callErr, apiclient.ErrSessionExpired) {
		return nil
	}

	return callErr
}

func (a *AuthAPI) ForgotPassword(ctx context.Context, email string) (json.RawMessage, error) {
	return a.c.Post(ctx, "/auth/forgot-password", models.ForgotPasswordRequest{Email: email})
}

func (a *AuthAPI) Verify(ctx context.Context, req models.VerifyRequest) (json.RawMessage, error) {
	return a.c.Post(ctx, "/auth/verify", req)
}

// Refresh — явный обмен refresh-токена (см. apiclient.Client.RefreshToken).
func (a *AuthAPI) Refresh(ctx context.Context) bool {
	return a.c.RefreshToken(ctx)
}

// saveSession сохраняет токены и профиль из ответа логина.
// userKey — поле с профилем: "user" для пользователей, "admin" для администраторов.
func saveSession(ctx context.Context, store session.Store, op string, data json.RawMessage, userKey string) (*models.LoginResult, error) {
	pair := models.TokensFrom(data)
	if pair.AccessToken == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNoAccessToken)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rawUser, ok := fields[userKey]
	if !ok {
		rawUser = data
	}

	user, err := models.NormalizeUser(rawUser)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if userKey == "admin" && user.Role == models.RoleUser {
		user.Role = models.RoleAdmin
	}

	if err := store.SetTokens(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := store.SetUser(ctx, user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.LoginResult{User: user, Tokens: pair}, nil
}
