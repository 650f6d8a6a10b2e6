package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pribylovaa/dashboard-client/internal/apiclient"
	"github.com/pribylovaa/dashboard-client/internal/models"
	"github.com/pribylovaa/dashboard-client/internal/session"
)

const adminUsersPath = "/admin/users"

type AdminAPI struct {
	c     *apiclient.Client
	store session.Store
}

// Login — вход администратора; профиль приходит в data.admin.
func (a *AdminAPI) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error) {
	data, err := a.c.Post(ctx, "/admin/login", req)
	if err != nil {
		return nil, err
	}

	return saveSession(ctx, a.store, "api.Admin.Login", data, "admin")
}

// VerifyCode проверяет код приглашения (публичный эндпойнт, без токена).
func (a *AdminAPI) VerifyCode(ctx context.Context, code string) (json.RawMessage, error) {
	return a.c.Request(ctx, "/admin/verify-code", apiclient.RequestOptions{
		Method:    http.MethodPost,
		Body:      models.AdminVerifyRequest{VerificationCode: code},
		Anonymous: true,
	})
}

// Create — публичное создание администратора по проверенному коду.
func (a *AdminAPI) Create(ctx context.Context, req models.AdminCreateRequest) (json.RawMessage, error) {
	return a.c.Request(ctx, "/admin/create", apiclient.RequestOptions{
		Method:    http.MethodPost,
		Body:      req,
		Anonymous: true,
	})
}

// Users — список пользователей; каждая запись проходит models.NormalizeUser.
func (a *AdminAPI) Users(ctx context.Context) ([]models.User, error) {
	const op = "api.Admin.Users"

	data, err := a.c.Get(ctx, adminUsersPath, nil)
	if err != nil {
		return nil, err
	}

	raws, err := decodeList[json.RawMessage](op, data, "users")
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(raws))
	for _, raw := range raws {
		u, err := models.NormalizeUser(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		users = append(users, u)
	}

	return users, nil
}

func (a *AdminAPI) CreateUser(ctx context.Context, req models.AdminUserRequest) (json.RawMessage, error) {
	return a.c.Post(ctx, adminUsersPath, req)
}

func (a *AdminAPI) UpdateUser(ctx context.Context, id string, req models.AdminUserRequest) (json.RawMessage, error) {
	path, err := itemPath(adminUsersPath, id)
	if err != nil {
		return nil, fmt.Errorf("api.Admin.UpdateUser: %w", err)
	}

	return a.c.Put(ctx, path, req)
}

func (a *AdminAPI) DeleteUser(ctx context.Context, id string) error {
	path, err := itemPath(adminUsersPath, id)
	if err != nil {
		return fmt.Errorf("api.Admin.DeleteUser: %w", err)
	}

	_, err = a.c.Delete(ctx, path)
	return err
}

func (a *AdminAPI) Settings(ctx context.Context) (json.RawMessage, error) {
	return a.c.Get(ctx, "/admin/settings", nil)
}

func (a *AdminAPI) UpdateSettings(ctx context.Context, v any) (json.RawMessage, error) {
	return a.c.Put(ctx, "/admin/settings", v)
}
