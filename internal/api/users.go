package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pribylovaa/dashboard-client/internal/apiclient"
	"github.com/pribylovaa/dashboard-client/internal/models"
	"github.com/pribylovaa/dashboard-client/internal/session"
)

type UsersAPI struct {
	c     *apiclient.Client
	store session.Store
	files *FilesAPI
}

// Me загружает текущего пользователя и обновляет профиль в сессии.
func (u *UsersAPI) Me(ctx context.Context) (*models.User, error) {
	const op = "api.Users.Me"

	data, err := u.c.Get(ctx, "/users/me", nil)
	if err != nil {
		return nil, err
	}

	user, err := models.NormalizeUser(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := u.store.SetUser(ctx, user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &user, nil
}

func (u *UsersAPI) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (json.RawMessage, error) {
	return u.c.Put(ctx, "/users/me", req)
}

func (u *UsersAPI) ChangePassword(ctx context.Context, req models.ChangePasswordRequest) (json.RawMessage, error) {
	return u.c.Put(ctx, "/users/me/password", req)
}

// Export — выгрузка всех данных пользователя; формат определяет бэкенд.
func (u *UsersAPI) Export(ctx context.Context) (json.RawMessage, error) {
	return u.c.Get(ctx, "/users/me/export", nil)
}

// UploadPhoto загружает изображение и записывает его URL в профиль.
func (u *UsersAPI) UploadPhoto(ctx context.Context, fileName string, content []byte) (*models.UploadedImage, error) {
	img, err := u.files.UploadImage(ctx, fileName, content)
	if err != nil {
		return nil, err
	}

	if _, err := u.c.Put(ctx, "/users/me/settings/profile", map[string]string{"photo_url": img.URL}); err != nil {
		return nil, err
	}

	return img, nil
}
