package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pribylovaa/dashboard-client/internal/apiclient"
	"github.com/pribylovaa/dashboard-client/internal/models"
)

// ErrNoStoredName — бэкенд принял файл, но не вернул его имя.
var ErrNoStoredName = errors.New("upload completed, but image path is missing")

type FilesAPI struct {
	c *apiclient.Client
}

// UploadImage — multipart POST /files/upload/image (поле "file").
func (f *FilesAPI) UploadImage(ctx context.Context, fileName string, content []byte) (*models.UploadedImage, error) {
	const op = "api.Files.UploadImage"

	data, err := f.c.Request(ctx, "/files/upload/image", apiclient.RequestOptions{
		Method: http.MethodPost,
		Body: &apiclient.Multipart{
			Files: []apiclient.FilePart{{Field: "file", FileName: fileName, Content: content}},
		},
	})
	if err != nil {
		return nil, err
	}

	img, err := decode[models.UploadedImage](op, data)
	if err != nil {
		return nil, err
	}

	if img.StoredName == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNoStoredName)
	}

	img.URL = origin(f.c.BaseURL()) + "/uploads/" + url.PathEscape(img.StoredName)

	return &img, nil
}

// origin — scheme://host базового адреса (без "/v1").
func origin(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return baseURL
	}

	return u.Scheme + "://" + u.Host
}
