package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.Request(ctx, path, RequestOptions{Method: http.MethodGet, Query: query})
}

func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Request(ctx, path, RequestOptions{Method: http.MethodPost, Body: body})
}

func (c *Client) Put(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Request(ctx, path, RequestOptions{Method: http.MethodPut, Body: body})
}

func (c *Client) Patch(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Request(ctx, path, RequestOptions{Method: http.MethodPatch, Body: body})
}

func (c *Client) Delete(ctx context.Context, path string) (json.RawMessage, error) {
	return c.Request(ctx, path, RequestOptions{Method: http.MethodDelete})
}

// Decode разбирает data в T. Несовпадение формы — ошибка протокола.
func Decode[T any](raw json.RawMessage) (T, error) {
	const op = "apiclient.Decode"

	var v T
	if len(raw) == 0 {
		return v, nil
	}

	if err := json.Unmarshal(raw, &v); err != nil {
		return v, protocolError(op, 0, err)
	}

	return v, nil
}

// Do — Request + Decode.
func Do[T any](ctx context.Context, c *Client, path string, opts RequestOptions) (T, error) {
	raw, err := c.Request(ctx, path, opts)
	if err != nil {
		var zero T
		return zero, err
	}

	return Decode[T](raw)
}
