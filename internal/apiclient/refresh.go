package apiclient

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/pribylovaa/dashboard-client/internal/metrics"
	"github.com/pribylovaa/dashboard-client/internal/models"
	"github.com/pribylovaa/dashboard-client/internal/pkg/redact"
)

// RefreshPath — эндпойнт обмена refresh-токена на новую пару.
const RefreshPath = "/auth/refresh"

// RefreshToken обменивает сохранённый refresh-токен на новый access-токен.
//
// Контракт:
//  1. нет refresh-токена — false без сетевого вызова;
//  2. успех только при 2xx, success:true и непустом data.access_token | data.token;
//     тогда пара сохраняется через SetTokens (без нового refresh — остаётся старый);
//  3. любая неудача — false, хранилище не меняется.
//
// Параллельные вызовы ждут один общий запрос и получают его результат.
// Запрос не отменяется вместе с ctx вызывающего, чтобы отмена одного
// ожидающего не ломала refresh остальным.
func (c *Client) RefreshToken(ctx context.Context) bool {
	v, _, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx)), nil
	})

	ok, _ := v.(bool)
	return ok
}

func (c *Client) refresh(ctx context.Context) bool {
	const op = "apiclient.RefreshToken"

	l := c.logger(ctx).With(slog.String("op", op))

	current, err := c.store.RefreshToken(ctx)
	if err != nil {
		l.Warn("refresh_token_read_failed", slog.String("err", err.Error()))
		c.metrics.ObserveRefresh(metrics.RefreshFailed)
		return false
	}

	if current == "" {
		l.Debug("refresh_skipped_no_token")
		c.metrics.ObserveRefresh(metrics.RefreshSkipped)
		return false
	}

	body, err := encodeBody(models.RefreshRequest{RefreshToken: current})
	if err != nil {
		c.metrics.ObserveRefresh(metrics.RefreshFailed)
		return false
	}

	raw, err := c.exchange(ctx, op, http.MethodPost, RefreshPath, RequestOptions{}, body, "")
	if err != nil {
		l.Warn("refresh_failed", slog.String("err", err.Error()))
		c.metrics.ObserveRefresh(metrics.RefreshFailed)
		return false
	}

	pair, ok := refreshedTokens(raw)
	if !ok {
		l.Warn("refresh_rejected", slog.Int("status", raw.status))
		c.metrics.ObserveRefresh(metrics.RefreshFailed)
		return false
	}

	if pair.RefreshToken == "" {
		pair.RefreshToken = current
	}

	if err := c.store.SetTokens(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		l.Warn("refresh_store_failed", slog.String("err", err.Error()))
		c.metrics.ObserveRefresh(metrics.RefreshFailed)
		return false
	}

	l.Info("token_refreshed",
		slog.String("access_token", redact.Token(pair.AccessToken)),
		slog.Bool("rotated", pair.RefreshToken != current),
	)
	c.metrics.ObserveRefresh(metrics.RefreshOK)

	return true
}

func refreshedTokens(raw *rawResponse) (models.TokenPair, bool) {
	if raw.status < 200 || raw.status >= 300 || !isJSON(raw.contentType) {
		return models.TokenPair{}, false
	}

	env, ok := parseEnvelope(raw.body)
	if !ok || env.Success == nil || !*env.Success {
		return models.TokenPair{}, false
	}

	pair := models.TokensFrom(env.Data)
	if pair.AccessToken == "" {
		return models.TokenPair{}, false
	}

	return pair, true
}
