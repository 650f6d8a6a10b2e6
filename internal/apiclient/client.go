// apiclient — HTTP-клиент REST-бэкенда дашборда.
//
// Клиент:
//   - подставляет Bearer-токен из session.Store в каждый запрос;
//   - разбирает конверт {success, data, error} и возвращает data;
//   - на 401 (кроме auth-эндпойнтов) один раз обновляет токен и повторяет запрос;
//   - если refresh не удался, очищает сессию и возвращает ErrSessionExpired;
//   - приводит все сбои к *Error (см. errors.go).
//
// Client безопасен для конкурентного использования; параллельные refresh
// схлопываются в один сетевой вызов.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/pribylovaa/dashboard-client/internal/metrics"
	logctx "github.com/pribylovaa/dashboard-client/internal/pkg/log"
	"github.com/pribylovaa/dashboard-client/internal/pkg/redact"
	"github.com/pribylovaa/dashboard-client/internal/session"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "dashboard-cli"
	maxBodyBytes     = 10 << 20
)

var (
	ErrEmptyBaseURL = errors.New("base url is empty")
	ErrNilStore     = errors.New("session store is nil")
	errEmptyBody    = errors.New("empty response body")
)

// DefaultAuthPaths — эндпойнты, чей 401 означает «неверные данные», а не
// «истёк токен»; для них refresh не выполняется.
var DefaultAuthPaths = []string{
	"/auth/login",
	"/auth/signup",
	"/auth/verify",
	"/auth/refresh",
	"/admin/login",
	"/admin/verify-code",
}

// Options позволяет переопределить зависимости клиента.
type Options struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	// Timeout на один HTTP-обмен, если у ctx нет дедлайна. 0 — 15s, <0 — без таймаута.
	Timeout   time.Duration
	UserAgent string
	// AuthPaths заменяет DefaultAuthPaths, если не пуст.
	AuthPaths []string
	// OnSessionExpired вызывается после очистки сессии при неудачном refresh.
	OnSessionExpired func(ctx context.Context)
	Metrics          *metrics.Client
}

type Client struct {
	baseURL   string
	scheme    string
	store     session.Store
	http      *http.Client
	log       *slog.Logger
	timeout   time.Duration
	userAgent string
	authPaths map[string]struct{}
	onExpired func(ctx context.Context)
	metrics   *metrics.Client

	refreshGroup singleflight.Group
}

// New создаёт клиент. baseURL склеивается с путём запроса как строка
// (например, "http://localhost:8080/v1" + "/users/me").
func New(baseURL string, store session.Store, opts Options) (*Client, error) {
	const op = "apiclient.New"

	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyBaseURL)
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: parse base url: %w", op, err)
	}

	if store == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNilStore)
	}

	c := &Client{
		baseURL:   baseURL,
		scheme:    strings.ToLower(parsed.Scheme),
		store:     store,
		http:      opts.HTTPClient,
		log:       opts.Logger,
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		onExpired: opts.OnSessionExpired,
		metrics:   opts.Metrics,
	}

	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if c.timeout == 0 {
		c.timeout = defaultTimeout
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}

	paths := opts.AuthPaths
	if len(paths) == 0 {
		paths = DefaultAuthPaths
	}
	c.authPaths = make(map[string]struct{}, len(paths))
	for _, p := range paths {
		c.authPaths[p] = struct{}{}
	}

	return c, nil
}

// BaseURL — нормализованный базовый адрес (без завершающего "/").
func (c *Client) BaseURL() string { return c.baseURL }

// Store — хранилище сессии, с которым работает клиент.
func (c *Client) Store() session.Store { return c.store }

// Response — разобранный успешный ответ.
type Response struct {
	Status int
	Header http.Header
	// Data — поле data конверта либо всё тело, если success отсутствует.
	Data json.RawMessage
	// Raw — тело ответа целиком (пусто для не-JSON ответов).
	Raw json.RawMessage
}

// Request выполняет вызов и возвращает data конверта.
func (c *Client) Request(ctx context.Context, path string, opts RequestOptions) (json.RawMessage, error) {
	resp, err := c.Send(ctx, path, opts)
	if err != nil {
		return nil, err
	}

	return resp.Data, nil
}

// Send — Request с доступом к статусу, заголовкам и полному телу ответа.
func (c *Client) Send(ctx context.Context, path string, opts RequestOptions) (*Response, error) {
	const op = "apiclient.Request"

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	body, err := encodeBody(opts.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: encode body: %w", op, err)
	}

	var token string
	if !opts.Anonymous {
		token, err = c.store.AccessToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	raw, err := c.exchange(ctx, op, method, path, opts, body, token)
	if err != nil {
		return nil, err
	}

	// 401 проверяется до разбора тела: refresh запускается и для не-JSON ответа.
	if raw.status == http.StatusUnauthorized && token != "" && !c.isAuthPath(path) {
		retryToken, err := c.recoverSession(ctx, token)
		if err != nil {
			return nil, err
		}

		raw, err = c.exchange(ctx, op, method, path, opts, body, retryToken)
		if err != nil {
			return nil, err
		}
	}

	return decode(op, raw)
}

// recoverSession возвращает токен для повторного запроса после 401.
// Если токен уже обновил параллельный вызов, refresh не повторяется.
func (c *Client) recoverSession(ctx context.Context, sent string) (string, error) {
	const op = "apiclient.Request"

	current, err := c.store.AccessToken(ctx)
	if err == nil && current != "" && current != sent {
		return current, nil
	}

	if c.RefreshToken(ctx) {
		current, err = c.store.AccessToken(ctx)
		if err == nil && current != "" {
			return current, nil
		}
	}

	c.expire(ctx)

	return "", &Error{
		Kind:    KindSessionExpired,
		Op:      op,
		Status:  http.StatusUnauthorized,
		Message: "Session expired",
		Err:     ErrSessionExpired,
	}
}

// expire очищает сессию и уведомляет слушателя.
func (c *Client) expire(ctx context.Context) {
	l := c.logger(ctx)
	if err := c.store.Clear(ctx); err != nil {
		l.Warn("session_clear_failed", slog.String("err", err.Error()))
	}

	l.Warn("session_expired")

	if c.onExpired != nil {
		c.onExpired(ctx)
	}
}

// logger — логгер из контекста вызывающего, иначе Options.Logger.
func (c *Client) logger(ctx context.Context) *slog.Logger {
	return logctx.FromOr(ctx, c.log)
}

func (c *Client) isAuthPath(path string) bool {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	_, ok := c.authPaths[path]
	return ok
}

type rawResponse struct {
	status      int
	header      http.Header
	contentType string
	body        []byte
}

// exchange — один HTTP-обмен: заголовки, таймаут, лог, метрики.
// Ошибка возвращается только если ответ не получен.
func (c *Client) exchange(ctx context.Context, op, method, path string, opts RequestOptions, body *encodedBody, token string) (*rawResponse, error) {
	if c.timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}
	}

	fullURL := c.url(path, opts.Query)

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body.reader())
	if err != nil {
		return nil, c.networkError(op, fullURL, err)
	}

	rid := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", rid)
	if body != nil {
		req.Header.Set("Content-Type", body.contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, vs := range opts.Headers {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	ctx = logctx.With(logctx.Into(ctx, c.logger(ctx)),
		slog.String("request_id", req.Header.Get("X-Request-Id")),
		slog.String("method", method),
		slog.String("path", path),
	)
	l := logctx.From(ctx)
	if auth := req.Header.Get("Authorization"); auth != "" {
		l.Debug("http_auth", slog.String("authorization", redact.Authorization(auth)))
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		dur := time.Since(start)
		c.metrics.ObserveRequest(method, 0, dur)
		l.LogAttrs(ctx, slog.LevelWarn, "http",
			slog.String("err", err.Error()),
			slog.Duration("dur", dur),
		)
		return nil, c.networkError(op, fullURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	dur := time.Since(start)
	c.metrics.ObserveRequest(method, resp.StatusCode, dur)
	if err != nil {
		l.LogAttrs(ctx, slog.LevelWarn, "http",
			slog.Int("status", resp.StatusCode),
			slog.String("err", err.Error()),
			slog.Duration("dur", dur),
		)
		return nil, c.networkError(op, fullURL, err)
	}

	l.LogAttrs(ctx, slog.LevelInfo, "http",
		slog.Int("status", resp.StatusCode),
		slog.Duration("dur", dur),
		slog.Int("bytes", len(data)),
	)

	return &rawResponse{
		status:      resp.StatusCode,
		header:      resp.Header,
		contentType: resp.Header.Get("Content-Type"),
		body:        data,
	}, nil
}

func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) == 0 {
		return u
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	return u + sep + query.Encode()
}

// networkError добавляет к ошибке транспорта подсказку для пользователя.
func (c *Client) networkError(op, fullURL string, err error) *Error {
	var msg string
	switch {
	case c.scheme != "http" && c.scheme != "https":
		msg = fmt.Sprintf("Network error: cross-origin or scheme restriction, %q is not an http(s) URL. Serve the backend over http(s)", c.baseURL)
	case errors.Is(err, context.DeadlineExceeded):
		msg = fmt.Sprintf("Network error: request to %s timed out", fullURL)
	default:
		msg = fmt.Sprintf("Network error: backend server is unreachable at %s", fullURL)
	}

	return &Error{Kind: KindNetwork, Op: op, Message: msg, Err: err}
}

// decode применяет правила конверта к полученному ответу.
func decode(op string, raw *rawResponse) (*Response, error) {
	ok := raw.status >= 200 && raw.status < 300

	if !isJSON(raw.contentType) {
		if !ok {
			text := strings.TrimSpace(string(raw.body))
			if text == "" {
				text = "Unknown error"
			}
			return nil, &Error{Kind: KindServer, Op: op, Status: raw.status, Message: text, Err: ErrServer}
		}

		return &Response{Status: raw.status, Header: raw.header, Data: json.RawMessage("{}")}, nil
	}

	body := bytes.TrimSpace(raw.body)
	if len(body) == 0 {
		return nil, protocolError(op, raw.status, errEmptyBody)
	}

	env, isObject := parseEnvelope(body)
	if !isObject {
		var v any
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, protocolError(op, raw.status, err)
		}
	}

	if !ok {
		msg, code := env.errorMessage(raw.status)
		return nil, &Error{Kind: KindRequest, Op: op, Status: raw.status, Code: code, Message: msg, Err: ErrRequest}
	}

	data := json.RawMessage(body)
	if isObject {
		data = env.data(body)
	}

	return &Response{Status: raw.status, Header: raw.header, Data: data, Raw: json.RawMessage(body)}, nil
}

func protocolError(op string, status int, err error) *Error {
	return &Error{
		Kind:    KindProtocol,
		Op:      op,
		Status:  status,
		Message: "Invalid response from server. Please try again.",
		Err:     err,
	}
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
