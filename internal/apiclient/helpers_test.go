package apiclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/dashboard-client/internal/models"
	"github.com/pribylovaa/dashboard-client/internal/session"
)

// capture — общий буфер записей для capHandler и его производных (With).
type capture struct {
	mu   sync.Mutex
	recs []capRecord
}

type capRecord struct {
	level slog.Level
	msg   string
	attrs map[string]any
}

type capHandler struct {
	c    *capture
	base []slog.Attr
}

func newCapLogger() (*slog.Logger, *capture) {
	c := &capture{}
	return slog.New(&capHandler{c: c}), c
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	out := make(map[string]any, len(h.base)+8)
	for _, a := range h.base {
		out[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})

	h.c.mu.Lock()
	h.c.recs = append(h.c.recs, capRecord{level: r.Level, msg: r.Message, attrs: out})
	h.c.mu.Unlock()

	return nil
}

func (h *capHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	base := make([]slog.Attr, 0, len(h.base)+len(attrs))
	base = append(base, h.base...)
	base = append(base, attrs...)
	return &capHandler{c: h.c, base: base}
}

func (h *capHandler) WithGroup(string) slog.Handler { return h }

func (c *capture) byMsg(msg string) []capRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []capRecord
	for _, r := range c.recs {
		if r.msg == msg {
			out = append(out, r)
		}
	}
	return out
}

func (c *capture) contains(s string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range c.recs {
		for _, v := range r.attrs {
			if fmt.Sprint(v) == s {
				return true
			}
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func newStore(t *testing.T, access, refresh string) *session.KVStore {
	t.Helper()

	s := session.NewMemory()
	if access != "" || refresh != "" {
		require.NoError(t, s.SetTokens(context.Background(), access, refresh))
	}
	return s
}

func newClient(t *testing.T, baseURL string, store session.Store, opts Options) *Client {
	t.Helper()

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c, err := New(baseURL, store, opts)
	require.NoError(t, err)
	return c
}

func modelsUser() models.User {
	return models.User{ID: "u1", Name: "Ann", Email: "ann@example.com", Role: models.RoleUser}
}
