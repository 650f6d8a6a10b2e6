package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/dashboard-client/internal/metrics"
	"github.com/pribylovaa/dashboard-client/internal/session"
	"github.com/pribylovaa/dashboard-client/internal/session/mocks"
)

// backend — минимальный бэкенд: /users/me принимает только validAccess,
// /auth/refresh отвечает refreshReply.
type backend struct {
	validAccess  string
	refreshReply func(w http.ResponseWriter, r *http.Request)

	meHits      int32
	refreshHits int32
}

func (b *backend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&b.meHits, 1)
		if r.Header.Get("Authorization") != "Bearer "+b.validAccess {
			writeJSON(w, http.StatusUnauthorized, `{"success":false,"error":{"code":"unauthorized","message":"Invalid or expired token"}}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"id":"u1","name":"Ann"}}`)
	})

	mux.HandleFunc("/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&b.refreshHits, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Empty(t, r.Header.Get("Authorization"))
		b.refreshReply(w, r)
	})

	mux.HandleFunc("/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"success":false,"error":{"code":"invalid_credentials","message":"Invalid email or password"}}`)
	})

	return mux
}

func rotateTo(access, refresh string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.RefreshToken != "ref-valid" {
			writeJSON(w, http.StatusUnauthorized, `{"success":false,"error":{"message":"invalid refresh token"}}`)
			return
		}

		body := `{"success":true,"data":{"access_token":"` + access + `"`
		if refresh != "" {
			body += `,"refresh_token":"` + refresh + `"`
		}
		writeJSON(w, http.StatusOK, body+`}}`)
	}
}

func tokens(t *testing.T, s session.Store) (string, string) {
	t.Helper()

	ctx := context.Background()
	at, err := s.AccessToken(ctx)
	require.NoError(t, err)
	rt, err := s.RefreshToken(ctx)
	require.NoError(t, err)
	return at, rt
}

func TestRequest_ExpiredAccess_RefreshSucceeds_RetriesOnce(t *testing.T) {
	t.Parallel()

	b := &backend{validAccess: "acc-new", refreshReply: rotateTo("acc-new", "ref-new")}
	srv := httptest.NewServer(b.handler(t))
	defer srv.Close()

	store := newStore(t, "acc-expired", "ref-valid")
	var expired int32
	c := newClient(t, srv.URL+"/v1", store, Options{
		OnSessionExpired: func(context.Context) { atomic.AddInt32(&expired, 1) },
	})

	data, err := c.Request(context.Background(), "/users/me", RequestOptions{})
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"u1","name":"Ann"}`, string(data))

	require.EqualValues(t, 2, atomic.LoadInt32(&b.meHits))
	require.EqualValues(t, 1, atomic.LoadInt32(&b.refreshHits))
	require.Zero(t, atomic.LoadInt32(&expired))

	at, rt := tokens(t, store)
	require.Equal(t, "acc-new", at)
	require.Equal(t, "ref-new", rt)
}

func TestRequest_ExpiredAccess_RefreshFails_ClearsSession(t *testing.T) {
	t.Parallel()

	b := &backend{
		validAccess: "acc-new",
		refreshReply: func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"success":false}`)
		},
	}
	srv := httptest.NewServer(b.handler(t))
	defer srv.Close()

	store := newStore(t, "acc-expired", "ref-expired")
	require.NoError(t, store.SetUser(context.Background(), modelsUser()))
	require.NoError(t, store.Set(context.Background(), session.KeyMessagingEnabled, "false"))

	var expired int32
	c := newClient(t, srv.URL+"/v1", store, Options{
		OnSessionExpired: func(context.Context) { atomic.AddInt32(&expired, 1) },
	})

	_, err := c.Request(context.Background(), "/users/me", RequestOptions{})
	require.ErrorIs(t, err, ErrSessionExpired)
	require.Equal(t, http.StatusUnauthorized, StatusOf(err))

	require.EqualValues(t, 1, atomic.LoadInt32(&b.meHits), "no retried request after failed refresh")
	require.EqualValues(t, 1, atomic.LoadInt32(&b.refreshHits))
	require.EqualValues(t, 1, atomic.LoadInt32(&expired))

	at, rt := tokens(t, store)
	require.Empty(t, at)
	require.Empty(t, rt)

	u, err := store.User(context.Background())
	require.NoError(t, err)
	require.Nil(t, u)

	_, ok, err := store.Get(context.Background(), session.KeyMessagingEnabled)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRequest_RetryStill401_NoFurtherRetry(t *testing.T) {
	t.Parallel()

	// refresh выдаёт токен, который /users/me всё равно не принимает.
	b := &backend{validAccess: "never", refreshReply: rotateTo("acc-new", "")}
	srv := httptest.NewServer(b.handler(t))
	defer srv.Close()

	store := newStore(t, "acc-expired", "ref-valid")
	c := newClient(t, srv.URL+"/v1", store, Options{})

	_, err := c.Request(context.Background(), "/users/me", RequestOptions{})
	require.ErrorIs(t, err, ErrRequest)
	require.Equal(t, http.StatusUnauthorized, StatusOf(err))
	require.Equal(t, "Invalid or expired token", err.Error())

	require.EqualValues(t, 2, atomic.LoadInt32(&b.meHits))
	require.EqualValues(t, 1, atomic.LoadInt32(&b.refreshHits))

	// Refresh без ротации сохраняет прежний refresh-токен.
	at, rt := tokens(t, store)
	require.Equal(t, "acc-new", at)
	require.Equal(t, "ref-valid", rt)
}

func TestRequest_AuthEndpoint401_NoRefresh(t *testing.T) {
	t.Parallel()

	b := &backend{validAccess: "acc", refreshReply: rotateTo("acc-new", "")}
	srv := httptest.NewServer(b.handler(t))
	defer srv.Close()

	store := newStore(t, "acc-stale", "ref-valid")
	c := newClient(t, srv.URL+"/v1", store, Options{})

	_, err := c.Post(context.Background(), "/auth/login", map[string]string{"email": "a@x.io", "password": "bad"})
	require.ErrorIs(t, err, ErrRequest)
	require.Equal(t, "Invalid email or password", err.Error())
	require.EqualValues(t, 0, atomic.LoadInt32(&b.refreshHits))

	at, rt := tokens(t, store)
	require.Equal(t, "acc-stale", at)
	require.Equal(t, "ref-valid", rt)
}

func TestRequest_401WithoutToken_NoRefresh(t *testing.T) {
	t.Parallel()

	b := &backend{validAccess: "acc", refreshReply: rotateTo("acc-new", "")}
	srv := httptest.NewServer(b.handler(t))
	defer srv.Close()

	var expired int32
	c := newClient(t, srv.URL+"/v1", newStore(t, "", "ref-valid"), Options{
		OnSessionExpired: func(context.Context) { atomic.AddInt32(&expired, 1) },
	})

	_, err := c.Request(context.Background(), "/users/me", RequestOptions{})
	require.ErrorIs(t, err, ErrRequest)
	require.EqualValues(t, 0, atomic.LoadInt32(&b.refreshHits))
	require.Zero(t, atomic.LoadInt32(&expired))
}

func TestRequest_CustomAuthPaths(t *testing.T) {
	t.Parallel()

	b := &backend{validAccess: "acc", refreshReply: rotateTo("acc-new", "")}
	srv := httptest.NewServer(b.handler(t))
	defer srv.Close()

	c := newClient(t, srv.URL+"/v1", newStore(t, "acc-stale", "ref-valid"), Options{AuthPaths: []string{"/users/me"}})

	_, err := c.Request(context.Background(), "/users/me?fields=id", RequestOptions{})
	require.ErrorIs(t, err, ErrRequest)
	require.EqualValues(t, 0, atomic.LoadInt32(&b.refreshHits))
}

func TestRefreshToken_NoStoredToken_NoNetworkCall(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"access_token":"x"}}`)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, newStore(t, "acc", ""), Options{})

	require.False(t, c.RefreshToken(context.Background()))
	require.Zero(t, atomic.LoadInt32(&hits))
}

func TestRefreshToken_Outcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		wantOK      bool
		wantAccess  string
		wantRefresh string
	}{
		{"access_token_with_rotation", 200, "application/json", `{"success":true,"data":{"access_token":"a2","refresh_token":"r2"}}`, true, "a2", "r2"},
		{"token_field_keeps_refresh", 200, "application/json", `{"success":true,"data":{"token":"a3"}}`, true, "a3", "r1"},
		{"success_false", 200, "application/json", `{"success":false,"data":{"access_token":"a4"}}`, false, "a1", "r1"},
		{"no_success_field", 200, "application/json", `{"data":{"access_token":"a5"}}`, false, "a1", "r1"},
		{"missing_token", 200, "application/json", `{"success":true,"data":{"refresh_token":"r6"}}`, false, "a1", "r1"},
		{"non_2xx", 401, "application/json", `{"success":true,"data":{"access_token":"a7"}}`, false, "a1", "r1"},
		{"malformed_json", 200, "application/json", `{"success":`, false, "a1", "r1"},
		{"not_json", 200, "text/html", `<html>`, false, "a1", "r1"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got struct {
				RefreshToken string `json:"refresh_token"`
			}
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, RefreshPath, r.URL.Path)
				_ = json.NewDecoder(r.Body).Decode(&got)
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			store := newStore(t, "a1", "r1")
			c := newClient(t, srv.URL, store, Options{})

			require.Equal(t, tt.wantOK, c.RefreshToken(context.Background()))
			require.Equal(t, "r1", got.RefreshToken)

			at, rt := tokens(t, store)
			require.Equal(t, tt.wantAccess, at)
			require.Equal(t, tt.wantRefresh, rt)
		})
	}
}

func TestRefreshToken_NetworkFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	store := newStore(t, "a1", "r1")
	c := newClient(t, addr, store, Options{})

	require.False(t, c.RefreshToken(context.Background()))
	at, rt := tokens(t, store)
	require.Equal(t, "a1", at)
	require.Equal(t, "r1", rt)
}

func TestRequest_Concurrent401_SingleRefresh(t *testing.T) {
	t.Parallel()

	const parallel = 4

	var (
		refreshHits int32
		staleHits   int32
		allStale    = make(chan struct{})
		once        sync.Once
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case RefreshPath:
			atomic.AddInt32(&refreshHits, 1)
			time.Sleep(50 * time.Millisecond)
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"access_token":"acc-new","refresh_token":"ref-new"}}`)
		default:
			if r.Header.Get("Authorization") == "Bearer acc-new" {
				writeJSON(w, http.StatusOK, `{"success":true,"data":{"ok":true}}`)
				return
			}
			// Все запросы со старым токеном получают 401 одновременно.
			if atomic.AddInt32(&staleHits, 1) == parallel {
				once.Do(func() { close(allStale) })
			}
			select {
			case <-allStale:
			case <-time.After(2 * time.Second):
			}
			writeJSON(w, http.StatusUnauthorized, `{"success":false}`)
		}
	}))
	defer srv.Close()

	store := newStore(t, "acc-old", "ref-old")
	c := newClient(t, srv.URL, store, Options{})

	var wg sync.WaitGroup
	errs := make(chan error, parallel)
	for i := 0; i < parallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Request(context.Background(), "/notifications", RequestOptions{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	require.EqualValues(t, 1, atomic.LoadInt32(&refreshHits))
	at, rt := tokens(t, store)
	require.Equal(t, "acc-new", at)
	require.Equal(t, "ref-new", rt)
}

func TestRequest_NonJSON401_StillRefreshes(t *testing.T) {
	t.Parallel()

	b := &backend{validAccess: "acc-new", refreshReply: rotateTo("acc-new", "ref-new")}
	mux := b.handler(t).(*http.ServeMux)

	var plainHits int32
	mux.HandleFunc("/v1/plain", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer acc-new" {
			atomic.AddInt32(&plainHits, 1)
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("unauthorized"))
			return
		}
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"ok":true}}`)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newClient(t, srv.URL+"/v1", newStore(t, "acc-expired", "ref-valid"), Options{})

	data, err := c.Request(context.Background(), "/plain", RequestOptions{})
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(data))
	require.EqualValues(t, 1, atomic.LoadInt32(&plainHits))
	require.EqualValues(t, 1, atomic.LoadInt32(&b.refreshHits))
}

func TestRequest_RefreshFailure_ClearsViaStore(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	var refreshHit atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == RefreshPath {
			refreshHit.Store(true)
		}
		writeJSON(w, http.StatusUnauthorized, `{"success":false}`)
	}))
	defer srv.Close()

	st := mocks.NewMockStore(ctrl)
	st.EXPECT().AccessToken(gomock.Any()).Return("acc-old", nil).Times(2)
	st.EXPECT().RefreshToken(gomock.Any()).Return("", nil).Times(1)
	st.EXPECT().Clear(gomock.Any()).Return(nil).Times(1)

	c := newClient(t, srv.URL, st, Options{})

	_, err := c.Request(context.Background(), "/users/me", RequestOptions{})
	require.ErrorIs(t, err, ErrSessionExpired)
	require.False(t, refreshHit.Load(), "refresh must not hit the network without a refresh token")
}

func TestRefresh_Metrics(t *testing.T) {
	t.Parallel()

	b := &backend{validAccess: "acc-new", refreshReply: rotateTo("acc-new", "ref-new")}
	srv := httptest.NewServer(b.handler(t))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	c := newClient(t, srv.URL+"/v1", newStore(t, "acc-expired", "ref-valid"), Options{Metrics: m})

	_, err = c.Request(context.Background(), "/users/me", RequestOptions{})
	require.NoError(t, err)

	expected := `
# HELP dashboard_client_refresh_total Access token refresh attempts by result.
# TYPE dashboard_client_refresh_total counter
dashboard_client_refresh_total{result="ok"} 1
# HELP dashboard_client_requests_total Outgoing API requests by method and HTTP status.
# TYPE dashboard_client_requests_total counter
dashboard_client_requests_total{method="GET",status="200"} 1
dashboard_client_requests_total{method="GET",status="401"} 1
dashboard_client_requests_total{method="POST",status="200"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"dashboard_client_refresh_total", "dashboard_client_requests_total"))
}
