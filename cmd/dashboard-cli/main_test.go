package main

import (
	"bytes"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/dashboard-client/internal/stubserver"
)

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(`env: prod
api:
  base_url: %q
session:
  backend: file
  path: %q
`, baseURL, filepath.Join(dir, "session.yaml"))

	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRun_LoginStatusUnreadLogout(t *testing.T) {
	stub := stubserver.New(stubserver.Options{BcryptCost: 4})
	srv := httptest.NewServer(stub.Handler())
	defer srv.Close()

	id, err := stub.Seed("ann@example.com", "pw", "Ann", "")
	require.NoError(t, err)
	stub.AddNotification(id, "t", "hello")

	cfg := writeConfig(t, srv.URL+stubserver.BasePath)

	var out bytes.Buffer
	code := run([]string{"-config", cfg, "login", "-email", "ann@example.com", "-password", "pw"}, &out)
	require.Equal(t, exitOK, code)
	require.Contains(t, out.String(), "logged in as Ann <ann@example.com> (user)")

	out.Reset()
	require.Equal(t, exitOK, run([]string{"-config", cfg, "status"}, &out))
	require.Contains(t, out.String(), "valid until")
	require.Contains(t, out.String(), "refresh: true")

	out.Reset()
	require.Equal(t, exitOK, run([]string{"-config", cfg, "unread"}, &out))
	require.Contains(t, out.String(), "messages:      0")
	require.Contains(t, out.String(), "notifications: 1")

	out.Reset()
	require.Equal(t, exitOK, run([]string{"-config", cfg, "search", "-q", "ann"}, &out))
	require.Contains(t, out.String(), `"total": 1`)

	out.Reset()
	require.Equal(t, exitOK, run([]string{"-config", cfg, "logout"}, &out))

	out.Reset()
	require.Equal(t, exitOK, run([]string{"-config", cfg, "status"}, &out))
	require.Equal(t, "not logged in\n", out.String())
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestRun_ExpiredSession(t *testing.T) {
	clk := &clock{now: time.Now()}
	stub := stubserver.New(stubserver.Options{
		BcryptCost:      4,
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Now:             clk.Now,
	})
	srv := httptest.NewServer(stub.Handler())
	defer srv.Close()

	_, err := stub.Seed("ann@example.com", "pw", "Ann", "")
	require.NoError(t, err)

	cfg := writeConfig(t, srv.URL+stubserver.BasePath)
	login := []string{"-config", cfg, "login", "-email", "ann@example.com", "-password", "pw"}

	var out bytes.Buffer
	require.Equal(t, exitOK, run(login, &out))
	clk.Advance(2 * time.Hour)

	out.Reset()
	require.Equal(t, exitSessionExpired, run([]string{"-config", cfg, "me"}, &out))

	out.Reset()
	require.Equal(t, exitOK, run(login, &out))
	clk.Advance(2 * time.Hour)

	out.Reset()
	require.Equal(t, exitOK, run([]string{"-config", cfg, "logout"}, &out))
	require.Equal(t, "logged out\n", out.String())

	out.Reset()
	require.Equal(t, exitOK, run([]string{"-config", cfg, "status"}, &out))
	require.Equal(t, "not logged in\n", out.String())
}

func TestRun_Usage(t *testing.T) {
	var out bytes.Buffer
	require.Equal(t, exitUsage, run(nil, &out))
	require.Equal(t, exitUsage, run([]string{"nope"}, &out))
}

func TestRun_MissingFlags(t *testing.T) {
	cfg := writeConfig(t, "http://127.0.0.1:1/v1")

	var out bytes.Buffer
	require.Equal(t, exitError, run([]string{"-config", cfg, "login", "-email", "x@example.com"}, &out))
	require.Equal(t, exitError, run([]string{"-config", cfg, "search"}, &out))
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("any"))
	require.NoError(t, err)

	got, ok := tokenExpiry(token)
	require.True(t, ok)
	require.True(t, exp.Equal(got))

	_, ok = tokenExpiry("opaque-token")
	require.False(t, ok)
}
