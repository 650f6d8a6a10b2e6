package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/dashboard-client/internal/config"
	"github.com/pribylovaa/dashboard-client/internal/models"
)

type factory func(t *testing.T) *KVStore

func backends() map[string]factory {
	return map[string]factory{
		"memory": func(t *testing.T) *KVStore { return NewMemory() },
		"file": func(t *testing.T) *KVStore {
			s, err := NewFile(filepath.Join(t.TempDir(), "session.yaml"))
			require.NoError(t, err)
			return s
		},
		"redis": func(t *testing.T) *KVStore {
			mr := miniredis.RunT(t)
			s := NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test:session")
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func TestStore_Backends(t *testing.T) {
	for name, newStore := range backends() {
		newStore := newStore
		t.Run(name, func(t *testing.T) {
			t.Run("empty", func(t *testing.T) {
				s := newStore(t)
				ctx := context.Background()

				at, err := s.AccessToken(ctx)
				require.NoError(t, err)
				require.Empty(t, at)

				rt, err := s.RefreshToken(ctx)
				require.NoError(t, err)
				require.Empty(t, rt)

				u, err := s.User(ctx)
				require.NoError(t, err)
				require.Nil(t, u)

				_, ok, err := s.Get(ctx, KeyMessagingEnabled)
				require.NoError(t, err)
				require.False(t, ok)
			})

			t.Run("tokens_user_clear", func(t *testing.T) {
				s := newStore(t)
				ctx := context.Background()

				require.NoError(t, s.SetTokens(ctx, "acc-1", "ref-1"))
				require.NoError(t, s.SetUser(ctx, models.User{ID: "u1", Name: "Ann", Email: "a@x.io", Role: models.RoleAdmin}))
				require.NoError(t, s.Set(ctx, KeyNotificationsEnabled, "false"))

				at, err := s.AccessToken(ctx)
				require.NoError(t, err)
				require.Equal(t, "acc-1", at)

				rt, err := s.RefreshToken(ctx)
				require.NoError(t, err)
				require.Equal(t, "ref-1", rt)

				u, err := s.User(ctx)
				require.NoError(t, err)
				require.NotNil(t, u)
				require.Equal(t, "u1", u.ID)
				require.True(t, u.IsAdmin())

				v, ok, err := s.Get(ctx, KeyNotificationsEnabled)
				require.NoError(t, err)
				require.True(t, ok)
				require.Equal(t, "false", v)

				require.NoError(t, s.Clear(ctx))

				at, err = s.AccessToken(ctx)
				require.NoError(t, err)
				require.Empty(t, at)

				u, err = s.User(ctx)
				require.NoError(t, err)
				require.Nil(t, u)

				_, ok, err = s.Get(ctx, KeyNotificationsEnabled)
				require.NoError(t, err)
				require.False(t, ok)
			})

			t.Run("set_tokens_empty_refresh_drops_old", func(t *testing.T) {
				s := newStore(t)
				ctx := context.Background()

				require.NoError(t, s.SetTokens(ctx, "a1", "r1"))
				require.NoError(t, s.SetTokens(ctx, "a2", ""))

				at, err := s.AccessToken(ctx)
				require.NoError(t, err)
				require.Equal(t, "a2", at)

				rt, err := s.RefreshToken(ctx)
				require.NoError(t, err)
				require.Empty(t, rt)
			})

			t.Run("empty_key", func(t *testing.T) {
				s := newStore(t)
				ctx := context.Background()

				_, _, err := s.Get(ctx, "")
				require.ErrorIs(t, err, ErrEmptyKey)
				require.ErrorIs(t, s.Set(ctx, "", "x"), ErrEmptyKey)
			})

			t.Run("concurrent_set_tokens", func(t *testing.T) {
				s := newStore(t)
				ctx := context.Background()

				var wg sync.WaitGroup
				for i := 0; i < 16; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						_ = s.SetTokens(ctx, "acc", "ref")
						_, _ = s.AccessToken(ctx)
					}()
				}
				wg.Wait()

				at, err := s.AccessToken(ctx)
				require.NoError(t, err)
				require.Equal(t, "acc", at)
			})
		})
	}
}

func TestEnabled(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemory()

	require.True(t, Enabled(ctx, s, KeyMessagingEnabled), "absent flag means enabled")

	require.NoError(t, s.Set(ctx, KeyMessagingEnabled, "true"))
	require.True(t, Enabled(ctx, s, KeyMessagingEnabled))

	require.NoError(t, s.Set(ctx, KeyMessagingEnabled, "false"))
	require.False(t, Enabled(ctx, s, KeyMessagingEnabled))
}

func TestFile_PermissionsAndPersistence(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.yaml")
	ctx := context.Background()

	s1, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, s1.SetTokens(ctx, "acc", "ref"))

	st, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), st.Mode().Perm())

	// Второй экземпляр видит записанное первым.
	s2, err := NewFile(path)
	require.NoError(t, err)
	at, err := s2.AccessToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "acc", at)

	require.NoError(t, s2.Clear(ctx))
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))

	// Повторный Clear на отсутствующем файле не ошибка.
	require.NoError(t, s1.Clear(ctx))
}

func TestFile_BrokenYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("access_token: [oops"), 0o600))

	s, err := NewFile(path)
	require.NoError(t, err)

	_, err = s.AccessToken(context.Background())
	require.Error(t, err)
}

func TestNewFile_EmptyPath(t *testing.T) {
	t.Parallel()

	_, err := NewFile("")
	require.ErrorIs(t, err, ErrEmptyPath)
}

func TestRedis_HashLayout(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	ctx := context.Background()

	s, err := NewRedis(ctx, "redis://"+mr.Addr()+"/0", "dash:session:me")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.SetTokens(ctx, "acc", "ref"))

	require.Equal(t, "acc", mr.HGet("dash:session:me", KeyAccessToken))
	require.Equal(t, "ref", mr.HGet("dash:session:me", KeyRefreshToken))

	require.NoError(t, s.Clear(ctx))
	require.False(t, mr.Exists("dash:session:me"))
}

func TestNewRedis_Unreachable(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(context.Background(), "redis://"+addr+"/0", "")
	require.Error(t, err)
}

func TestNew_PicksBackend(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	s, err := New(ctx, config.SessionConfig{Backend: config.SessionBackendMemory})
	require.NoError(t, err)
	require.IsType(t, &memoryBackend{}, s.b)

	s, err = New(ctx, config.SessionConfig{Backend: config.SessionBackendFile, Path: filepath.Join(t.TempDir(), "s.yaml")})
	require.NoError(t, err)
	require.IsType(t, &fileBackend{}, s.b)

	mr := miniredis.RunT(t)
	s, err = New(ctx, config.SessionConfig{Backend: config.SessionBackendRedis, RedisURL: "redis://" + mr.Addr(), Prefix: "p:"})
	require.NoError(t, err)
	require.IsType(t, &redisBackend{}, s.b)
	require.Equal(t, "p:default", s.b.(*redisBackend).key)
	require.NoError(t, s.Close())

	_, err = New(ctx, config.SessionConfig{Backend: "etcd"})
	require.Error(t, err)
}
