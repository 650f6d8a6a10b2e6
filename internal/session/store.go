// session хранит учётные данные текущего пользователя: пару токенов,
// профиль и локальные флаги интерфейса. Все реализации безопасны для
// конкурентного использования.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pribylovaa/dashboard-client/internal/models"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks github.com/pribylovaa/dashboard-client/internal/session Store

// Ключи хранилища.
const (
	KeyAccessToken          = "access_token"
	KeyRefreshToken         = "refresh_token"
	KeyUser                 = "user"
	KeyNotificationsEnabled = "notifications_enabled"
	KeyMessagingEnabled     = "messaging_enabled"
)

// ErrEmptyKey — пустое имя ключа в Get/Set.
var ErrEmptyKey = errors.New("empty session key")

// Store — контракт хранилища сессии, общий для клиента, api и пуллеров.
type Store interface {
	// AccessToken возвращает текущий access-токен или "" если его нет.
	AccessToken(ctx context.Context) (string, error)
	// RefreshToken возвращает refresh-токен или "".
	RefreshToken(ctx context.Context) (string, error)
	// SetTokens атомарно заменяет пару. Пустой refresh удаляет сохранённый.
	SetTokens(ctx context.Context, access, refresh string) error
	// User возвращает профиль; nil, nil если пользователь не сохранён.
	User(ctx context.Context) (*models.User, error)
	SetUser(ctx context.Context, u models.User) error
	// Get возвращает значение произвольного ключа и признак его наличия.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Clear удаляет всё содержимое сессии.
	Clear(ctx context.Context) error
}

// backend — минимальный key-value слой, поверх которого KVStore реализует Store.
type backend interface {
	get(ctx context.Context, key string) (string, bool, error)
	// set применяет изменения одной операцией; пустое значение удаляет ключ.
	set(ctx context.Context, kv map[string]string) error
	clear(ctx context.Context) error
	close() error
}

// KVStore — Store поверх конкретного бэкенда (memory, file, redis).
type KVStore struct {
	b backend
}

var _ Store = (*KVStore)(nil)

func (s *KVStore) AccessToken(ctx context.Context) (string, error) {
	const op = "session.AccessToken"

	v, _, err := s.b.get(ctx, KeyAccessToken)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return v, nil
}

func (s *KVStore) RefreshToken(ctx context.Context) (string, error) {
	const op = "session.RefreshToken"

	v, _, err := s.b.get(ctx, KeyRefreshToken)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return v, nil
}

func (s *KVStore) SetTokens(ctx context.Context, access, refresh string) error {
	const op = "session.SetTokens"

	if err := s.b.set(ctx, map[string]string{
		KeyAccessToken:  access,
		KeyRefreshToken: refresh,
	}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *KVStore) User(ctx context.Context) (*models.User, error) {
	const op = "session.User"

	raw, ok, err := s.b.get(ctx, KeyUser)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !ok || raw == "" {
		return nil, nil
	}

	var u models.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &u, nil
}

func (s *KVStore) SetUser(ctx context.Context, u models.User) error {
	const op = "session.SetUser"

	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.b.set(ctx, map[string]string{KeyUser: string(raw)}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	const op = "session.Get"

	if key == "" {
		return "", false, fmt.Errorf("%s: %w", op, ErrEmptyKey)
	}

	v, ok, err := s.b.get(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}

	return v, ok, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	const op = "session.Set"

	if key == "" {
		return fmt.Errorf("%s: %w", op, ErrEmptyKey)
	}

	if err := s.b.set(ctx, map[string]string{key: value}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *KVStore) Clear(ctx context.Context) error {
	const op = "session.Clear"

	if err := s.b.clear(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Close освобождает ресурсы бэкенда (соединение с Redis).
func (s *KVStore) Close() error { return s.b.close() }

// Enabled читает флаг интерфейса: отсутствие значения означает "включено",
// выключает только строка "false".
func Enabled(ctx context.Context, s Store, key string) bool {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return true
	}

	return v != "false"
}
