package session

import (
	"context"
	"fmt"

	"github.com/pribylovaa/dashboard-client/internal/config"
)

// New выбирает бэкенд по конфигурации.
func New(ctx context.Context, cfg config.SessionConfig) (*KVStore, error) {
	const op = "session.New"

	var (
		s   *KVStore
		err error
	)

	switch cfg.Backend {
	case config.SessionBackendMemory:
		s = NewMemory()
	case config.SessionBackendFile, "":
		s, err = NewFile(cfg.Path)
	case config.SessionBackendRedis:
		s, err = NewRedis(ctx, cfg.RedisURL, cfg.Prefix+"default")
	default:
		err = fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s, nil
}
