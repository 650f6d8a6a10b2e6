package session

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey — ключ хэша сессии, если prefix не задан.
const DefaultRedisKey = "dashboard:session:default"

// redisBackend хранит сессию как Redis Hash под одним ключом.
type redisBackend struct {
	rdb *redis.Client
	key string
}

// NewRedis создаёт клиент из URL (например, redis://:pass@host:6379/0)
// и проверяет соединение. Пустой key заменяется на DefaultRedisKey.
func NewRedis(ctx context.Context, redisURL, key string) (*KVStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return NewRedisFromClient(rdb, key), nil
}

// NewRedisFromClient — хранилище поверх готового клиента; Close закроет клиент.
func NewRedisFromClient(rdb *redis.Client, key string) *KVStore {
	if key == "" {
		key = DefaultRedisKey
	}

	return &KVStore{b: &redisBackend{rdb: rdb, key: key}}
}

func (r *redisBackend) get(ctx context.Context, field string) (string, bool, error) {
	v, err := r.rdb.HGet(ctx, r.key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	return v, true, nil
}

// set пишет и удаляет поля в одной MULTI/EXEC транзакции.
func (r *redisBackend) set(ctx context.Context, kv map[string]string) error {
	var (
		put []any
		del []string
	)
	for k, v := range kv {
		if v == "" {
			del = append(del, k)
			continue
		}
		put = append(put, k, v)
	}

	pipe := r.rdb.TxPipeline()
	if len(put) > 0 {
		pipe.HSet(ctx, r.key, put...)
	}
	if len(del) > 0 {
		pipe.HDel(ctx, r.key, del...)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (r *redisBackend) clear(ctx context.Context) error {
	return r.rdb.Del(ctx, r.key).Err()
}

func (r *redisBackend) close() error { return r.rdb.Close() }
