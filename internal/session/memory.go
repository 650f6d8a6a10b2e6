package session

import (
	"context"
	"sync"
)

type memoryBackend struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory — хранилище в памяти процесса. Подходит для тестов и
// одноразовых запусков CLI.
func NewMemory() *KVStore {
	return &KVStore{b: &memoryBackend{data: make(map[string]string)}}
}

func (m *memoryBackend) get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryBackend) set(_ context.Context, kv map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	applyKV(m.data, kv)
	return nil
}

func (m *memoryBackend) clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[string]string)
	return nil
}

func (m *memoryBackend) close() error { return nil }

func applyKV(dst, kv map[string]string) {
	for k, v := range kv {
		if v == "" {
			delete(dst, k)
			continue
		}
		dst[k] = v
	}
}
