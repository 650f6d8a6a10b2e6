package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrEmptyPath — файловому хранилищу не передан путь.
var ErrEmptyPath = errors.New("empty session file path")

// fileBackend хранит сессию в YAML-файле. Файл перечитывается на каждом
// обращении, поэтому параллельный `login` в соседнем процессе виден `watch`.
type fileBackend struct {
	mu   sync.Mutex
	path string
}

// NewFile — хранилище в YAML-файле (права 0600, запись через временный файл и rename).
// Отсутствующий файл означает пустую сессию.
func NewFile(path string) (*KVStore, error) {
	const op = "session.NewFile"

	if path == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyPath)
	}

	return &KVStore{b: &fileBackend{path: path}}, nil
}

func (f *fileBackend) get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return "", false, err
	}

	v, ok := data[key]
	return v, ok, nil
}

func (f *fileBackend) set(_ context.Context, kv map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return err
	}

	applyKV(data, kv)
	return f.save(data)
}

func (f *fileBackend) clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

func (f *fileBackend) close() error { return nil }

func (f *fileBackend) load() (map[string]string, error) {
	data := make(map[string]string)

	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return data, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}

	if data == nil {
		data = make(map[string]string)
	}

	return data, nil
}

func (f *fileBackend) save(data map[string]string) error {
	raw, err := yaml.Marshal(data)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".session-*.yaml")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return err
	}

	return nil
}
