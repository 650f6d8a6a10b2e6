// config - источник загрузки конфигурации для dashboard-cli и stub-backend.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Бэкенды хранилища сессии.
const (
	SessionBackendMemory = "memory"
	SessionBackendFile   = "file"
	SessionBackendRedis  = "redis"
)

type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	API      APIConfig     `yaml:"api"`
	Session  SessionConfig `yaml:"session"`
	Polling  PollingConfig `yaml:"polling"`
	HTTP     HTTPConfig    `yaml:"http"`
	Stub     StubConfig    `yaml:"stub"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// APIConfig — адрес REST-бэкенда и параметры исходящих запросов.
type APIConfig struct {
	BaseURL   string `yaml:"base_url"   env:"API_BASE_URL"   env-default:"http://localhost:8080/v1"`
	UserAgent string `yaml:"user_agent" env:"API_USER_AGENT" env-default:"dashboard-cli"`
}

// TimeoutConfig — таймаут одного HTTP-обмена с бэкендом.
type TimeoutConfig struct {
	Request time.Duration `yaml:"request" env:"REQUEST_TIMEOUT" env-default:"15s"`
}

// SessionConfig — где хранятся токены и профиль текущего пользователя.
type SessionConfig struct {
	Backend  string `yaml:"backend"   env:"SESSION_BACKEND"   env-default:"file"`
	Path     string `yaml:"path"      env:"SESSION_PATH"      env-default:"session.yaml"`
	RedisURL string `yaml:"redis_url" env:"SESSION_REDIS_URL"`
	Prefix   string `yaml:"prefix"    env:"SESSION_PREFIX"    env-default:"dashboard:session:"`
}

// PollingConfig — периоды опроса счётчиков непрочитанного.
type PollingConfig struct {
	Messages      time.Duration `yaml:"messages"      env:"POLL_MESSAGES"      env-default:"10s"`
	Notifications time.Duration `yaml:"notifications" env:"POLL_NOTIFICATIONS" env-default:"15s"`
}

// HTTPConfig — локальный HTTP для /livez, /healthz и /metrics в режиме watch.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"127.0.0.1"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"50095"`
}

func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// StubConfig — параметры stub-backend.
type StubConfig struct {
	Host            string        `yaml:"host"              env:"STUB_HOST"              env-default:"127.0.0.1"`
	Port            string        `yaml:"port"              env:"STUB_PORT"              env-default:"8080"`
	JWTSecret       string        `yaml:"jwt_secret"        env:"STUB_JWT_SECRET"        env-default:"stub-secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"  env:"STUB_ACCESS_TOKEN_TTL"  env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"STUB_REFRESH_TOKEN_TTL" env-default:"720h"`
}

func (s StubConfig) Addr() string { return net.JoinHostPort(s.Host, s.Port) }

// MustLoad — паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		return cfg.validate()
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return cfg.validate()
}

func (c *Config) validate() (*Config, error) {
	switch c.Session.Backend {
	case SessionBackendMemory, SessionBackendFile:
	case SessionBackendRedis:
		if c.Session.RedisURL == "" {
			return nil, fmt.Errorf("session backend %q requires redis_url", c.Session.Backend)
		}
	default:
		return nil, fmt.Errorf("unsupported session backend %q", c.Session.Backend)
	}

	if c.API.BaseURL == "" {
		return nil, fmt.Errorf("api base_url is empty")
	}

	return c, nil
}
