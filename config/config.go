// config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Store     StoreConfig     `yaml:"store" envPrefix:"STORE_"`
	Auth      AuthConfig      `yaml:"auth" envPrefix:"AUTH_"`
	Tokens    TokensConfig    `yaml:"tokens" envPrefix:"TOKENS_"`
	RateLimit RateLimitConfig `yaml:"rate_limit" envPrefix:"RATE_LIMIT_"`
}

type ServerConfig struct {
	Host    string `yaml:"host" env:"HOST"`
	Port    int    `yaml:"port" env:"PORT"`
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
}

type StoreConfig struct {
	Type  string      `yaml:"type" env:"TYPE"`
	Redis RedisConfig `yaml:"redis" envPrefix:"REDIS_"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
}

type AuthConfig struct {
	// Secret signs password sessions and keys token digests. Rotating it
	// invalidates all outstanding sessions and share-token digests.
	Secret string `yaml:"secret" env:"SECRET"`

	// Optional owner bootstrapped at startup.
	OwnerID  string `yaml:"owner_id" env:"OWNER_ID"`
	OwnerKey string `yaml:"owner_key" env:"OWNER_KEY"`

	SessionTTL     time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`
	ShareCookieTTL time.Duration `yaml:"share_cookie_ttl" env:"SHARE_COOKIE_TTL"`
}

type TokensConfig struct {
	// Zero means no cap: tokens may be created without expiry or quota.
	MaxTTL  time.Duration `yaml:"max_ttl" env:"MAX_TTL"`
	MaxUses int           `yaml:"max_uses" env:"MAX_USES"`
}

type RateLimitConfig struct {
	Enabled        bool `yaml:"enabled" env:"ENABLED"`
	NormalPerMin   int  `yaml:"normal_per_min" env:"NORMAL_PER_MIN"`
	ModeratePerMin int  `yaml:"moderate_per_min" env:"MODERATE_PER_MIN"`
	CacheSize      int  `yaml:"cache_size" env:"CACHE_SIZE"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			BaseURL: "http://localhost:8080",
		},
		Store: StoreConfig{
			Type: "memory",
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				Password: "",
				DB:       0,
			},
		},
		Auth: AuthConfig{
			SessionTTL:     1 * time.Hour,
			ShareCookieTTL: 7 * 24 * time.Hour,
		},
		Tokens: TokensConfig{
			MaxTTL:  0,
			MaxUses: 0,
		},
		RateLimit: RateLimitConfig{
			Enabled:        true,
			NormalPerMin:   60,
			ModeratePerMin: 10,
			CacheSize:      1024,
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, err
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "FACET_"}); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File not found is OK, use defaults
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Server.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}

	if c.Store.Type != "memory" && c.Store.Type != "redis" {
		return fmt.Errorf("invalid store type: %s (must be 'memory' or 'redis')", c.Store.Type)
	}

	if c.Store.Type == "redis" && c.Store.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required when store type is 'redis'")
	}

	if len(c.Auth.Secret) < 16 {
		return fmt.Errorf("auth secret must be at least 16 characters")
	}

	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive")
	}

	if c.Auth.ShareCookieTTL <= 0 {
		return fmt.Errorf("share_cookie_ttl must be positive")
	}

	if c.Auth.OwnerKey != "" && len(c.Auth.OwnerKey) < 16 {
		return fmt.Errorf("owner_key must be at least 16 characters")
	}

	if c.Tokens.MaxTTL < 0 || c.Tokens.MaxUses < 0 {
		return fmt.Errorf("token limits must not be negative")
	}

	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
