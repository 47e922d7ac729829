package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Security    SecurityConfig    `koanf:"security"`
	LocalStore  LocalStoreConfig  `koanf:"local_store"`
	Analysis    AnalysisConfig    `koanf:"analysis"`
	Companion   CompanionConfig   `koanf:"companion"`
	Affirmation AffirmationConfig `koanf:"affirmation"`
	Logging     LoggingConfig     `koanf:"logging"`
}

type ServerConfig struct {
	Port            string        `koanf:"port"`
	Timezone        string        `koanf:"timezone"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
}

type SecurityConfig struct {
	SecretKey    string        `koanf:"secret_key"`
	TokenTTL     time.Duration `koanf:"token_ttl"`
	CookieSecure bool          `koanf:"cookie_secure"`
}

type LocalStoreConfig struct {
	// Backend is badger, redis or memory.
	Backend  string `koanf:"backend"`
	Path     string `koanf:"path"`
	RedisURL string `koanf:"redis_url"`
}

type AnalysisConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

type CompanionConfig struct {
	BaseURL        string        `koanf:"base_url"`
	APIKey         string        `koanf:"api_key"`
	Model          string        `koanf:"model"`
	SystemPrompt   string        `koanf:"system_prompt"`
	Timeout        time.Duration `koanf:"timeout"`
	RequestsPerMin int           `koanf:"requests_per_minute"`
}

type AffirmationConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

var (
	ErrSecretKeyMissing  = errors.New("SECRET_KEY is required")
	ErrSecretKeyInsecure = errors.New("SECRET_KEY uses an insecure placeholder")
	ErrSecretKeyShort    = errors.New("SECRET_KEY must be at least 32 characters")
)

const minSecretKeyLength = 32

var insecureSecretKeys = map[string]struct{}{
	"change_me_in_production":                    {},
	"replace_with_at_least_32_random_characters": {},
}

func (cfg *Config) Validate() error {
	if err := ValidateSecretKey(cfg.Security.SecretKey); err != nil {
		return err
	}

	switch cfg.LocalStore.Backend {
	case "badger":
		if strings.TrimSpace(cfg.LocalStore.Path) == "" {
			return errors.New("local_store.path is required for the badger backend")
		}
	case "redis":
		if strings.TrimSpace(cfg.LocalStore.RedisURL) == "" {
			return errors.New("local_store.redis_url is required for the redis backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown local_store.backend %q", cfg.LocalStore.Backend)
	}

	if strings.TrimSpace(cfg.Database.Path) == "" {
		return errors.New("database.path is required")
	}
	if cfg.Security.TokenTTL <= 0 {
		return errors.New("security.token_ttl must be positive")
	}
	return nil
}

func ValidateSecretKey(secret string) error {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return ErrSecretKeyMissing
	}
	if _, insecure := insecureSecretKeys[trimmed]; insecure {
		return ErrSecretKeyInsecure
	}
	if len(trimmed) < minSecretKeyLength {
		return ErrSecretKeyShort
	}
	return nil
}

// Location resolves Server.Timezone, falling back to UTC.
func (cfg *Config) Location() *time.Location {
	location, err := time.LoadLocation(strings.TrimSpace(cfg.Server.Timezone))
	if err != nil || strings.TrimSpace(cfg.Server.Timezone) == "" {
		return time.UTC
	}
	return location
}
