package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const ConfigPathEnvVar = "CONFIG_PATH"

var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/liberate/config.yaml",
}

const defaultSystemPrompt = "You are Echo, a warm and supportive companion. Listen carefully, " +
	"answer briefly, never diagnose, and gently point to crisis resources (call or text 988) " +
	"when someone may be in danger."

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Timezone:        "UTC",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path: filepath.Join("data", "liberate.db"),
		},
		Security: SecurityConfig{
			TokenTTL: 7 * 24 * time.Hour,
		},
		LocalStore: LocalStoreConfig{
			Backend: "badger",
			Path:    filepath.Join("data", "mirror"),
		},
		Analysis: AnalysisConfig{
			BaseURL: "http://127.0.0.1:5000",
			Timeout: 20 * time.Second,
		},
		Companion: CompanionConfig{
			BaseURL:        "https://generativelanguage.googleapis.com",
			Model:          "gemini-2.0-flash",
			SystemPrompt:   defaultSystemPrompt,
			Timeout:        30 * time.Second,
			RequestsPerMin: 30,
		},
		Affirmation: AffirmationConfig{
			URL:     "https://zenquotes.io/api/random",
			Timeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load layers struct defaults, an optional YAML file and the environment,
// then validates the result.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadUnvalidated is used by CLI commands that never serve HTTP and so do not
// need a signing secret.
func LoadUnvalidated() (*Config, error) {
	return load()
}

func load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	cfg.LocalStore.Backend = strings.ToLower(strings.TrimSpace(cfg.LocalStore.Backend))
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var envMappings = map[string]string{
	"port":                          "server.port",
	"tz":                            "server.timezone",
	"shutdown_timeout":              "server.shutdown_timeout",
	"db_path":                       "database.path",
	"secret_key":                    "security.secret_key",
	"token_ttl":                     "security.token_ttl",
	"cookie_secure":                 "security.cookie_secure",
	"local_store":                   "local_store.backend",
	"local_store_path":              "local_store.path",
	"redis_url":                     "local_store.redis_url",
	"analysis_url":                  "analysis.base_url",
	"analysis_timeout":              "analysis.timeout",
	"companion_url":                 "companion.base_url",
	"companion_api_key":             "companion.api_key",
	"companion_model":               "companion.model",
	"companion_system_prompt":       "companion.system_prompt",
	"companion_timeout":             "companion.timeout",
	"companion_requests_per_minute": "companion.requests_per_minute",
	"affirmation_url":               "affirmation.url",
	"log_level":                     "logging.level",
	"log_format":                    "logging.format",
}

// envTransformFunc maps known variables and drops the rest so unrelated
// environment never leaks into the config tree.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
