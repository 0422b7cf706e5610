package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"

	NotifyDisplayStderr = "stderr"
	NotifyDisplayLog    = "log"
)

// Config holds application configuration
type Config struct {
	BaseURL          string
	AuthToken        string
	ConfigFile       string
	CacheBackend     string
	RedisURL         string
	StateDBPath      string
	ReminderInterval time.Duration
	NotifyPermission string
	NotifyDisplay    string
	HTTPTimeout      time.Duration
	DebugMode        bool
	OTELEnabled      bool
	OTELEndpoint     string
}

// fileConfig is the optional YAML credentials file
type fileConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Auth    string `yaml:"auth"`
}

// Load loads configuration from environment variables. Values from
// TASKS_CONFIG_FILE are used where the matching variable is unset.
// A missing base URL or token is not an error here; remote calls report it.
func Load() (*Config, error) {
	cfg := &Config{
		ConfigFile:       getEnv("TASKS_CONFIG_FILE", ""),
		CacheBackend:     getEnv("CACHE_BACKEND", CacheBackendMemory),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		StateDBPath:      getEnv("STATE_DB_PATH", defaultStatePath()),
		ReminderInterval: getEnvDuration("REMINDER_INTERVAL", time.Minute),
		NotifyPermission: getEnv("NOTIFY_PERMISSION", "default"),
		NotifyDisplay:    getEnv("NOTIFY_DISPLAY", NotifyDisplayStderr),
		HTTPTimeout:      getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
		DebugMode:        getEnvBool("DEBUG_MODE", false),
		OTELEnabled:      getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.ConfigFile != "" {
		file, err := loadFile(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg.BaseURL = file.BaseURL
		cfg.AuthToken = file.Auth
	}
	cfg.BaseURL = getEnv("TASKS_BASE_URL", cfg.BaseURL)
	cfg.AuthToken = getEnv("TASKS_AUTH_TOKEN", cfg.AuthToken)

	if cfg.CacheBackend != CacheBackendMemory && cfg.CacheBackend != CacheBackendRedis {
		return nil, fmt.Errorf("CACHE_BACKEND must be %q or %q, got %q", CacheBackendMemory, CacheBackendRedis, cfg.CacheBackend)
	}

	if cfg.NotifyDisplay != NotifyDisplayStderr && cfg.NotifyDisplay != NotifyDisplayLog {
		return nil, fmt.Errorf("NOTIFY_DISPLAY must be %q or %q, got %q", NotifyDisplayStderr, NotifyDisplayLog, cfg.NotifyDisplay)
	}

	if cfg.ReminderInterval <= 0 {
		return nil, fmt.Errorf("REMINDER_INTERVAL must be positive")
	}

	if cfg.OTELEnabled && cfg.OTELEndpoint == "" {
		return nil, fmt.Errorf("OTEL_EXPORTER_OTLP_ENDPOINT is required when OTEL_ENABLED is set")
	}

	return cfg, nil
}

func loadFile(path string) (fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("failed to read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fileConfig{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return fc, nil
}

func defaultStatePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "smart-todo-state.db"
	}
	return filepath.Join(dir, "smart-todo-sync", "state.db")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if seconds := getEnvInt(key, -1); seconds >= 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
