package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads root/.env without overriding variables already set.
func LoadDotEnv(root string) {
	path := filepath.Join(root, ".env")
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		slog.Warn("failed to load .env", "path", path, "error", err)
	}
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: RDS_[KEY] (e.g., RDS_PORT).
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Server.Host, "RDS_HOST")
	setEnvInt(&cfg.Server.Port, "RDS_PORT")
	setEnvString(&cfg.Tracing.Endpoint, "RDS_TRACING_ENDPOINT")
	setEnvString(&cfg.CSS.DarkMode, "RDS_DARK_MODE")
	setEnvBool(&cfg.CSS.Devtools, "RDS_DEVTOOLS")
	setEnvDuration(&cfg.Watch.Debounce, "RDS_WATCH_DEBOUNCE")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
