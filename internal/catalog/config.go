// File path: internal/catalog/config.go
package catalog

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls the SQLite catalog connection.
type Config struct {
	Path         string        `json:"path"`
	MaxOpenConns int           `json:"max_open_conns"`
	MaxIdleConns int           `json:"max_idle_conns"`
	BusyTimeout  time.Duration `json:"-"`
}

// DefaultConfig returns the standard catalog settings.
func DefaultConfig() Config {
	return Config{
		Path:         "talkdata.db",
		MaxOpenConns: 4,
		MaxIdleConns: 4,
		BusyTimeout:  5 * time.Second,
	}
}

// Merge overlays non-zero fields from the override onto the base config.
func (c Config) Merge(override Config) Config {
	result := c
	if strings.TrimSpace(override.Path) != "" {
		result.Path = strings.TrimSpace(override.Path)
	}
	if override.MaxOpenConns > 0 {
		result.MaxOpenConns = override.MaxOpenConns
	}
	if override.MaxIdleConns > 0 {
		result.MaxIdleConns = override.MaxIdleConns
	}
	if override.BusyTimeout > 0 {
		result.BusyTimeout = override.BusyTimeout
	}
	return result
}

// LoadConfig builds the catalog configuration from environment overrides.
func LoadConfig() Config {
	cfg := Config{}
	if path := strings.TrimSpace(os.Getenv("TTD_DB_PATH")); path != "" {
		cfg.Path = path
	}
	if raw := strings.TrimSpace(os.Getenv("TTD_DB_MAX_OPEN_CONNS")); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.MaxOpenConns = value
		}
	}
	if raw := strings.TrimSpace(os.Getenv("TTD_DB_MAX_IDLE_CONNS")); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.MaxIdleConns = value
		}
	}
	if raw := strings.TrimSpace(os.Getenv("TTD_DB_BUSY_TIMEOUT")); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			cfg.BusyTimeout = parsed
		}
	}
	return DefaultConfig().Merge(cfg)
}
