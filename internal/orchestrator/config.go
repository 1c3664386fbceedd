// File path: internal/orchestrator/config.go
package orchestrator

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config bounds every external interaction in the query pipeline.
type Config struct {
	OracleRetries     int           `json:"oracle_retries"`
	OracleBackoff     time.Duration `json:"-"`
	OracleTimeout     time.Duration `json:"-"`
	OracleConcurrency int64         `json:"oracle_concurrency"`
	ExecTimeout       time.Duration `json:"-"`
	HistoryTurns      int           `json:"history_turns"`
}

// DefaultConfig returns the standard pipeline settings.
func DefaultConfig() Config {
	return Config{
		OracleRetries:     2,
		OracleBackoff:     500 * time.Millisecond,
		OracleTimeout:     30 * time.Second,
		OracleConcurrency: 4,
		ExecTimeout:       10 * time.Second,
		HistoryTurns:      5,
	}
}

// Merge overlays non-zero fields from the override onto the base config.
func (c Config) Merge(override Config) Config {
	result := c
	if override.OracleRetries > 0 {
		result.OracleRetries = override.OracleRetries
	}
	if override.OracleBackoff > 0 {
		result.OracleBackoff = override.OracleBackoff
	}
	if override.OracleTimeout > 0 {
		result.OracleTimeout = override.OracleTimeout
	}
	if override.OracleConcurrency > 0 {
		result.OracleConcurrency = override.OracleConcurrency
	}
	if override.ExecTimeout > 0 {
		result.ExecTimeout = override.ExecTimeout
	}
	if override.HistoryTurns > 0 {
		result.HistoryTurns = override.HistoryTurns
	}
	return result
}

// LoadConfig builds the pipeline configuration from environment overrides.
func LoadConfig() Config {
	cfg := Config{}
	if raw := strings.TrimSpace(os.Getenv("TTD_ORACLE_RETRIES")); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.OracleRetries = value
		}
	}
	if raw := strings.TrimSpace(os.Getenv("TTD_ORACLE_BACKOFF")); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			cfg.OracleBackoff = parsed
		}
	}
	if raw := strings.TrimSpace(os.Getenv("TTD_ORACLE_TIMEOUT")); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			cfg.OracleTimeout = parsed
		}
	}
	if raw := strings.TrimSpace(os.Getenv("TTD_ORACLE_CONCURRENCY")); raw != "" {
		if value, err := strconv.ParseInt(raw, 10, 64); err == nil && value > 0 {
			cfg.OracleConcurrency = value
		}
	}
	if raw := strings.TrimSpace(os.Getenv("TTD_EXEC_TIMEOUT")); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			cfg.ExecTimeout = parsed
		}
	}
	if raw := strings.TrimSpace(os.Getenv("TTD_HISTORY_TURNS")); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.HistoryTurns = value
		}
	}
	return DefaultConfig().Merge(cfg)
}
