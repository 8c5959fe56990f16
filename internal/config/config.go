// Package config loads process settings from the environment and session
// setups from map files.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds process-level settings for the radiowar server.
type Config struct {
	Port         int           `env:"RADIOWAR_PORT" envDefault:"8080"`
	DBPath       string        `env:"RADIOWAR_DB_PATH" envDefault:"data/radiowar.db"`
	MapPath      string        `env:"RADIOWAR_MAP_PATH"` // Empty = embedded demo map
	TickInterval time.Duration `env:"RADIOWAR_TICK_INTERVAL" envDefault:"1s"`
	Locale       string        `env:"RADIOWAR_LOCALE" envDefault:"en-US"`
	AdminKey     string        `env:"RADIOWAR_ADMIN_KEY"`
	RelayKey     string        `env:"RADIOWAR_RELAY_KEY"`
	RestartDelay time.Duration `env:"RADIOWAR_RESTART_DELAY" envDefault:"30s"`
	LogLevel     string        `env:"RADIOWAR_LOG_LEVEL" envDefault:"info"`
	CORSOrigins  []string      `env:"CORS_ORIGINS" envSeparator:","`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.TickInterval <= 0 {
		return Config{}, fmt.Errorf("RADIOWAR_TICK_INTERVAL must be positive, got %s", cfg.TickInterval)
	}
	return cfg, nil
}

// SlogLevel maps LogLevel to a slog level. Unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
