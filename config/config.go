// Package config loads the orchestrator's runtime configuration from the
// process environment.
package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Config is the orchestrator's complete runtime configuration.
type Config struct {
	Env string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	MaxWorkers      int  `env:"MAX_WORKERS" envDefault:"5" validate:"min=1,max=100"`
	ScanIntervalSec int  `env:"SCAN_INTERVAL_SEC" envDefault:"10" validate:"min=1,max=60"`
	DaysLogsToKeep  int  `env:"DAYS_LOGS_TO_KEEP" envDefault:"3" validate:"min=1"`
	LogSQLToConsole bool `env:"LOG_SQL_TO_CONSOLE" envDefault:"false"`

	AdminPort   string `env:"ADMIN_PORT" envDefault:"8080"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`
	AdminToken  string `env:"ADMIN_TOKEN" validate:"required_if=Env production,required_if=Env staging"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"required,oneof=debug info warn error"`

	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom   string `env:"RESEND_FROM" validate:"required_if=Env production,required_if=Env staging"`
	AlertTo      string `env:"ALERT_TO" validate:"required_if=Env production,required_if=Env staging"`
}

// Load parses and validates Config from the process environment.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SlogLevel converts LogLevel to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
