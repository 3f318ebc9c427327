// Package config loads engine settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds process-level settings. Statistical settings live on each
// experiment's Configuration instead.
type Config struct {
	DBPath            string        `env:"SL_DB_PATH" envDefault:"./splitlab.db"`
	LogLevel          string        `env:"SL_LOG_LEVEL" envDefault:"info"`
	EvalInterval      time.Duration `env:"SL_EVAL_INTERVAL" envDefault:"1h"`
	EarlyStopInterval time.Duration `env:"SL_EARLY_STOP_INTERVAL" envDefault:"3h"`
	MetricsAddr       string        `env:"SL_METRICS_ADDR"`
	DailyTraffic      int           `env:"SL_DAILY_TRAFFIC" envDefault:"10000"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}
