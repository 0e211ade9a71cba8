package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// LogConfig is read from the environment so logging can be tuned without
// touching the options file.
type LogConfig struct {
	Level    string `env:"HTMVIZ_LOG_LEVEL" envDefault:"info"`
	Format   string `env:"HTMVIZ_LOG_FORMAT" envDefault:"console"`
	Output   string `env:"HTMVIZ_LOG_OUTPUT" envDefault:"stderr"`
	FilePath string `env:"HTMVIZ_LOG_FILE" envDefault:"htmviz.log"`
}

func LoadLogConfig() (LogConfig, error) {
	var cfg LogConfig
	if err := env.Parse(&cfg); err != nil {
		return LogConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
