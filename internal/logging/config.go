package logging

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration, loaded via internal/config's layered
// koanf loader.
type Config struct {
	Level  zapcore.Level     `koanf:"level"`
	Format string            `koanf:"format"`
	Fields map[string]string `koanf:"fields"`
	Caller CallerConfig      `koanf:"caller"`
}

// CallerConfig controls caller information in log records.
type CallerConfig struct {
	Enabled bool `koanf:"enabled"`
	Skip    int  `koanf:"skip"`
}

// NewDefaultConfig returns production-ready defaults: info level, JSON
// output, one constant field identifying the service.
func NewDefaultConfig() *Config {
	return &Config{
		Level:  zapcore.InfoLevel,
		Format: "json",
		Fields: map[string]string{
			"service": "conceptrag",
		},
		Caller: CallerConfig{
			Enabled: true,
			Skip:    1,
		},
	}
}

// Validate checks the config for errors before a Logger is built from it.
func (c *Config) Validate() error {
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("logging: format must be 'json' or 'console', got %q", c.Format)
	}
	if c.Caller.Enabled && c.Caller.Skip < 0 {
		return fmt.Errorf("logging: caller skip must be >= 0, got %d", c.Caller.Skip)
	}
	for k, v := range c.Fields {
		if k == "" {
			return fmt.Errorf("logging: field key cannot be empty")
		}
		if v == "" {
			return fmt.Errorf("logging: field %q has empty value", k)
		}
	}
	return nil
}
