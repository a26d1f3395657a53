// Package config provides configuration loading for inflight.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/iliamunaev/inflight/internal/apperr"
	"github.com/iliamunaev/inflight/internal/logging"
	"github.com/iliamunaev/inflight/internal/pool"
)

// Config holds the complete inflight configuration.
type Config struct {
	Tracker TrackerConfig `koanf:"tracker"`
	Server  ServerConfig  `koanf:"server"`
	Fetch   FetchConfig   `koanf:"fetch"`
	Log     LogConfig     `koanf:"log"`
}

// TrackerConfig holds the exclusion rules registered at startup.
type TrackerConfig struct {
	ExcludedPaths     []string `koanf:"excluded_paths"`
	ExplicitTerminals bool     `koanf:"explicit_terminals"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Metrics         bool          `koanf:"metrics"`
}

// FetchConfig bounds outbound calls.
type FetchConfig struct {
	Concurrency    int           `koanf:"concurrency"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// LogConfig selects the zap level and encoder.
type LogConfig struct {
	Level  string `koanf:"level"`  // trace, debug, info, warn, error
	Format string `koanf:"format"` // json or console
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Fetch.Concurrency == 0 {
		cfg.Fetch.Concurrency = 8
	}
	if cfg.Fetch.RequestTimeout == 0 {
		cfg.Fetch.RequestTimeout = 10 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

// Validate reports every invalid field, each wrapped with apperr.ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{apperr.ErrInvalidConfig}, args...)...))
	}

	for i, p := range c.Tracker.ExcludedPaths {
		if p == "" {
			invalid("tracker.excluded_paths[%d] is empty", i)
		}
	}
	if c.Server.Addr == "" {
		invalid("server.addr is required")
	}
	if c.Server.ShutdownTimeout < 0 {
		invalid("server.shutdown_timeout must not be negative")
	}
	if c.Fetch.Concurrency < 1 || c.Fetch.Concurrency > pool.MaxSize {
		invalid("fetch.concurrency must be between 1 and %d, got %d", pool.MaxSize, c.Fetch.Concurrency)
	}
	if c.Fetch.RequestTimeout < 0 {
		invalid("fetch.request_timeout must not be negative")
	}
	if _, err := logging.LevelFromString(c.Log.Level); err != nil {
		invalid("log.level %q", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		invalid("log.format must be 'json' or 'console', got %q", c.Log.Format)
	}

	return errors.Join(errs...)
}

// Logging converts the log section into a logging.Config.
func (c *Config) Logging() (*logging.Config, error) {
	level, err := logging.LevelFromString(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: log.level %q", apperr.ErrInvalidConfig, c.Log.Level)
	}
	lc := logging.NewDefaultConfig()
	lc.Level = level
	lc.Format = c.Log.Format
	return lc, nil
}
