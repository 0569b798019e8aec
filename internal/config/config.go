package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig contains HTTP listener settings
type ServerConfig struct {
	Address     string   `yaml:"address"`      // listen address (default: :5001)
	CORSOrigins []string `yaml:"cors_origins"` // allowed origins (default: *)

	SeriesWindowStr string `yaml:"series_window"` // default series window (default: 10m)
	EventsWindowStr string `yaml:"events_window"` // default events window (default: 1h)
}

// StoreConfig contains event store settings
type StoreConfig struct {
	DSN string `yaml:"dsn"` // SQLite DSN (default: :memory:)
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: info)
	Format string `yaml:"format"` // json, console (default: console)
}

// MetricsConfig controls the Prometheus exposition endpoint
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no config file is given
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:     ":5001",
			CORSOrigins: []string{"*"},
		},
		Store:   StoreConfig{DSN: ":memory:"},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// SeriesWindow parses the default series window
// Returns 10 minutes if not configured
func (s *ServerConfig) SeriesWindow() (time.Duration, error) {
	return windowDuration(s.SeriesWindowStr, "series_window", 10*time.Minute)
}

// EventsWindow parses the default events window
// Returns 1 hour if not configured
func (s *ServerConfig) EventsWindow() (time.Duration, error) {
	return windowDuration(s.EventsWindowStr, "events_window", time.Hour)
}

func windowDuration(raw, name string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	duration, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s '%s': %w", name, raw, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", name, duration)
	}
	return duration, nil
}

// Load reads and parses a YAML configuration file. Fields the file omits
// keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides config values from the environment. Called after Load
// so a .env file (or the service manager) can adjust a deployment without
// editing the config file.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("TELEMOCK_ADDR"); v != "" {
		c.Server.Address = v
	}
	if v := os.Getenv("TELEMOCK_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("TELEMOCK_STORE_DSN"); v != "" {
		c.Store.DSN = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console (got %q)", c.Logging.Format)
	}

	if _, err := c.Server.SeriesWindow(); err != nil {
		return err
	}
	if _, err := c.Server.EventsWindow(); err != nil {
		return err
	}

	return nil
}
