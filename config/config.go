// Package config assembles the bridge configuration from defaults, an
// optional yaml file and environment overrides, in that order.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultURL            = "ws://localhost:8080"
	DefaultCommandTimeout = 10 * time.Second
	DefaultMaxRetries     = 3
	DefaultRetryDelay     = 2 * time.Second
	DefaultLogLevel       = "info"
)

type Config struct {
	URL            string
	CommandTimeout time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	LogLevel       string
}

// fileConfig is the yaml shape. Durations are plain milliseconds; zero
// values mean "keep the current setting".
type fileConfig struct {
	URL              string `yaml:"url"`
	CommandTimeoutMS int    `yaml:"command_timeout_ms"`
	MaxRetries       *int   `yaml:"max_retries"`
	RetryDelayMS     int    `yaml:"retry_delay_ms"`
	LogLevel         string `yaml:"log_level"`
}

func Default() Config {
	return Config{
		URL:            DefaultURL,
		CommandTimeout: DefaultCommandTimeout,
		MaxRetries:     DefaultMaxRetries,
		RetryDelay:     DefaultRetryDelay,
		LogLevel:       DefaultLogLevel,
	}
}

// Load builds the configuration. path may be empty; the environment
// always wins over the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
		fc.apply(&cfg)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (fc fileConfig) apply(cfg *Config) {
	if fc.URL != "" {
		cfg.URL = fc.URL
	}
	if fc.CommandTimeoutMS > 0 {
		cfg.CommandTimeout = time.Duration(fc.CommandTimeoutMS) * time.Millisecond
	}
	if fc.MaxRetries != nil {
		cfg.MaxRetries = *fc.MaxRetries
	}
	if fc.RetryDelayMS > 0 {
		cfg.RetryDelay = time.Duration(fc.RetryDelayMS) * time.Millisecond
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PINOCCHIO_WS_URL"); v != "" {
		cfg.URL = v
	}
	if v := os.Getenv("PINOCCHIO_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	var err error
	if cfg.CommandTimeout, err = envMillis("PINOCCHIO_COMMAND_TIMEOUT_MS", cfg.CommandTimeout); err != nil {
		return err
	}
	if cfg.RetryDelay, err = envMillis("PINOCCHIO_RETRY_DELAY_MS", cfg.RetryDelay); err != nil {
		return err
	}

	if v := os.Getenv("PINOCCHIO_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PINOCCHIO_MAX_RETRIES: %w", err)
		}
		cfg.MaxRetries = n
	}
	return nil
}

func envMillis(name string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", name, err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func (c Config) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid renderer url %q: %w", c.URL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("renderer url %q: scheme must be ws or wss", c.URL)
	}
	if c.CommandTimeout <= 0 {
		return fmt.Errorf("command timeout must be positive, got %v", c.CommandTimeout)
	}
	if c.RetryDelay <= 0 {
		return fmt.Errorf("retry delay must be positive, got %v", c.RetryDelay)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries)
	}
	return nil
}
