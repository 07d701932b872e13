package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables read by FromEnv.
const (
	EnvConfigPath    = "REFCROP_CONFIG"
	EnvLogLevel      = "REFCROP_LOG_LEVEL"
	EnvOutputPrefix  = "REFCROP_OUTPUT_PREFIX"
	EnvMaxNameLength = "REFCROP_MAX_NAME_LENGTH"
	EnvMetricsAddr   = "REFCROP_METRICS_ADDR"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the server settings.
type Config struct {
	OutputPrefix  string `yaml:"output_prefix"`   // Reserved prefix for cropped images (default: CR_)
	MaxNameLength int    `yaml:"max_name_length"` // Host resource name limit in bytes (default: 63)
	LogLevel      string `yaml:"log_level"`       // debug, info, warn, error (default: info)
	AutoUpdate    bool   `yaml:"auto_update"`     // Initial auto update for new objects (default: true)
	MetricsAddr   string `yaml:"metrics_addr"`    // Prometheus listen address, e.g. 127.0.0.1:9464 (default: off)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		OutputPrefix:  "CR_",
		MaxNameLength: 63,
		LogLevel:      "info",
		AutoUpdate:    true,
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds the configuration from an optional file named by path (or
// REFCROP_CONFIG when path is empty) and then applies environment overrides.
func FromEnv(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}

	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvOutputPrefix); v != "" {
		cfg.OutputPrefix = v
	}
	if v := os.Getenv(EnvMetricsAddr); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv(EnvMaxNameLength); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be an integer: %v", ErrInvalidConfig, EnvMaxNameLength, err)
		}
		cfg.MaxNameLength = n
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func Validate(cfg *Config) error {
	if cfg.OutputPrefix == "" {
		return fmt.Errorf("%w: output_prefix is required", ErrInvalidConfig)
	}
	// Room for the prefix, a one-character object name, "_" and one character.
	if cfg.MaxNameLength < len(cfg.OutputPrefix)+3 {
		return fmt.Errorf("%w: max_name_length %d too short for prefix %q",
			ErrInvalidConfig, cfg.MaxNameLength, cfg.OutputPrefix)
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ParseLevel maps a level name to a slog level. An empty name is info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
}
