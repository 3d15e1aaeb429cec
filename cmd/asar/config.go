package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// configEnv names the environment variable consulted when --config is not
// given.
const configEnv = "ASAR_CONFIG"

// Config is the optional configuration file for the asar command.
type Config struct {
	// LogLevel is one of debug, info, warn or error.
	// Default: info
	LogLevel string `yaml:"log_level"`

	// Pack holds defaults for the pack subcommand.
	Pack PackConfig `yaml:"pack"`
}

// PackConfig holds defaults for the pack subcommand. Flags override them.
type PackConfig struct {
	// Sorted walks directories in name order for reproducible archives.
	Sorted bool `yaml:"sorted"`

	// MatchBasename and Unpack are accepted but not applied.
	MatchBasename bool     `yaml:"match_basename"`
	Unpack        []string `yaml:"unpack"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{LogLevel: "info"}
}

// LoadConfig loads the file at path, or the file named by ASAR_CONFIG when
// path is empty. With neither set it returns the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(configEnv)
	}
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadConfigFile(path)
}

// LoadConfigFile loads and validates the YAML file at path. Unknown keys are
// rejected.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path is operator-provided
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that all fields hold supported values.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
