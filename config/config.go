// Package config loads, defaults and validates the relay's runtime settings.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// ErrConfiguration marks an invalid startup parameter. It is fatal and is
// reported before any socket is opened.
var ErrConfiguration = errors.New("configuration error")

// Default values for optional configuration fields.
const (
	DefaultReadBufferSize = 4096
	DefaultMaxConnections = 1024
	DefaultMaxEvents      = 1024
	DefaultLogLevel       = "info"
)

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Config holds the relay server settings.
type Config struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadBufferSize int           `yaml:"read_buffer_size"`
	MaxConnections int           `yaml:"max_connections"`
	MaxEvents      int           `yaml:"max_events"`
	PollTimeout    time.Duration `yaml:"poll_timeout"` // 0 blocks until readiness
	Log            LogConfig     `yaml:"log"`
}

// Default returns a Config with every optional field set to its default.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config and applies default values.
func LoadWithDefaults(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads config, applies defaults, and validates.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = DefaultReadBufferSize
	}
	if c.MaxConnections == 0 {
		c.MaxConnections = DefaultMaxConnections
	}
	if c.MaxEvents == 0 {
		c.MaxEvents = DefaultMaxEvents
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

// Validate checks that all values are usable. Every failure wraps
// ErrConfiguration.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be between 1 and 65535, got %d", ErrConfiguration, c.Port)
	}
	if c.ReadBufferSize < 1 {
		return fmt.Errorf("%w: read_buffer_size must be >= 1", ErrConfiguration)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("%w: max_connections must be >= 0", ErrConfiguration)
	}
	if c.MaxEvents < 1 {
		return fmt.Errorf("%w: max_events must be >= 1", ErrConfiguration)
	}
	if c.PollTimeout < 0 {
		return fmt.Errorf("%w: poll_timeout must be >= 0", ErrConfiguration)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrConfiguration, err)
	}
	return nil
}

// Addr returns the host:port the listener binds to.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ParsePort parses a decimal TCP port in the range 1-65535.
func ParsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: port %q is not a number", ErrConfiguration, s)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("%w: port must be between 1 and 65535, got %d", ErrConfiguration, port)
	}
	return port, nil
}
