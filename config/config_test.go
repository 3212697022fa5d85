package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultReadBufferSize, cfg.ReadBufferSize)
	assert.Equal(t, DefaultMaxConnections, cfg.MaxConnections)
	assert.Equal(t, DefaultMaxEvents, cfg.MaxEvents)
	assert.Equal(t, time.Duration(0), cfg.PollTimeout)
	assert.Equal(t, "info", cfg.Log.Level)

	// a default config has no port yet
	assert.ErrorIs(t, cfg.Validate(), ErrConfiguration)
	cfg.Port = 9000
	assert.NoError(t, cfg.Validate())
}

func TestLoadAndValidate(t *testing.T) {
	t.Setenv("RELAY_PORT", "7070")
	path := writeConfig(t, `
host: 127.0.0.1
port: ${RELAY_PORT}
read_buffer_size: 512
poll_timeout: 250ms
log:
  level: debug
  development: true
`)

	cfg, err := LoadAndValidate(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, 512, cfg.ReadBufferSize)
	assert.Equal(t, DefaultMaxEvents, cfg.MaxEvents)
	assert.Equal(t, 250*time.Millisecond, cfg.PollTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Development)
	assert.Equal(t, "127.0.0.1:7070", cfg.Addr())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "port: [1, 2")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Port = 0 }},
		{"port too large", func(c *Config) { c.Port = 65536 }},
		{"read buffer", func(c *Config) { c.ReadBufferSize = -1 }},
		{"max connections", func(c *Config) { c.MaxConnections = -1 }},
		{"max events", func(c *Config) { c.MaxEvents = -5 }},
		{"poll timeout", func(c *Config) { c.PollTimeout = -time.Second }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Port = 8080
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrConfiguration)
		})
	}
}

func TestParsePort(t *testing.T) {
	port, err := ParsePort("8080")
	require.NoError(t, err)
	assert.Equal(t, 8080, port)

	port, err = ParsePort(" 1 ")
	require.NoError(t, err)
	assert.Equal(t, 1, port)

	for _, bad := range []string{"", "abc", "0", "-1", "65536", "80.5"} {
		_, err := ParsePort(bad)
		assert.ErrorIs(t, err, ErrConfiguration, "input %q", bad)
	}
}
