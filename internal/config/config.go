// Package config loads service configuration from embedded defaults, an
// optional TOML file and EDIDFORM_ environment variables, in that order.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

//go:embed embedded/defaults.toml
var defaultConfig []byte

// EnvPrefix is the prefix of environment overrides. EDIDFORM_SERVER_PORT
// sets server.port.
const EnvPrefix = "EDIDFORM_"

type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("not implemented")
}

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Rules   RulesConfig   `koanf:"rules"`
	Log     LogConfig     `koanf:"log"`
	Session SessionConfig `koanf:"session"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// RulesConfig points at an optional CUE file unified with the built-in rules.
type RulesConfig struct {
	File string `koanf:"file"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Pretty bool   `koanf:"pretty"`
}

type SessionConfig struct {
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	MaxAge          time.Duration `koanf:"max_age"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// Load reads the configuration. path may be empty.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	// Only the first underscore separates section from key:
	// EDIDFORM_SESSION_IDLE_TIMEOUT -> session.idle_timeout.
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// PORT is honoured for platforms that inject it.
	if p := os.Getenv("PORT"); p != "" && os.Getenv(EnvPrefix+"SERVER_PORT") == "" {
		if v, err := strconv.Atoi(p); err == nil {
			cfg.Server.Port = v
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Session.IdleTimeout <= 0 || c.Session.MaxAge <= 0 {
		return fmt.Errorf("session timeouts must be positive")
	}
	return nil
}
