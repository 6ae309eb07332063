// Package config provides configuration management for the harvester. It
// handles loading, validation, and access to configuration values from both
// YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Server defaults
const (
	defaultServerAddress      = ":8080"
	defaultServerReadTimeout  = 30 * time.Second
	defaultServerWriteTimeout = 30 * time.Second
	defaultServerIdleTimeout  = 60 * time.Second
)

// Harvester defaults
const (
	defaultStorePath       = "liharvest.db"
	defaultAPIBaseURL      = "https://www.linkedin.com"
	defaultCallDelay       = 300 * time.Millisecond
	defaultPoliteDelay     = 1 * time.Second
	defaultScrollDebounce  = 500 * time.Millisecond
	defaultScrollThreshold = 300.0
)

// ServerConfig holds the HTTP API server settings.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// SessionConfig holds the authenticated LinkedIn session material.
type SessionConfig struct {
	// Cookies is the raw Cookie header copied from an authenticated browser.
	Cookies string `mapstructure:"cookies"`
}

// VoyagerConfig holds REST API client settings.
type VoyagerConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	CallDelay time.Duration `mapstructure:"call_delay"`
}

// StoreConfig holds local persistence settings.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// RelayConfig holds the optional external collector settings. An empty URL
// disables relaying.
type RelayConfig struct {
	URL string `mapstructure:"url"`
}

// FetchConfig holds page-load settings.
type FetchConfig struct {
	PoliteDelay time.Duration `mapstructure:"polite_delay"`
	UserAgent   string        `mapstructure:"user_agent"`
}

// TriggerConfig holds extraction trigger tuning.
type TriggerConfig struct {
	ScrollDebounce  time.Duration `mapstructure:"scroll_debounce"`
	ScrollThreshold float64       `mapstructure:"scroll_threshold"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Encoding    string `mapstructure:"encoding"`
	Development bool   `mapstructure:"development"`
}

// Config is the application configuration.
type Config struct {
	Server   ServerConfig  `mapstructure:"server"`
	Session  SessionConfig `mapstructure:"session"`
	Voyager  VoyagerConfig `mapstructure:"voyager"`
	Store    StoreConfig   `mapstructure:"store"`
	Relay    RelayConfig   `mapstructure:"relay"`
	Fetch    FetchConfig   `mapstructure:"fetch"`
	Triggers TriggerConfig `mapstructure:"triggers"`
	Log      LogConfig     `mapstructure:"log"`
}

// SetDefaults registers every default on the given viper instance. Called
// before reading the config file so file values win.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.address", defaultServerAddress)
	v.SetDefault("server.read_timeout", defaultServerReadTimeout)
	v.SetDefault("server.write_timeout", defaultServerWriteTimeout)
	v.SetDefault("server.idle_timeout", defaultServerIdleTimeout)

	v.SetDefault("voyager.base_url", defaultAPIBaseURL)
	v.SetDefault("voyager.call_delay", defaultCallDelay)

	v.SetDefault("store.path", defaultStorePath)

	v.SetDefault("fetch.polite_delay", defaultPoliteDelay)

	v.SetDefault("triggers.scroll_debounce", defaultScrollDebounce)
	v.SetDefault("triggers.scroll_threshold", defaultScrollThreshold)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
}

// Load materializes the configuration from the given viper instance.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks settings every command needs. Commands with extra
// requirements (a live session, a server address) validate those themselves.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return errors.New("store.path must not be empty")
	}
	if c.Voyager.BaseURL == "" {
		return errors.New("voyager.base_url must not be empty")
	}
	if c.Voyager.CallDelay < 0 {
		return errors.New("voyager.call_delay must not be negative")
	}
	if c.Triggers.ScrollThreshold < 0 {
		return errors.New("triggers.scroll_threshold must not be negative")
	}
	return nil
}

// ValidateSession additionally requires usable session material.
func (c *Config) ValidateSession() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Session.Cookies) == "" {
		return errors.New("session.cookies must be set for authenticated commands")
	}
	return nil
}

// ValidateServer additionally requires a listen address.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Server.Address == "" {
		return errors.New("server.address must not be empty")
	}
	return nil
}
