// Package config handles configuration loading and validation for storefront.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hay-kot/criterio"
	"gopkg.in/yaml.v3"

	"github.com/colonyops/storefront/internal/core/validate"
)

// Config holds the application configuration.
type Config struct {
	Backend       BackendConfig       `yaml:"backend"`
	Session       SessionConfig       `yaml:"session"`
	Search        SearchConfig        `yaml:"search"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Push          PushConfig          `yaml:"push"`
	TUI           TUIConfig           `yaml:"tui"`
	Database      DatabaseConfig      `yaml:"database"`
	DataDir       string              `yaml:"-"` // set by caller, not from config file
}

// BackendConfig describes the storefront HTTP backend.
type BackendConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	CSRFCookie string        `yaml:"csrf_cookie"`
	CSRFHeader string        `yaml:"csrf_header"`
	Paths      BackendPaths  `yaml:"paths"`
}

// BackendPaths are the endpoint paths relative to BaseURL.
type BackendPaths struct {
	Search     string `yaml:"search"`
	CartAdd    string `yaml:"cart_add"`
	Newsletter string `yaml:"newsletter"`
}

// SessionConfig identifies the signed-in user. An empty UserID is an
// anonymous session.
type SessionConfig struct {
	UserID    string `yaml:"user_id"`
	CSRFToken string `yaml:"csrf_token"` // overrides the token read from the cookie jar
}

// SearchConfig tunes live search.
type SearchConfig struct {
	QuietPeriod time.Duration `yaml:"quiet_period"`
	MinLength   int           `yaml:"min_length"`
}

// NotificationsConfig tunes the toast queue and its history.
type NotificationsConfig struct {
	MaxVisible   int           `yaml:"max_visible"`
	TTL          time.Duration `yaml:"ttl"`
	MinDisplay   time.Duration `yaml:"min_display"`
	History      bool          `yaml:"history"`
	HistoryLimit int           `yaml:"history_limit"`
}

// PushConfig describes the push notification channel.
type PushConfig struct {
	Path             string          `yaml:"path"` // must contain {user_id}
	HandshakeTimeout time.Duration   `yaml:"handshake_timeout"`
	Reconnect        ReconnectConfig `yaml:"reconnect"`
}

// ReconnectConfig controls push channel reconnection.
type ReconnectConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BaseDelay     time.Duration `yaml:"base_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	JitterPercent int           `yaml:"jitter_percent"`
	MaxAttempts   int           `yaml:"max_attempts"` // 0 retries forever
	StableAfter   time.Duration `yaml:"stable_after"` // 0 uses base_delay
}

// TUIConfig holds terminal UI settings.
type TUIConfig struct {
	Theme         string        `yaml:"theme"`
	PulseDuration time.Duration `yaml:"pulse_duration"`
}

// DatabaseConfig holds SQLite connection settings.
type DatabaseConfig struct {
	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`
	BusyTimeout  int `yaml:"busy_timeout"` // milliseconds
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			BaseURL:    "http://localhost:8000",
			Timeout:    10 * time.Second,
			CSRFCookie: "csrftoken",
			CSRFHeader: "X-CSRFToken",
			Paths: BackendPaths{
				Search:     "/search/",
				CartAdd:    "/cart/add/",
				Newsletter: "/newsletter/subscribe/",
			},
		},
		Search: SearchConfig{
			QuietPeriod: 300 * time.Millisecond,
			MinLength:   2,
		},
		Notifications: NotificationsConfig{
			MaxVisible:   5,
			TTL:          5 * time.Second,
			MinDisplay:   time.Second,
			History:      true,
			HistoryLimit: 50,
		},
		Push: PushConfig{
			Path:             "/ws/notifications/{user_id}/",
			HandshakeTimeout: 10 * time.Second,
			Reconnect: ReconnectConfig{
				Enabled:       true,
				BaseDelay:     time.Second,
				MaxDelay:      30 * time.Second,
				JitterPercent: 20,
			},
		},
		TUI: TUIConfig{
			Theme:         "tokyo-night",
			PulseDuration: time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns: 4,
			MaxIdleConns: 2,
			BusyTimeout:  5000,
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.DataDir = dataDir
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills zero values that an explicit YAML key may have cleared.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = defaults.Backend.Timeout
	}
	if c.Backend.CSRFCookie == "" {
		c.Backend.CSRFCookie = defaults.Backend.CSRFCookie
	}
	if c.Backend.CSRFHeader == "" {
		c.Backend.CSRFHeader = defaults.Backend.CSRFHeader
	}
	if c.Backend.Paths.Search == "" {
		c.Backend.Paths.Search = defaults.Backend.Paths.Search
	}
	if c.Backend.Paths.CartAdd == "" {
		c.Backend.Paths.CartAdd = defaults.Backend.Paths.CartAdd
	}
	if c.Backend.Paths.Newsletter == "" {
		c.Backend.Paths.Newsletter = defaults.Backend.Paths.Newsletter
	}
	if c.Push.Path == "" {
		c.Push.Path = defaults.Push.Path
	}
	if c.TUI.Theme == "" {
		c.TUI.Theme = defaults.TUI.Theme
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = defaults.Database.BusyTimeout
	}
}

// Validate performs structural validation of the configuration. It does not
// touch the filesystem or network; see ValidateDeep for that.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("data_dir", c.DataDir, required),
		criterio.Run("backend.base_url", c.Backend.BaseURL, validate.HTTPURL),
		criterio.Run("backend.timeout", c.Backend.Timeout, validate.PositiveDuration),
		criterio.Run("backend.paths.search", c.Backend.Paths.Search, validate.URLPath),
		criterio.Run("backend.paths.cart_add", c.Backend.Paths.CartAdd, validate.URLPath),
		criterio.Run("backend.paths.newsletter", c.Backend.Paths.Newsletter, validate.URLPath),
		criterio.Run("search.quiet_period", c.Search.QuietPeriod, validate.NonNegativeDuration),
		criterio.Run("search.min_length", c.Search.MinLength, validate.AtLeast(1)),
		criterio.Run("notifications.max_visible", c.Notifications.MaxVisible, validate.AtLeast(1)),
		criterio.Run("notifications.ttl", c.Notifications.TTL, validate.NonNegativeDuration),
		criterio.Run("notifications.min_display", c.Notifications.MinDisplay, validate.NonNegativeDuration),
		criterio.Run("notifications.history_limit", c.Notifications.HistoryLimit, validate.AtLeast(0)),
		criterio.Run("push.path", c.Push.Path, validatePushPath),
		criterio.Run("push.handshake_timeout", c.Push.HandshakeTimeout, validate.PositiveDuration),
		c.Push.Reconnect.validate(),
		criterio.Run("tui.pulse_duration", c.TUI.PulseDuration, validate.NonNegativeDuration),
		criterio.Run("database.max_open_conns", c.Database.MaxOpenConns, validate.AtLeast(1)),
		criterio.Run("database.max_idle_conns", c.Database.MaxIdleConns, validate.AtLeast(0)),
		criterio.Run("database.busy_timeout", c.Database.BusyTimeout, validate.AtLeast(0)),
	)
}

func (r ReconnectConfig) validate() error {
	if !r.Enabled {
		return nil
	}

	errs := criterio.ValidateStruct(
		criterio.Run("push.reconnect.base_delay", r.BaseDelay, validate.PositiveDuration),
		criterio.Run("push.reconnect.max_delay", r.MaxDelay, validate.PositiveDuration),
		criterio.Run("push.reconnect.jitter_percent", r.JitterPercent, validate.Percent),
		criterio.Run("push.reconnect.max_attempts", r.MaxAttempts, validate.AtLeast(0)),
		criterio.Run("push.reconnect.stable_after", r.StableAfter, validate.NonNegativeDuration),
	)
	if errs != nil {
		return errs
	}

	if r.MaxDelay < r.BaseDelay {
		return criterio.NewFieldErrors("push.reconnect.max_delay",
			fmt.Errorf("must be at least base_delay (%s)", r.BaseDelay))
	}
	return nil
}

func required(s string) error {
	if s == "" {
		return fmt.Errorf("cannot be empty")
	}
	return nil
}

func validatePushPath(p string) error {
	if err := validate.URLPath(p); err != nil {
		return err
	}
	if !strings.Contains(p, "{user_id}") {
		return fmt.Errorf("path must contain the {user_id} placeholder")
	}
	return nil
}

// DatabasePath returns the path of the notification history database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "storefront.db")
}
