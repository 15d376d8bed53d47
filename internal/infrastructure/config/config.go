// Package config loads the server configuration and builds the logger.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/messaging"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked up when no path is given.
const DefaultFile = "comesocial.yaml"

// Environment overrides.
const (
	EnvAddr     = "COMESOCIAL_ADDR"
	EnvDB       = "COMESOCIAL_DB"
	EnvLogLevel = "COMESOCIAL_LOG_LEVEL"
)

// StorageConfig selects the draft and plan store.
type StorageConfig struct {
	Driver string `yaml:"driver"` // "memory" or "sqlite"
	Path   string `yaml:"path,omitempty"`
}

// PresenceConfig tunes presence expiry.
type PresenceConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// VenueConfig selects the venue lookup. Plugin wins over Catalog when both
// are set.
type VenueConfig struct {
	Catalog string        `yaml:"catalog,omitempty"`
	Watch   bool          `yaml:"watch,omitempty"`
	Plugin  string        `yaml:"plugin,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// ServerConfig is the whole server configuration.
type ServerConfig struct {
	Addr      string                    `yaml:"addr"`
	Storage   StorageConfig             `yaml:"storage"`
	EventLog  string                    `yaml:"event_log,omitempty"`
	Presence  PresenceConfig            `yaml:"presence"`
	Venues    VenueConfig               `yaml:"venues"`
	Messaging messaging.MessagingConfig `yaml:"messaging"`
	Log       LogConfig                 `yaml:"log"`
}

// Defaults returns the configuration used when no file exists.
func Defaults() *ServerConfig {
	return &ServerConfig{
		Addr:    ":8080",
		Storage: StorageConfig{Driver: "memory"},
		Presence: PresenceConfig{
			Timeout:       30 * time.Second,
			SweepInterval: 5 * time.Second,
		},
		Venues: VenueConfig{Timeout: 3 * time.Second},
		Messaging: messaging.MessagingConfig{
			Adapters: []messaging.AdapterConfig{{Name: "log", Type: "log", Enabled: true}},
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// Environment overrides apply last.
func Load(path string) (*ServerConfig, error) {
	cfg := Defaults()
	if path == "" {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func Save(path string, cfg *ServerConfig) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create config dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0600)
}

func (c *ServerConfig) applyEnv() {
	if v := os.Getenv(EnvAddr); v != "" {
		c.Addr = v
	}
	if v := os.Getenv(EnvDB); v != "" {
		c.Storage.Driver = "sqlite"
		c.Storage.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// Validate reports the first invalid setting.
func (c *ServerConfig) Validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Presence.Timeout <= 0 {
		return fmt.Errorf("presence.timeout must be positive")
	}
	if c.Presence.SweepInterval <= 0 || c.Presence.SweepInterval > c.Presence.Timeout {
		return fmt.Errorf("presence.sweep_interval must be positive and at most presence.timeout")
	}
	if c.Venues.Watch && c.Venues.Catalog == "" {
		return fmt.Errorf("venues.watch needs venues.catalog")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// NewLogger builds the slog logger described by cfg, writing to stderr.
func NewLogger(cfg LogConfig) *slog.Logger {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
