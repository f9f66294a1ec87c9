package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/flowscope/flowscope/internal/errors"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Configuration Types
// =============================================================================

// Config is the root configuration structure for flowscoped.
type Config struct {
	// Server configures the HTTP API surface.
	Server ServerConfig `yaml:"server"`

	// Data locates the telemetry resources, manifest, and topology.
	Data DataConfig `yaml:"data"`

	// Fetch configures the resource fetcher.
	Fetch FetchConfig `yaml:"fetch"`

	// Stats configures per-series statistics.
	Stats StatsConfig `yaml:"stats"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Listen is the HTTP listen address. Format: "host:port" or ":port".
	Listen string `yaml:"listen"`

	// ShutdownTimeout bounds graceful drain on shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DataConfig locates telemetry data.
//
// BaseURL selects the HTTP fetcher ("https://host/sim"); Dir selects the
// filesystem fetcher for local datasets. Exactly one must be set.
type DataConfig struct {
	BaseURL  string `yaml:"base_url"`
	Dir      string `yaml:"dir"`
	Manifest string `yaml:"manifest"`
	Topology string `yaml:"topology"`
}

// FetchConfig holds resource fetcher settings.
type FetchConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	UserAgent      string        `yaml:"user_agent"`
	MaxPayloadSize int64         `yaml:"max_payload_size"`
}

// StatsConfig holds statistics settings.
type StatsConfig struct {
	// Accuracy is the DDSketch relative accuracy for percentiles.
	Accuracy float64 `yaml:"accuracy"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	JSON  bool   `yaml:"json"`
}

// =============================================================================
// Defaults and Load
// =============================================================================

// Default returns a Config populated with documented defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:          DefaultListenAddress,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Data: DataConfig{
			Manifest: DefaultManifestPath,
			Topology: DefaultTopologyPath,
		},
		Fetch: FetchConfig{
			Timeout:        DefaultFetchTimeout,
			UserAgent:      DefaultUserAgent,
			MaxPayloadSize: DefaultMaxPayloadSize,
		},
		Stats: StatsConfig{
			Accuracy: DefaultSketchAccuracy,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, applying defaults for any
// field the file does not set. Environment variables in the file are
// expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// =============================================================================
// Validate
// =============================================================================

// Validate validates the configuration.
func Validate(cfg *Config) error {
	errs := errors.NewValidationErrors()

	if cfg.Server.Listen == "" {
		errs.AddField("server.listen", "cannot be empty")
	}

	switch {
	case cfg.Data.BaseURL == "" && cfg.Data.Dir == "":
		errs.AddField("data", "one of base_url or dir is required")
	case cfg.Data.BaseURL != "" && cfg.Data.Dir != "":
		errs.AddField("data", "base_url and dir are mutually exclusive")
	case cfg.Data.BaseURL != "":
		u, err := url.Parse(cfg.Data.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs.AddField("data.base_url", "must be an absolute URL")
		}
	}

	if cfg.Data.Manifest == "" {
		errs.AddMissing("data.manifest")
	}
	if cfg.Data.Topology == "" {
		errs.AddMissing("data.topology")
	}

	if cfg.Fetch.Timeout <= 0 {
		errs.AddField("fetch.timeout", "must be positive")
	}
	if cfg.Fetch.MaxPayloadSize <= 0 {
		errs.AddField("fetch.max_payload_size", "must be positive")
	}

	if cfg.Stats.Accuracy <= 0 || cfg.Stats.Accuracy >= 1 {
		errs.AddField("stats.accuracy", "must be in (0, 1)")
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs.AddField("log.level", "must be one of debug, info, warn, error")
	}

	return errs.Err()
}
