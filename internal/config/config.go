// Package config loads directoryd configuration.
//
// Values come from, in increasing precedence: built-in defaults, a YAML file,
// and DIRECTORYD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds the complete directoryd configuration.
type Config struct {
	Server      ServerConfig                `koanf:"server" yaml:"server"`
	Source      SourceConfig                `koanf:"source" yaml:"source"`
	Collections map[string]CollectionConfig `koanf:"collections" yaml:"collections"`
	Logging     LoggingConfig               `koanf:"logging" yaml:"logging"`
	Telemetry   TelemetryConfig             `koanf:"telemetry" yaml:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host" yaml:"host"`
	Port            int      `koanf:"http_port" yaml:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Addr returns host:port for the listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SourceConfig describes the upstream collection API.
type SourceConfig struct {
	BaseURL   string   `koanf:"base_url" yaml:"base_url"`
	Token     Secret   `koanf:"token" yaml:"token"`
	Timeout   Duration `koanf:"timeout" yaml:"timeout"`
	RateLimit float64  `koanf:"rate_limit" yaml:"rate_limit"` // requests per second, 0 disables
	Burst     int      `koanf:"burst" yaml:"burst"`
}

// CollectionConfig overrides or defines one collection. Keys of
// Config.Collections are collection kinds; built-in kinds only need the
// fields they change.
type CollectionConfig struct {
	Resource      string            `koanf:"resource" yaml:"resource"`
	CategoryField string            `koanf:"category_field" yaml:"category_field"`
	IDFields      []string          `koanf:"id_fields" yaml:"id_fields"`
	Grouped       *bool             `koanf:"grouped" yaml:"grouped"`
	Priority      []string          `koanf:"priority" yaml:"priority"`
	Labels        map[string]string `koanf:"labels" yaml:"labels"`
	Messages      MessagesConfig    `koanf:"messages" yaml:"messages"`
	SeedFile      string            `koanf:"seed_file" yaml:"seed_file"`
	SeedOnly      bool              `koanf:"seed_only" yaml:"seed_only"`
	WatchSeed     bool              `koanf:"watch_seed" yaml:"watch_seed"`
	Disabled      bool              `koanf:"disabled" yaml:"disabled"`
}

// MessagesConfig overrides the fixed user-facing texts.
type MessagesConfig struct {
	LoadFailed    string `koanf:"load_failed" yaml:"load_failed"`
	EmptyAll      string `koanf:"empty_all" yaml:"empty_all"`
	EmptyFiltered string `koanf:"empty_filtered" yaml:"empty_filtered"`
}

// LoggingConfig selects log level and format.
type LoggingConfig struct {
	Level    string `koanf:"level" yaml:"level"`
	Format   string `koanf:"format" yaml:"format"`
	Sampling bool   `koanf:"sampling" yaml:"sampling"`
	OTEL     bool   `koanf:"otel" yaml:"otel"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled        bool     `koanf:"enabled" yaml:"enabled"`
	Endpoint       string   `koanf:"endpoint" yaml:"endpoint"`
	Protocol       string   `koanf:"protocol" yaml:"protocol"` // grpc or http/protobuf
	Insecure       bool     `koanf:"insecure" yaml:"insecure"`
	TLSSkipVerify  bool     `koanf:"tls_skip_verify" yaml:"tls_skip_verify"`
	ServiceName    string   `koanf:"service_name" yaml:"service_name"`
	SampleRate     float64  `koanf:"sample_rate" yaml:"sample_rate"`
	ExportInterval Duration `koanf:"export_interval" yaml:"export_interval"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9191
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Source.BaseURL == "" {
		cfg.Source.BaseURL = "http://localhost:5000/api"
	}
	if cfg.Source.Timeout == 0 {
		cfg.Source.Timeout = Duration(10 * time.Second)
	}
	if cfg.Source.Burst == 0 {
		cfg.Source.Burst = 1
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "directoryd"
	}
	if cfg.Telemetry.SampleRate == 0 {
		cfg.Telemetry.SampleRate = 1.0
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = Duration(15 * time.Second)
	}
}

// Validation errors.
var (
	ErrInvalidPort     = errors.New("invalid server port")
	ErrInvalidBaseURL  = errors.New("source base_url must be an absolute http(s) URL")
	ErrInvalidResource = errors.New("collection resource must start with '/'")
)

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: %d (must be 1-65535)", ErrInvalidPort, c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	u, err := url.Parse(c.Source.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.Source.BaseURL)
	}
	if c.Source.Timeout.Duration() <= 0 {
		return errors.New("source timeout must be positive")
	}
	if c.Source.RateLimit < 0 {
		return fmt.Errorf("source rate_limit must be >= 0, got %v", c.Source.RateLimit)
	}
	if c.Source.Burst < 1 {
		return fmt.Errorf("source burst must be >= 1, got %d", c.Source.Burst)
	}

	for kind, cc := range c.Collections {
		if strings.TrimSpace(kind) == "" {
			return errors.New("collection kind must not be empty")
		}
		if cc.Resource != "" && !strings.HasPrefix(cc.Resource, "/") {
			return fmt.Errorf("collections.%s: %w", kind, ErrInvalidResource)
		}
		if cc.WatchSeed && cc.SeedFile == "" {
			return fmt.Errorf("collections.%s: watch_seed requires seed_file", kind)
		}
	}

	switch c.Telemetry.Protocol {
	case "grpc", "http/protobuf":
	default:
		return fmt.Errorf("telemetry protocol must be grpc or http/protobuf, got %q", c.Telemetry.Protocol)
	}

	return nil
}
