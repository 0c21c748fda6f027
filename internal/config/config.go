// Package config loads and validates application configuration from YAML
// files and environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Identity      IdentityConfig      `yaml:"identity"`
	Upstream      UpstreamConfig      `yaml:"upstream"`
	Catalog       CatalogConfig       `yaml:"catalog"`
	Cache         CacheConfig         `yaml:"cache"`
	Journal       JournalConfig       `yaml:"journal"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig describes HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	HandlerTimeout  time.Duration `yaml:"handler_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORS            CORSConfig    `yaml:"cors"`
}

// CORSConfig describes Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAge         int      `yaml:"max_age"`
}

// IdentityConfig describes JWT verification for the operator-facing API.
type IdentityConfig struct {
	Issuer       string        `yaml:"issuer"`
	Audience     string        `yaml:"audience"`
	JWKSURL      string        `yaml:"jwks_url"`
	JWKSCacheTTL time.Duration `yaml:"jwks_cache_ttl"`
	Algorithms   []string      `yaml:"algorithms"`
}

// UpstreamConfig describes the configuration backend every remote call
// targets: the screens endpoint, rules store, distro discovery, and help
// content saves share one base URL and credential set.
type UpstreamConfig struct {
	BaseURL     string        `yaml:"base_url"`
	SharedToken string        `yaml:"shared_token"`
	SessionEnv  string        `yaml:"session_env"`
	Timeout     time.Duration `yaml:"timeout"`
	Retry       RetryConfig   `yaml:"retry"`
}

// RetryConfig describes retry settings for idempotent upstream reads.
type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	BackoffInitial    time.Duration `yaml:"backoff_initial"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	BackoffMax        time.Duration `yaml:"backoff_max"`
}

// CatalogConfig describes where widget type definitions are loaded from.
type CatalogConfig struct {
	Directories []string `yaml:"directories"`
}

// CacheConfig describes the revalidating snapshot cache.
type CacheConfig struct {
	MaxAge time.Duration       `yaml:"max_age"`
	Store  SnapshotStoreConfig `yaml:"store"`
}

// SnapshotStoreConfig describes snapshot persistence settings.
type SnapshotStoreConfig struct {
	Driver  string `yaml:"driver"`
	AddrEnv string `yaml:"addr_env"`
	DB      int    `yaml:"db"`
}

// JournalConfig describes publish journal persistence settings.
type JournalConfig struct {
	Driver          string        `yaml:"driver"`
	DSNEnv          string        `yaml:"dsn_env"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// ObservabilityConfig describes logging, tracing, and metrics settings.
type ObservabilityConfig struct {
	LogLevel string        `yaml:"log_level"`
	Tracing  TracingConfig `yaml:"tracing"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// TracingConfig describes distributed tracing settings.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// MetricsConfig describes Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			HandlerTimeout:  25 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORS: CORSConfig{
				AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Authorization", "Content-Type", "X-Correlation-Id"},
				MaxAge:         86400,
			},
		},
		Identity: IdentityConfig{
			JWKSCacheTTL: 1 * time.Hour,
			Algorithms:   []string{"RS256"},
		},
		Upstream: UpstreamConfig{
			SessionEnv: "APPCANVAS_UPSTREAM_SESSION",
			Timeout:    10 * time.Second,
			Retry: RetryConfig{
				MaxAttempts:       3,
				BackoffInitial:    100 * time.Millisecond,
				BackoffMultiplier: 2,
				BackoffMax:        2 * time.Second,
			},
		},
		Catalog: CatalogConfig{
			Directories: []string{"/widget-types"},
		},
		Cache: CacheConfig{
			MaxAge: 5 * time.Minute,
			Store: SnapshotStoreConfig{
				Driver:  "memory",
				AddrEnv: "APPCANVAS_REDIS_ADDR",
			},
		},
		Journal: JournalConfig{
			Driver:          "memory",
			DSNEnv:          "APPCANVAS_JOURNAL_DSN",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
			Tracing: TracingConfig{
				Exporter:     "otlp",
				SamplingRate: 0.1,
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}

// Load reads a YAML config file, applies environment variable overrides,
// and validates required fields.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required fields are present and valid.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.Identity.Issuer == "" {
		errs = append(errs, "identity.issuer is required")
	}
	if c.Identity.JWKSURL == "" {
		errs = append(errs, "identity.jwks_url is required")
	}
	if c.Identity.Audience == "" {
		errs = append(errs, "identity.audience is required")
	}
	if c.Upstream.BaseURL == "" {
		errs = append(errs, "upstream.base_url is required")
	}
	if c.Upstream.SharedToken == "" {
		errs = append(errs, "upstream.shared_token is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// applyEnvOverrides reads APPCANVAS_* environment variables and overrides
// config values. Only the most commonly overridden fields are supported.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("APPCANVAS_SERVER_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("APPCANVAS_IDENTITY_ISSUER"); v != "" {
		cfg.Identity.Issuer = v
	}
	if v := os.Getenv("APPCANVAS_IDENTITY_JWKS_URL"); v != "" {
		cfg.Identity.JWKSURL = v
	}
	if v := os.Getenv("APPCANVAS_IDENTITY_AUDIENCE"); v != "" {
		cfg.Identity.Audience = v
	}
	if v := os.Getenv("APPCANVAS_UPSTREAM_BASE_URL"); v != "" {
		cfg.Upstream.BaseURL = v
	}
	if v := os.Getenv("APPCANVAS_UPSTREAM_SHARED_TOKEN"); v != "" {
		cfg.Upstream.SharedToken = v
	}
	if v := os.Getenv("APPCANVAS_OBSERVABILITY_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
}
