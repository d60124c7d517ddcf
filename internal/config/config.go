package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all command-line driver configuration.
type Config struct {
	Bitly         BitlyConfig
	App           AppConfig
	Observability ObservabilityConfig
}

// BitlyConfig holds the API credentials and transport settings.
type BitlyConfig struct {
	AccessToken string        `envconfig:"BITLY_ACCESS_TOKEN" required:"true"`
	APIBaseURL  string        `envconfig:"BITLY_API_BASE_URL" default:"https://api-ssl.bitly.com/v4"`
	HTTPTimeout time.Duration `envconfig:"BITLY_HTTP_TIMEOUT" default:"30s"`
}

// Validate validates the Bitly configuration.
func (c *BitlyConfig) Validate() error {
	if c.AccessToken == "" {
		return fmt.Errorf("access token cannot be empty")
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("invalid API base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API base URL must be absolute, got %q", c.APIBaseURL)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP timeout must be positive")
	}
	return nil
}

// AppConfig holds application-specific configuration.
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"production"` // development, staging, production, test
	LogLevel    string `envconfig:"LOG_LEVEL" default:"warn"`     // debug, info, warn, error
}

// Validate validates the app configuration.
func (c *AppConfig) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
		"test":        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s (must be one of: development, staging, production, test)", c.Environment)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	return nil
}

// ObservabilityConfig holds configuration for tracing.
type ObservabilityConfig struct {
	Enabled        bool   `envconfig:"OTEL_ENABLED" default:"false"`
	ServiceName    string `envconfig:"OTEL_SERVICE_NAME" default:"bitly-cli"`
	ServiceVersion string `envconfig:"OTEL_SERVICE_VERSION"`
	OTelEndpoint   string `envconfig:"OTEL_ENDPOINT"`
	OTelInsecure   bool   `envconfig:"OTEL_INSECURE"`
}

// Validate validates the observability configuration.
func (c *ObservabilityConfig) Validate() error {
	// Only require these when tracing is enabled.
	if c.Enabled {
		if c.ServiceName == "" {
			return fmt.Errorf("service name is required when observability is enabled")
		}
		if c.OTelEndpoint == "" {
			return fmt.Errorf("OTEL endpoint is required when observability is enabled")
		}
	}
	return nil
}

// Load loads configuration from environment variables only.
// (.env loading happens in internal/app, not here.)
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process("", &cfg.Bitly); err != nil {
		return nil, fmt.Errorf("failed to load Bitly config: %w", err)
	}
	if err := cfg.Bitly.Validate(); err != nil {
		return nil, fmt.Errorf("invalid Bitly config: %w", err)
	}

	if err := envconfig.Process("", &cfg.App); err != nil {
		return nil, fmt.Errorf("failed to load App config: %w", err)
	}
	if err := cfg.App.Validate(); err != nil {
		return nil, fmt.Errorf("invalid App config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Observability); err != nil {
		return nil, fmt.Errorf("failed to load Observability config: %w", err)
	}
	if err := cfg.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid Observability config: %w", err)
	}

	return cfg, nil
}
