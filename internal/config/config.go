// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port      string
	Env       string // "development", "staging", "production"
	LogLevel  string
	LogFormat string // "text" or "json"

	// Risk Model Provider
	ModelProviderURL     string // scoring endpoint base URL; empty selects the neutral static provider (development only)
	ModelProviderTimeout time.Duration

	// Asset graph
	GraphMaxSequences int // retained past sequences per risky asset

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint; empty disables tracing
}

// Defaults.
const (
	DefaultPort             = "8080"
	DefaultEnv              = "development"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	DefaultProviderTimeout  = 2000 // milliseconds
	DefaultGraphSequenceCap = 16
)

// Load reads configuration from environment variables. A .env file is
// loaded first if present (local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", DefaultPort),
		Env:                  getEnv("ENV", DefaultEnv),
		LogLevel:             getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:            getEnv("LOG_FORMAT", DefaultLogFormat),
		ModelProviderURL:     os.Getenv("MODEL_PROVIDER_URL"),
		ModelProviderTimeout: time.Duration(getEnvInt("MODEL_PROVIDER_TIMEOUT_MS", DefaultProviderTimeout)) * time.Millisecond,
		GraphMaxSequences:    getEnvInt("GRAPH_MAX_SEQUENCES", DefaultGraphSequenceCap),
		OTLPEndpoint:         os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present and coherent.
func (c *Config) Validate() error {
	if c.IsProduction() && c.ModelProviderURL == "" {
		return fmt.Errorf("MODEL_PROVIDER_URL is required in production")
	}
	if c.ModelProviderTimeout <= 0 {
		return fmt.Errorf("MODEL_PROVIDER_TIMEOUT_MS must be positive")
	}
	if c.GraphMaxSequences <= 0 {
		return fmt.Errorf("GRAPH_MAX_SEQUENCES must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
