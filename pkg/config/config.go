package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cardinalsites/samlauth/pkg/observability"
	"github.com/cardinalsites/samlauth/pkg/workgroup"
)

// Config holds all service configuration
type Config struct {
	Server        ServerConfig
	PolicyFile    string
	Workgroup     WorkgroupConfig
	Database      DatabaseConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// WorkgroupConfig holds the workgroup API endpoint settings. The client
// certificate pair and timeout live in the policy document; the base URL is
// deployment configuration.
type WorkgroupConfig struct {
	BaseURL string
}

// DatabaseConfig holds the provisioning database settings
type DatabaseConfig struct {
	URL string
}

// Driver returns the database/sql driver name for the configured URL.
func (d DatabaseConfig) Driver() string {
	if strings.HasPrefix(d.URL, "postgres://") || strings.HasPrefix(d.URL, "postgresql://") {
		return "postgres"
	}
	return "sqlite3"
}

// ObservabilityConfig holds logging and metrics settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SAMLAUTH_HOST", "0.0.0.0"),
			Port:            getEnv("SAMLAUTH_PORT", "8080"),
			ReadTimeout:     getEnvDuration("SAMLAUTH_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SAMLAUTH_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SAMLAUTH_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		PolicyFile: getEnv("SAMLAUTH_POLICY_FILE", "samlauth.yaml"),
		Workgroup: WorkgroupConfig{
			BaseURL: getEnv("SAMLAUTH_WORKGROUP_API_URL", workgroup.DefaultBaseURL),
		},
		Database: DatabaseConfig{
			URL: getEnv("SAMLAUTH_DATABASE_URL", ""),
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.ParseLogLevel(getEnv("SAMLAUTH_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("SAMLAUTH_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid server port %q", c.Server.Port)
	}
	if c.PolicyFile == "" {
		return fmt.Errorf("policy file path is required")
	}
	if c.Workgroup.BaseURL == "" {
		return fmt.Errorf("workgroup API base URL is required")
	}
	return nil
}

// getEnv returns the environment variable value or a default
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvBool parses a boolean environment variable
func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return strings.ToLower(value) == "true" || value == "1"
}

// getEnvDuration parses a duration environment variable
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
