// Package config provides environment-driven configuration for procledger.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Store backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds all application configuration values.
type Config struct {
	StoreBackend   string
	DatabaseURL    Secret
	SQLitePath     string
	Port           string
	ListenHost     string
	CORSOrigins    []string
	LogLevel       string
	AuditQueueSize int
	AuditRetention int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		StoreBackend: envOrDefault("STORE_BACKEND", BackendSQLite),
		DatabaseURL:  Secret(envOrDefault("DATABASE_URL", "")),
		SQLitePath:   envOrDefault("SQLITE_PATH", "procledger.db"),
		Port:         envOrDefault("PORT", "3040"),
		ListenHost:   envOrDefault("LISTEN_HOST", "127.0.0.1"),
		LogLevel:     envOrDefault("LOG_LEVEL", "info"),
	}

	queueSize, err := strconv.Atoi(envOrDefault("AUDIT_QUEUE_SIZE", "1000"))
	if err != nil || queueSize < 1 {
		return nil, fmt.Errorf("AUDIT_QUEUE_SIZE must be a positive integer")
	}
	cfg.AuditQueueSize = queueSize

	retention, err := strconv.Atoi(envOrDefault("AUDIT_RETENTION", "1000"))
	if err != nil || retention < 1 {
		return nil, fmt.Errorf("AUDIT_RETENTION must be a positive integer")
	}
	cfg.AuditRetention = retention

	origins := envOrDefault("CORS_ORIGINS", "http://localhost:3002")
	cfg.CORSOrigins = strings.Split(origins, ",")

	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

func (c *Config) validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}

	if err := c.validateNetwork(); err != nil {
		return err
	}

	return c.validateCORS()
}

func (c *Config) validateStore() error {
	switch c.StoreBackend {
	case BackendMemory:
		return nil

	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_BACKEND is sqlite")
		}

		return nil

	case BackendPostgres:
		if c.DatabaseURL.Value() == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND is postgres")
		}

		dbURL, err := url.Parse(c.DatabaseURL.Value())
		if err != nil {
			return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
		}

		if dbURL.Scheme != "postgres" && dbURL.Scheme != "postgresql" {
			return fmt.Errorf("DATABASE_URL scheme must be postgres:// or postgresql://")
		}

		if dbURL.Hostname() == "" {
			return fmt.Errorf("DATABASE_URL must include a host")
		}

		return nil
	}

	return fmt.Errorf("STORE_BACKEND must be memory, sqlite, or postgres, got %q", c.StoreBackend)
}

func (c *Config) validateNetwork() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid integer: %w", err)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	return nil
}

func (c *Config) validateCORS() error {
	for _, origin := range c.CORSOrigins {
		if origin == "*" {
			return fmt.Errorf("CORS_ORIGINS must not contain wildcard '*'")
		}

		if strings.ContainsAny(origin, "*?[]") {
			return fmt.Errorf("CORS_ORIGINS must not contain glob characters (*?[]), got %q", origin)
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("CORS_ORIGINS contains invalid origin %q (must have scheme and host)", origin)
		}
	}

	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
