// Package config holds the service configuration: a YAML base layered with
// environment overrides, validated once at startup.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

type StoreConfig struct {
	// URL is the base URL of the PostgREST-style record store.
	URL string
	// ServiceKey is the store's service-role credential, sent as both the
	// apikey header and a bearer token.
	ServiceKey string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// Config defines the *single*, authoritative configuration.
type Config struct {
	ListenAddr string

	Store StoreConfig

	// ServiceAccountJSON is the raw Google service-account credential blob.
	// Parsed into a typed credential at startup; may be empty, in which
	// case every dispatch fails with a missing-credential error.
	ServiceAccountJSON string

	// WebhookSecret guards the trigger endpoint. Empty disables the check.
	WebhookSecret string

	Redis RedisConfig
}

// UpdateConfigWithEnvOverrides applies environment variables and final validation.
func UpdateConfigWithEnvOverrides(cfg *Config, logger *slog.Logger) (*Config, error) {
	logger.Debug("Applying environment variable overrides...")

	if val := os.Getenv("PORT"); val != "" {
		logger.Debug("Overriding config value", "key", "PORT", "source", "env")
		cfg.ListenAddr = ":" + val
	}
	if val := os.Getenv("STORE_URL"); val != "" {
		logger.Debug("Overriding config value", "key", "STORE_URL", "source", "env")
		cfg.Store.URL = val
	}
	if val := os.Getenv("STORE_SERVICE_KEY"); val != "" {
		logger.Debug("Overriding config value", "key", "STORE_SERVICE_KEY", "source", "env")
		cfg.Store.ServiceKey = val
	}
	if val := os.Getenv("SERVICE_ACCOUNT_JSON"); val != "" {
		logger.Debug("Overriding config value", "key", "SERVICE_ACCOUNT_JSON", "source", "env")
		cfg.ServiceAccountJSON = val
	}
	if val := os.Getenv("WEBHOOK_SECRET"); val != "" {
		logger.Debug("Overriding config value", "key", "WEBHOOK_SECRET", "source", "env")
		cfg.WebhookSecret = val
	}

	// Redis Overrides
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		cfg.Redis.Addr = val
		cfg.Redis.Enabled = true
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		if db, err := strconv.Atoi(val); err == nil {
			cfg.Redis.DB = db
		}
	}
	if val := os.Getenv("REDIS_ENABLED"); val != "" {
		enabled, _ := strconv.ParseBool(val)
		cfg.Redis.Enabled = enabled
	}

	// Final Validation
	if cfg.Store.URL == "" {
		return nil, fmt.Errorf("store url is required (set via YAML or STORE_URL env var)")
	}
	if cfg.Store.ServiceKey == "" {
		return nil, fmt.Errorf("store service key is required (set via YAML or STORE_SERVICE_KEY env var)")
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}

	logger.Debug("Configuration finalized and validated successfully")
	return cfg, nil
}
