// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreBolt     = "bolt"
)

// Config is the process configuration. Keys map to upper-case environment
// variables, e.g. database_url <- DATABASE_URL.
type Config struct {
	Addr            string        `mapstructure:"addr"`
	Store           string        `mapstructure:"store"`
	DatabaseURL     string        `mapstructure:"database_url"`
	BoltPath        string        `mapstructure:"bolt_path"`
	JWTSecret       string        `mapstructure:"jwt_secret"`
	OIDCIssuer      string        `mapstructure:"oidc_issuer"`
	OIDCClientID    string        `mapstructure:"oidc_client_id"`
	OIDCRoleClaim   string        `mapstructure:"oidc_role_claim"`
	LogFormat       string        `mapstructure:"log_format"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

var defaults = map[string]any{
	"addr":             ":8080",
	"store":            StoreMemory,
	"database_url":     "",
	"bolt_path":        "parking.db",
	"jwt_secret":       "",
	"oidc_issuer":      "",
	"oidc_client_id":   "",
	"oidc_role_claim":  "role",
	"log_format":       "production",
	"log_level":        "info",
	"shutdown_timeout": 10 * time.Second,
}

// Load reads envFile (if it exists) into the environment and builds a
// validated Config. Variables already set in the environment win.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	case StoreBolt:
		if c.BoltPath == "" {
			return errors.New("BOLT_PATH is required for the bolt store")
		}
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}

	if c.OIDCIssuer != "" {
		if c.OIDCClientID == "" {
			return errors.New("OIDC_CLIENT_ID is required when OIDC_ISSUER is set")
		}
	} else if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required unless OIDC_ISSUER is set")
	}

	if c.LogFormat != "production" && c.LogFormat != "development" {
		return fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

// Logger builds the zap logger described by LogFormat and LogLevel.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.LogFormat == "development" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
