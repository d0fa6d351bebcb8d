// Package config loads server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig   `envPrefix:"SERVER_"`
	Database DatabaseConfig `envPrefix:"DB_"`
	Auth     AuthConfig     `envPrefix:"AUTH_"`
	Gateway  GatewayConfig  `envPrefix:"AI_GATEWAY_"`
	Scan     ScanConfig     `envPrefix:"SCAN_"`
	Archive  ArchiveConfig  `envPrefix:"R2_"`
	LogLevel string         `env:"LOG_LEVEL" envDefault:"info"`
}

type ServerConfig struct {
	Port       int    `env:"PORT" envDefault:"8080"`
	StaticPath string `env:"STATIC_PATH" envDefault:"./static"`
}

type DatabaseConfig struct {
	Driver string `env:"DRIVER" envDefault:"sqlite"`
	Path   string `env:"PATH" envDefault:"./data/bills.db"`
	URL    string `env:"URL"`
}

type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
}

type GatewayConfig struct {
	URL     string        `env:"URL" envDefault:"https://ai.gateway.lovable.dev/v1"`
	APIKey  string        `env:"API_KEY"`
	Model   string        `env:"MODEL" envDefault:"google/gemini-2.5-flash"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"60s"`
}

type ScanConfig struct {
	PerMinute float64 `env:"PER_MINUTE" envDefault:"6"`
	Burst     int     `env:"BURST" envDefault:"3"`
}

// ArchiveConfig points at an S3-compatible bucket. Archiving is off when Bucket is empty.
type ArchiveConfig struct {
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET"`
}

// Enabled reports whether receipt images should be archived.
func (a ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}

// Load reads an optional .env file, then parses the environment.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("SERVER_PORT must be positive")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("DB_PATH is required for sqlite")
		}
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("DB_URL is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required")
	}
	if c.Scan.PerMinute <= 0 || c.Scan.Burst <= 0 {
		return errors.New("SCAN_PER_MINUTE and SCAN_BURST must be positive")
	}
	if c.Archive.Enabled() && c.Archive.Endpoint == "" {
		return errors.New("R2_ENDPOINT is required when R2_BUCKET is set")
	}
	return nil
}
