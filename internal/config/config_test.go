package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "./data/bills.db", cfg.Database.Path)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "google/gemini-2.5-flash", cfg.Gateway.Model)
	assert.Equal(t, 60*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 6.0, cfg.Scan.PerMinute)
	assert.False(t, cfg.Archive.Enabled())
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_URL", "postgres://localhost/splitbill")
	t.Setenv("AUTH_TOKEN_TTL", "2h")
	t.Setenv("R2_BUCKET", "receipts")
	t.Setenv("R2_ENDPOINT", "https://account.r2.cloudflarestorage.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.True(t, cfg.Archive.Enabled())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Driver: "sqlite", Path: "x.db"},
			Auth:     AuthConfig{JWTSecret: "s"},
			Scan:     ScanConfig{PerMinute: 1, Burst: 1},
		}
	}
	require.NoError(t, valid().Validate())

	c := valid()
	c.Auth.JWTSecret = ""
	assert.ErrorContains(t, c.Validate(), "AUTH_JWT_SECRET")

	c = valid()
	c.Database.Driver = "mysql"
	assert.ErrorContains(t, c.Validate(), "unsupported")

	c = valid()
	c.Database.Driver = "postgres"
	assert.ErrorContains(t, c.Validate(), "DB_URL")

	c = valid()
	c.Archive.Bucket = "receipts"
	assert.ErrorContains(t, c.Validate(), "R2_ENDPOINT")
}
