package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func secureConfig() *Config {
	return &Config{
		Platform:       PlatformConfig{DefaultAdminPassword: "per-tenant-admin-pass"},
		JWT:            JWTConfig{SecretKey: strings.Repeat("a", 32)},
		InternalSecret: strings.Repeat("b", 32),
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, secureConfig().Validate())
}

func TestValidateRejectsInsecureSecrets(t *testing.T) {
	tests := map[string]func(*Config){
		"empty jwt secret":       func(c *Config) { c.JWT.SecretKey = "" },
		"well-known jwt default": func(c *Config) { c.JWT.SecretKey = "your-secret-key-change-in-production" },
		"short jwt secret":       func(c *Config) { c.JWT.SecretKey = "short" },
		"empty internal secret":  func(c *Config) { c.InternalSecret = "" },
		"changeme internal":      func(c *Config) { c.InternalSecret = "changeme" },
		"short internal secret":  func(c *Config) { c.InternalSecret = "tiny" },
		"empty admin password":   func(c *Config) { c.Platform.DefaultAdminPassword = "" },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := secureConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8006", cfg.Server.Port)
	// The repositories qualify their tables with this schema.
	assert.Equal(t, "tenancy", cfg.Database.Schema)
	assert.Equal(t, "garagehub.app", cfg.Platform.BaseDomain)
	assert.Equal(t, "garagehub-shared", cfg.Platform.SharedNamespace)
	assert.Equal(t, 5*time.Second, cfg.Helm.PollInterval)

	// Defaults are deliberately unusable in production.
	assert.Error(t, cfg.Validate())
}

func TestGetEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("SHARED_DB_PORT", "6432")
	t.Setenv("HELM_DEPLOY_TIMEOUT", "90s")

	cfg := Load()
	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, 6432, cfg.SharedDatabase.Port)
	assert.Equal(t, 90*time.Second, cfg.Helm.DeployTimeout)
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "localhost", Port: "5432", User: "u", Password: "p", DBName: "db", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://u:p@localhost:5432/db?sslmode=disable", d.DSN())
}
