package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Environment:          "development",
		Port:                 "8080",
		APIPrefix:            "/api/v1",
		DBDriver:             "sqlite",
		DBPath:               "./shop.db",
		JWTSecret:            "a-secret-that-is-long-enough-for-production-use",
		JWTIssuer:            "modular-shop-api",
		JWTAudience:          "modular-shop-clients",
		JWTExpirationMinutes: 60,
		DefaultGroup:         "General Users",
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{"ENVIRONMENT", "PORT", "API_PREFIX", "DB_DRIVER", "DB_PATH", "POSTGRES_DSN",
		"SEED_DATA", "JWT_SECRET", "JWT_EXPIRATION_MINUTES", "DEFAULT_GROUP", "ALLOWED_ORIGINS", "DEBUG", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.True(t, cfg.SeedData)
	assert.Equal(t, DefaultJWTSecret, cfg.JWTSecret)
	assert.Equal(t, 60, cfg.JWTExpirationMinutes)
	assert.Equal(t, "General Users", cfg.DefaultGroup)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("ENVIRONMENT", "staging")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("POSTGRES_DSN", "  postgres://u:p@localhost/shop  ")
	t.Setenv("SEED_DATA", "false")
	t.Setenv("JWT_EXPIRATION_MINUTES", "15")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("DEBUG", "true")

	cfg := LoadConfig()
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "postgres://u:p@localhost/shop", cfg.PostgresDSN)
	assert.False(t, cfg.SeedData)
	assert.Equal(t, 15, cfg.JWTExpirationMinutes)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.True(t, cfg.Debug)
}

func TestLoadConfig_ProductionDisablesDebug(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DEBUG", "true")

	cfg := LoadConfig()
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.Debug)
}

func TestLoadConfig_BadNumberFallsBack(t *testing.T) {
	t.Setenv("JWT_EXPIRATION_MINUTES", "soon")
	assert.Equal(t, 60, LoadConfig().JWTExpirationMinutes)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing port", func(c *Config) { c.Port = "" }, "PORT"},
		{"zero lifetime", func(c *Config) { c.JWTExpirationMinutes = 0 }, "JWT_EXPIRATION_MINUTES"},
		{"missing issuer", func(c *Config) { c.JWTIssuer = " " }, "JWT_ISSUER"},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, "unsupported DB_DRIVER"},
		{"sqlite without path", func(c *Config) { c.DBPath = "" }, "DB_PATH"},
		{"postgres without dsn", func(c *Config) { c.DBDriver = "postgres" }, "POSTGRES_DSN"},
		{"empty default group", func(c *Config) { c.DefaultGroup = "" }, "DEFAULT_GROUP"},
		{"production default secret", func(c *Config) {
			c.Environment = "production"
			c.JWTSecret = DefaultJWTSecret
		}, "JWT_SECRET must be set"},
		{"production short secret", func(c *Config) {
			c.Environment = "production"
			c.JWTSecret = "short"
		}, "at least 32 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			generated, err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.False(t, generated)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_GeneratesDevelopmentSecret(t *testing.T) {
	cfg := validConfig()
	cfg.JWTSecret = ""

	generated, err := cfg.Validate()
	require.NoError(t, err)
	assert.True(t, generated)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.NotEqual(t, DefaultJWTSecret, cfg.JWTSecret)
	assert.GreaterOrEqual(t, len(cfg.JWTSecret), MinProductionSecretLength)
}
