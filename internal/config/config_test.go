package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_EXPIRY_MINUTES", "")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg := Load()
	require.Equal(t, time.Hour, cfg.JWTExpiry)
	require.Equal(t, StorageDriverPostgres, cfg.StorageDriver)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			GinMode:        "debug",
			StorageDriver:  StorageDriverMemory,
			JWTExpiry:      time.Hour,
			MaxUploadBytes: 1024,
			Admin: AdminIdentity{
				Username:      "admin",
				Password:      "admin123",
				SigningSecret: "secret",
			},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no password", func(c *Config) { c.Admin.Password = "" }},
		{"no secret", func(c *Config) { c.Admin.SigningSecret = "" }},
		{"default secret in release", func(c *Config) {
			c.GinMode = "release"
			c.Admin.SigningSecret = defaultJWTSecret
		}},
		{"unknown driver", func(c *Config) { c.StorageDriver = "mongo" }},
		{"postgres without url", func(c *Config) { c.StorageDriver = StorageDriverPostgres }},
		{"zero expiry", func(c *Config) { c.JWTExpiry = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			require.Error(t, c.Validate())
		})
	}

	hashOnly := valid()
	hashOnly.Admin.Password = ""
	hashOnly.Admin.PasswordHash = "$2a$10$abcdefghijklmnopqrstuv"
	require.NoError(t, hashOnly.Validate())
}
