package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.HTTPPort)
	assert.Equal(t, "room_user_service", cfg.DB.Name)
	assert.Equal(t, "room-user-service", cfg.Logger.ServiceName)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, 60*24*8, cfg.Security.AccessTokenExpireMinutes)
	assert.Equal(t, 48, cfg.Security.EmailValidTokenHours)
	assert.False(t, cfg.Email.Enabled)
	assert.False(t, cfg.App.OpenRegistration)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, 5*time.Minute, cfg.Redis.TTL())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("EMAILS_ENABLED", "true")
	t.Setenv("USERS_OPEN_REGISTRATION", "true")
	t.Setenv("SERVER_HOST", "https://rooms.example.com/")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "9000", cfg.App.HTTPPort)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.True(t, cfg.Logger.EnableSampling)
	assert.True(t, cfg.Email.Enabled)
	assert.True(t, cfg.App.OpenRegistration)
	assert.Equal(t, "https://rooms.example.com", cfg.Email.ServerHost)
	assert.InDelta(t, 2.5, cfg.RateLimit.RequestsPerSecond, 0.001)
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	content := "SECRET_KEY=from-file\nFIRST_SUPERUSER=admin@example.com\nFIRST_SUPERUSER_PASSWORD=changethis\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.env"), []byte(content), 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Security.SecretKey)
	assert.Equal(t, "admin@example.com", cfg.App.FirstSuperuser)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := LoadConfig(t.TempDir())
		require.NoError(t, err)
		cfg.Security.SecretKey = "secret"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.Security.SecretKey = "" }, wantErr: "SECRET_KEY"},
		{name: "missing port", mutate: func(c *Config) { c.App.HTTPPort = "" }, wantErr: "HTTP_PORT"},
		{name: "zero cache ttl", mutate: func(c *Config) { c.Redis.CacheTTL = 0 }, wantErr: "CACHE_TTL_SECONDS"},
		{name: "bad rate", mutate: func(c *Config) { c.RateLimit.RequestsPerSecond = 0 }, wantErr: "RATE_LIMIT_RPS"},
		{
			name:   "rate ignored when disabled",
			mutate: func(c *Config) { c.RateLimit.Enabled = false; c.RateLimit.RequestsPerSecond = 0 },
		},
		{
			name:    "emails without smtp host",
			mutate:  func(c *Config) { c.Email.Enabled = true; c.Email.FromEmail = "noreply@example.com" },
			wantErr: "SMTP_HOST",
		},
		{
			name:    "superuser without password",
			mutate:  func(c *Config) { c.App.FirstSuperuser = "admin@example.com" },
			wantErr: "FIRST_SUPERUSER_PASSWORD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db user=u password=p dbname=n port=5432 sslmode=disable", db.DSN())
}
