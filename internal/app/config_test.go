package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, 12*time.Hour, cfg.Auth.JWT.AccessTokenTTL)
	require.False(t, cfg.Email.Enabled)
	require.Equal(t, []string{"en", "es"}, cfg.Locale.Supported)
	require.Equal(t, "en", cfg.Locale.Default)
	require.True(t, cfg.Sweep.Enabled)
	require.Equal(t, "@hourly", cfg.Sweep.Schedule)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	contents := []byte(`
server:
  port: 9100
  log_level: debug
email:
  enabled: true
  host: smtp.example.com
  timeout: 30s
locale:
  supported: [es, pt]
  default: es
sweep:
  schedule: "@every 10m"
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), contents, 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	require.Equal(t, 9100, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.True(t, cfg.Email.Enabled)
	require.Equal(t, 30*time.Second, cfg.Email.Timeout)
	require.Equal(t, []string{"es", "pt"}, cfg.Locale.Supported)
	require.Equal(t, "es", cfg.Locale.Default)
	require.Equal(t, "@every 10m", cfg.Sweep.Schedule)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("SHIFTRELIEF_SERVER_PORT", "9200")
	t.Setenv("SHIFTRELIEF_AUTH_JWT_SECRET", "env-secret")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 9200, cfg.Server.Port)
	require.Equal(t, "env-secret", cfg.Auth.JWT.Secret)
}

func TestConfigValidate(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Error(t, cfg.Validate())

	cfg.Auth.JWT.Secret = "secret"
	require.NoError(t, cfg.Validate())

	cfg.Email.Enabled = true
	require.Error(t, cfg.Validate())

	cfg.Email.Host = "smtp.example.com"
	require.NoError(t, cfg.Validate())
}
