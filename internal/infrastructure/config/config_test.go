package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "shiftbot", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "./data", cfg.Storage.BasePath)
	assert.Equal(t, 30, cfg.Storage.RetentionDays)
	assert.Equal(t, 30*24*time.Hour, cfg.Storage.Retention)
	assert.False(t, cfg.Storage.StrictStatus)
	assert.Equal(t, "https://api.line.me", cfg.Line.APIEndpoint)
	assert.Equal(t, 24*time.Hour, cfg.JWT.ExpiresIn)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	resetViper(t)
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_BASE_PATH", "/var/lib/shiftbot")
	t.Setenv("STORAGE_RETENTION_DAYS", "7")
	t.Setenv("STORAGE_STRICT_STATUS", "true")
	t.Setenv("LINE_CHANNEL_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/var/lib/shiftbot", cfg.Storage.BasePath)
	assert.Equal(t, 7*24*time.Hour, cfg.Storage.Retention)
	assert.True(t, cfg.Storage.StrictStatus)
	assert.Equal(t, "secret", cfg.Line.ChannelSecret)
}

func TestLoadRejectsBadPort(t *testing.T) {
	resetViper(t)
	t.Setenv("PORT", "99999")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
}

func TestLoadRejectsZeroRetention(t *testing.T) {
	resetViper(t)
	t.Setenv("STORAGE_RETENTION_DAYS", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retention")
}

func TestProductionRequiresSecrets(t *testing.T) {
	resetViper(t)
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	require.Error(t, err)

	resetViper(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("LINE_CHANNEL_SECRET", "line-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.App.Environment)
}
