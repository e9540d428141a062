package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("WARDEN_DB_PATH", filepath.Join(t.TempDir(), "warden.db"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.NotEmpty(t, cfg.JWTSecret, "a secret is generated when none is configured")

	assert.Equal(t, "live", cfg.Protection.ShieldMode)
	assert.Equal(t, []string{"search_engine", "preview", "curl"}, cfg.Protection.BotAllow)
	assert.True(t, cfg.Protection.RateLimitEnable)
	assert.Equal(t, 2*time.Second, cfg.Protection.RateLimitInterval)
	assert.Equal(t, 5, cfg.Protection.RateLimitMax)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("WARDEN_DB_PATH", filepath.Join(t.TempDir(), "warden.db"))
	t.Setenv("WARDEN_ENV", "production")
	t.Setenv("WARDEN_JWT_SECRET", "configured-secret")
	t.Setenv("WARDEN_BOT_ALLOW", "search_engine, preview")
	t.Setenv("WARDEN_RATE_LIMIT_INTERVAL", "10s")
	t.Setenv("WARDEN_RATE_LIMIT_MAX", "100")
	t.Setenv("WARDEN_RATE_LIMIT_ENABLE", "false")
	t.Setenv("WARDEN_BOT_FAIL_POLICY", "closed")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "configured-secret", cfg.JWTSecret)
	assert.Equal(t, []string{"search_engine", "preview"}, cfg.Protection.BotAllow)
	assert.Equal(t, 10*time.Second, cfg.Protection.RateLimitInterval)
	assert.Equal(t, 100, cfg.Protection.RateLimitMax)
	assert.False(t, cfg.Protection.RateLimitEnable)
	assert.Equal(t, "closed", cfg.Protection.BotFailPolicy)
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("WARDEN_DB_PATH", filepath.Join(t.TempDir(), "warden.db"))
	t.Setenv("WARDEN_RATE_LIMIT_INTERVAL", "not-a-duration")

	_, err := Load()
	assert.Error(t, err)
}
