package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	var c AppConfig
	applyDefaults(&c)

	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, "mysql", c.DBDriver)
	assert.Equal(t, 60, c.RateLimitPerMinute)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
	assert.Equal(t, 72*time.Hour, c.TokenTTL())
	assert.Equal(t, 5*time.Minute, c.CacheTTL())
	assert.Equal(t, 5, c.LoginMaxFailures)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("ADMIN_USERNAMES", " root , ops ")
	t.Setenv("TOKEN_TTL_HOURS", "12")
	t.Setenv("REDIS_DISABLED", "true")
	t.Setenv("TIME_ZONE", "UTC")

	var c AppConfig
	applyDefaults(&c)
	applyEnvOverrides(&c)

	assert.Equal(t, "postgres", c.DBDriver)
	assert.Equal(t, []string{"root", "ops"}, c.AdminUsernames)
	assert.Equal(t, 12*time.Hour, c.TokenTTL())
	assert.True(t, c.RedisDisabled)
	assert.Equal(t, time.UTC, c.Location())
}

func TestIsAdminIgnoresCase(t *testing.T) {
	c := AppConfig{AdminUsernames: []string{"Root"}}
	assert.True(t, c.IsAdmin("root"))
	assert.False(t, c.IsAdmin("rooty"))
	assert.False(t, AppConfig{}.IsAdmin(""))
}

func TestInvalidTimeZoneFallsBackToLocal(t *testing.T) {
	assert.Equal(t, time.Local, AppConfig{TimeZone: "Mars/Olympus"}.Location())
}

func TestLoadJSONConfigSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"app": {"AppPort": "9090", "AdminUsernames": ["boss"], "LoginMaxFailures": 3},
		"database": {"Driver": "sqlite", "SQLitePath": "dev.db"},
		"redis": {"Disabled": true, "CacheTTLSeconds": 30},
		"log": {"Level": "debug", "Compress": true}
	}`), 0o600))

	var c AppConfig
	require.NoError(t, loadJSONConfig(path, &c))
	assert.Equal(t, "9090", c.AppPort)
	assert.Equal(t, []string{"boss"}, c.AdminUsernames)
	assert.Equal(t, 3, c.LoginMaxFailures)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, "dev.db", c.SQLitePath)
	assert.True(t, c.RedisDisabled)
	assert.Equal(t, 30*time.Second, c.CacheTTL())
	assert.Equal(t, "debug", c.LogLevel)
	assert.True(t, c.LogCompress)

	assert.NoError(t, loadJSONConfig(filepath.Join(t.TempDir(), "missing.json"), &c))
}

func TestDialectorFor(t *testing.T) {
	for _, driver := range []string{"mysql", "postgres", "sqlite", ""} {
		_, err := dialectorFor(AppConfig{DBDriver: driver})
		assert.NoError(t, err, driver)
	}
	_, err := dialectorFor(AppConfig{DBDriver: "oracle"})
	assert.Error(t, err)
}
