package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "serve", cfg.Mode)
	assert.Equal(t, 10*time.Second, cfg.PriceFeed.CacheTTL.Duration)
	assert.Equal(t, 60*time.Second, cfg.Tracker.Interval.Duration)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadTOMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
mode = "full"
log_level = "debug"

[server]
port = 9090

[price_feed]
cache_ttl = "5s"

[tracker]
interval = "2m"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "full", cfg.Mode)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.PriceFeed.CacheTTL.Duration)
	assert.Equal(t, 2*time.Minute, cfg.Tracker.Interval.Duration)
}

func TestEnvOverridesTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 9090\n"), 0o644))

	t.Setenv("EQUILIBRIUM_SERVER_PORT", "7070")
	t.Setenv("EQUILIBRIUM_TRACKER_INTERVAL", "90s")
	t.Setenv("EQUILIBRIUM_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 90*time.Second, cfg.Tracker.Interval.Duration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestValidateRejectsBadMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "daemon"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsIntervalBelowTTL(t *testing.T) {
	cfg := Defaults()
	cfg.Tracker.Interval = duration{5 * time.Second}
	assert.Error(t, cfg.Validate())
}

func TestRedacted(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "hunter2"
	cfg.Server.APIKey = "secret"

	red := cfg.Redacted()
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Server.APIKey)
	assert.Empty(t, red.Redis.Password)
	// original untouched
	assert.Equal(t, "hunter2", cfg.Postgres.Password)
}
