package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "serve", cfg.Mode)
	assert.Equal(t, "BTC-USDT-SWAP", cfg.Feed.Asset)
	assert.Equal(t, 5, cfg.Feed.MaxRetries)
	assert.Equal(t, 1000, cfg.Latency.MaxSamples)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"
	cfg.Feed.WsURL = ""
	cfg.Feed.MaxRetries = 0
	cfg.Latency.MaxSamples = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "ws_url")
	assert.Contains(t, err.Error(), "max_retries")
	assert.Contains(t, err.Error(), "max_samples")
}

func TestValidateFullModeRequiresBackends(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "full"
	cfg.Postgres.Host = ""
	cfg.Redis.Addr = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: host")
	assert.Contains(t, err.Error(), "redis: addr")
}

func TestValidateServeModeSkipsBackendChecks(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Host = ""
	cfg.Redis.Addr = ""

	assert.NoError(t, cfg.Validate())
}

func TestValidateDSNBypassesHostChecks(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "full"
	cfg.Postgres.DSN = "postgres://user:pass@db:5432/costsim"
	cfg.Postgres.Host = ""
	cfg.Postgres.Database = ""

	assert.NoError(t, cfg.Validate())
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
mode = "monitor"
log_level = "debug"

[feed]
ws_url = "wss://feed.example.com/l2"
max_retries = 9
retry_delay = "500ms"

[monitor]
interval = "2s"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "monitor", cfg.Mode)
	assert.Equal(t, "wss://feed.example.com/l2", cfg.Feed.WsURL)
	assert.Equal(t, 9, cfg.Feed.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Feed.RetryDelay.Duration)
	assert.Equal(t, 2*time.Second, cfg.Monitor.Interval.Duration)
	// Untouched sections keep their defaults.
	assert.Equal(t, "BTC-USDT-SWAP", cfg.Feed.Asset)
	assert.Equal(t, 1000, cfg.Latency.MaxSamples)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("COSTSIM_MODE", "monitor")
	t.Setenv("COSTSIM_FEED_WS_URL", "wss://env.example.com/l2")
	t.Setenv("COSTSIM_FEED_MAX_RETRIES", "7")
	t.Setenv("COSTSIM_IMPACT_VOLATILITY_SCALING", "false")
	t.Setenv("COSTSIM_REDIS_CACHE_TTL", "90s")
	t.Setenv("COSTSIM_SERVER_CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "monitor", cfg.Mode)
	assert.Equal(t, "wss://env.example.com/l2", cfg.Feed.WsURL)
	assert.Equal(t, 7, cfg.Feed.MaxRetries)
	assert.False(t, cfg.Impact.VolatilityScaling)
	assert.Equal(t, 90*time.Second, cfg.Redis.CacheTTL.Duration)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSOrigins)
}

func TestEnvOverridesIgnoreUnset(t *testing.T) {
	cfg := Defaults()
	want := cfg.Feed.WsURL
	applyEnvOverrides(&cfg)
	assert.Equal(t, want, cfg.Feed.WsURL)
}

func TestDurationRoundTrip(t *testing.T) {
	var d duration
	require.NoError(t, d.UnmarshalText([]byte("5m")))
	assert.Equal(t, 5*time.Minute, d.Duration)

	out, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "5m0s", string(out))
}
