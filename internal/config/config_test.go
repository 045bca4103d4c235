package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 100, cfg.Server.RateLimitPerMin)
	assert.Equal(t, []string{"http://localhost:5000", "http://0.0.0.0:5000"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Server.SecurityHeaders)
	assert.Equal(t, "https://api.apify.com/v2", cfg.Apify.BaseURL)
	assert.Equal(t, "code_crafter/apollo-io-scraper", cfg.Apify.ContactsActor)
	assert.Equal(t, "nwua9Gu5YrADL7ZDj", cfg.Apify.PlacesActor)
	assert.Equal(t, 600, cfg.Apify.RunTimeoutSecs)
	assert.InDelta(t, 2.0, cfg.Notion.RateLimit, 0.001)
	assert.Equal(t, 3, cfg.Scrape.Retry.Attempts)
	assert.Equal(t, time.Second, cfg.Scrape.Pace())

	p := cfg.Scrape.Retry.Policy()
	assert.Equal(t, 3, p.Attempts)
	assert.Equal(t, 2*time.Second, p.InitialBackoff)
	assert.Equal(t, 10*time.Second, p.MaxBackoff)
	assert.InDelta(t, 2.0, p.Multiplier, 0.001)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
server:
  port: 9090
  allowed_origins:
    - https://leads.example.com
scrape:
  retry:
    attempts: 5
    initial_backoff_secs: 0.5
notion:
  database_id: db-123
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://leads.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "db-123", cfg.Notion.DatabaseID)
	assert.Equal(t, 500*time.Millisecond, cfg.Scrape.Retry.Policy().InitialBackoff)
	assert.Equal(t, 5, cfg.Scrape.Retry.Policy().Attempts)
	// Defaults still apply for unset values
	assert.InDelta(t, 10.0, cfg.Scrape.Retry.MaxBackoff, 0.001)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
apify:
  token: from-file
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("LEADSCRAPE_APIFY_TOKEN", "from-env")
	t.Setenv("LEADSCRAPE_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "from-env", cfg.Apify.Token)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("LEADSCRAPE_SERVER_PORT", "3000")
	t.Setenv("LEADSCRAPE_SERVER_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
}

func TestLoadInvalidFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [port"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8000
	cfg.Server.RateLimitPerMin = 100
	cfg.Scrape.Retry.Attempts = 3
	cfg.Scrape.PaceSecs = 1
	return cfg
}

func TestValidateServe(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Server.Port = 0
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateScrape_RequiresToken(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("scrape")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "apify.token is required")

	cfg.Apify.Token = "apify_api_x"
	assert.NoError(t, cfg.Validate("scrape"))
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = -1
	cfg.Scrape.Retry.Attempts = 0
	cfg.Scrape.Retry.Jitter = 2

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "scrape.retry.attempts must be between 1 and 10")
	assert.Contains(t, err.Error(), "scrape.retry.jitter")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestServerTimeouts(t *testing.T) {
	s := ServerConfig{ShutdownTimeoutSecs: 30, RequestTimeoutSecs: 0}
	assert.Equal(t, 30*time.Second, s.ShutdownTimeout())
	assert.Zero(t, s.RequestTimeout())
}
