package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-scraper/internal/config"
	"github.com/sells-group/lead-scraper/internal/model"
)

func testConfig() *config.Config {
	return &config.Config{
		Apify: config.ApifyConfig{
			Token:            "apify-token",
			BaseURL:          "https://api.apify.com/v2",
			PollIntervalSecs: 2,
			PollCapSecs:      15,
			RunTimeoutSecs:   600,
		},
		Notion: config.NotionConfig{Token: "secret", RateLimit: 2},
		Scrape: config.ScrapeConfig{Retry: config.RetryConfig{Attempts: 3, InitialBackoff: 2, MaxBackoff: 10, Multiplier: 2}},
		Server: config.ServerConfig{
			Port:                8000,
			AllowedOrigins:      []string{"http://localhost:5000"},
			RateLimitPerMin:     100,
			ShutdownTimeoutSecs: 1,
			MaxRequestBytes:     1 << 20,
			SecurityHeaders:     true,
			MetricsEnabled:      true,
			RequestTimeoutSecs:  30,
		},
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestNewRouter_Health(t *testing.T) {
	c := testConfig()
	env := initApp(c)
	t.Cleanup(func() { env.Close(c.Server.ShutdownTimeout()) })

	rec := get(t, newRouter(env, c), "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status   string            `json:"status"`
		Services map[string]string `json:"services"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, map[string]string{
		"apify":         "ready",
		"google_sheets": "not_configured",
		"notion":        "ready",
	}, body.Services)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestNewRouter_Metrics(t *testing.T) {
	c := testConfig()
	env := initApp(c)
	t.Cleanup(func() { env.Close(c.Server.ShutdownTimeout()) })

	rec := get(t, newRouter(env, c), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	c.Server.MetricsEnabled = false
	assert.Equal(t, http.StatusNotFound, get(t, newRouter(env, c), "/metrics").Code)
}

func TestNewRouter_UnknownTask(t *testing.T) {
	c := testConfig()
	env := initApp(c)
	t.Cleanup(func() { env.Close(c.Server.ShutdownTimeout()) })

	assert.Equal(t, http.StatusNotFound, get(t, newRouter(env, c), "/api/v1/scrape/nope").Code)
}

func TestInitApp_RegistersAdapters(t *testing.T) {
	c := testConfig()
	env := initApp(c)
	t.Cleanup(func() { env.Close(c.Server.ShutdownTimeout()) })

	_, err := env.Orchestrator.Status("missing")
	assert.Error(t, err)
	assert.Zero(t, env.Registry.Len())

	// An empty job is rejected before any adapter runs.
	_, err = env.Orchestrator.Submit(t.Context(), model.JobSpec{Kind: model.JobKindContacts})
	assert.Error(t, err)
}

func TestPollOptions(t *testing.T) {
	assert.Len(t, pollOptions(config.ApifyConfig{PollIntervalSecs: 2, PollCapSecs: 15, RunTimeoutSecs: 600}), 3)
	assert.Empty(t, pollOptions(config.ApifyConfig{}))
}
