package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/lead-scraper/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Apify  ApifyConfig  `yaml:"apify" mapstructure:"apify"`
	Notion NotionConfig `yaml:"notion" mapstructure:"notion"`
	Sheets SheetsConfig `yaml:"sheets" mapstructure:"sheets"`
	Scrape ScrapeConfig `yaml:"scrape" mapstructure:"scrape"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// ApifyConfig configures the scraping backend.
type ApifyConfig struct {
	Token            string `yaml:"token" mapstructure:"token"`
	BaseURL          string `yaml:"base_url" mapstructure:"base_url"`
	ContactsActor    string `yaml:"contacts_actor" mapstructure:"contacts_actor"`
	PlacesActor      string `yaml:"places_actor" mapstructure:"places_actor"`
	PollIntervalSecs int    `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	PollCapSecs      int    `yaml:"poll_cap_secs" mapstructure:"poll_cap_secs"`
	RunTimeoutSecs   int    `yaml:"run_timeout_secs" mapstructure:"run_timeout_secs"`
}

// NotionConfig configures the Notion export destination.
type NotionConfig struct {
	Token      string  `yaml:"token" mapstructure:"token"`
	DatabaseID string  `yaml:"database_id" mapstructure:"database_id"`
	RateLimit  float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// SheetsConfig configures the Google Sheets export destination.
type SheetsConfig struct {
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
}

// RetryConfig configures backend retries.
type RetryConfig struct {
	Attempts       int     `yaml:"attempts" mapstructure:"attempts"`
	InitialBackoff float64 `yaml:"initial_backoff_secs" mapstructure:"initial_backoff_secs"`
	MaxBackoff     float64 `yaml:"max_backoff_secs" mapstructure:"max_backoff_secs"`
	Multiplier     float64 `yaml:"multiplier" mapstructure:"multiplier"`
	Jitter         float64 `yaml:"jitter" mapstructure:"jitter"`
}

// Policy converts the retry settings to a resilience.Policy.
func (r RetryConfig) Policy() resilience.Policy {
	return resilience.FromConfig(r.Attempts, seconds(r.InitialBackoff), seconds(r.MaxBackoff), r.Multiplier, r.Jitter)
}

// ScrapeConfig configures source adapters.
type ScrapeConfig struct {
	Retry    RetryConfig `yaml:"retry" mapstructure:"retry"`
	PaceSecs float64     `yaml:"pace_secs" mapstructure:"pace_secs"`
}

// Pace is the minimum delay between consecutive backend calls of one run.
func (s ScrapeConfig) Pace() time.Duration { return seconds(s.PaceSecs) }

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port                int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins      []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RateLimitPerMin     int      `yaml:"rate_limit_per_min" mapstructure:"rate_limit_per_min"`
	ShutdownTimeoutSecs int      `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
	MaxRequestBytes     int64    `yaml:"max_request_bytes" mapstructure:"max_request_bytes"`
	SecurityHeaders     bool     `yaml:"security_headers" mapstructure:"security_headers"`
	MetricsEnabled      bool     `yaml:"metrics_enabled" mapstructure:"metrics_enabled"`
	RequestTimeoutSecs  int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
}

// ShutdownTimeout bounds graceful shutdown of the server and running jobs.
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSecs) * time.Second
}

// RequestTimeout bounds a single request handler. Zero disables it.
func (s ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSecs) * time.Second
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADSCRAPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("apify.token", "")
	v.SetDefault("apify.base_url", "https://api.apify.com/v2")
	v.SetDefault("apify.contacts_actor", "code_crafter/apollo-io-scraper")
	v.SetDefault("apify.places_actor", "nwua9Gu5YrADL7ZDj")
	v.SetDefault("apify.poll_interval_secs", 2)
	v.SetDefault("apify.poll_cap_secs", 15)
	v.SetDefault("apify.run_timeout_secs", 600)
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.database_id", "")
	v.SetDefault("notion.rate_limit", 2.0)
	v.SetDefault("sheets.credentials_file", "")
	v.SetDefault("scrape.retry.attempts", 3)
	v.SetDefault("scrape.retry.initial_backoff_secs", 2.0)
	v.SetDefault("scrape.retry.max_backoff_secs", 10.0)
	v.SetDefault("scrape.retry.multiplier", 2.0)
	v.SetDefault("scrape.retry.jitter", 0.0)
	v.SetDefault("scrape.pace_secs", 1.0)
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5000", "http://0.0.0.0:5000"})
	v.SetDefault("server.rate_limit_per_min", 100)
	v.SetDefault("server.shutdown_timeout_secs", 30)
	v.SetDefault("server.max_request_bytes", 10<<20)
	v.SetDefault("server.security_headers", true)
	v.SetDefault("server.metrics_enabled", true)
	v.SetDefault("server.request_timeout_secs", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	cfg.Server.AllowedOrigins = splitOrigins(cfg.Server.AllowedOrigins)

	return &cfg, nil
}

// splitOrigins accepts origins given as a list or as one comma-separated
// string (the environment form).
func splitOrigins(in []string) []string {
	var out []string
	for _, s := range in {
		for _, o := range strings.Split(s, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}

// Validate checks the settings required by a command mode ("serve" or
// "scrape"). All problems are reported together.
func (c *Config) Validate(mode string) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			add("server.port must be > 0 and <= 65535")
		}
		if c.Server.RateLimitPerMin < 0 {
			add("server.rate_limit_per_min must be >= 0")
		}
	case "scrape":
		if c.Apify.Token == "" {
			add("apify.token is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Scrape.Retry.Attempts < 1 || c.Scrape.Retry.Attempts > 10 {
		add("scrape.retry.attempts must be between 1 and 10")
	}
	if c.Scrape.Retry.Jitter < 0 || c.Scrape.Retry.Jitter > 1 {
		add("scrape.retry.jitter must be between 0 and 1")
	}
	if c.Scrape.PaceSecs < 0 {
		add("scrape.pace_secs must be >= 0")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
