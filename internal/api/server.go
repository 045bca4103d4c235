// Package api serves the lead-scraping HTTP API.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sells-group/lead-scraper/internal/model"
	"github.com/sells-group/lead-scraper/pkg/notion"
	"github.com/sells-group/lead-scraper/pkg/sheets"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Tasks is the job surface the API drives.
type Tasks interface {
	Submit(ctx context.Context, spec model.JobSpec) (model.Task, error)
	Status(id string) (model.Task, error)
}

// Deps are the collaborators of the API server.
type Deps struct {
	Tasks Tasks

	// BackendToken reports whether a default scraping token is configured,
	// making apify_token optional in requests.
	BackendToken bool

	// NewNotion creates a Notion client for an integration token.
	NewNotion        func(token string) notion.Client
	NotionToken      string
	NotionDatabaseID string

	// NewSheets creates a Sheets client. Empty credentials select the
	// configured service account.
	NewSheets        func(ctx context.Context, credentialsJSON []byte) (sheets.Client, error)
	SheetsConfigured bool

	ExportTimeout   time.Duration
	MetricsGatherer prometheus.Gatherer
	Now             func() time.Time
}

// ServerOption configures the API server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	middlewares     []func(http.Handler) http.Handler
	allowedOrigins  []string
	rateLimit       int
	securityHeaders bool
	maxBodyBytes    int64
	requestTimeout  time.Duration
}

// WithMiddlewares adds middleware to the server.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithAllowedOrigins sets the CORS origins.
func WithAllowedOrigins(origins ...string) ServerOption {
	return func(cfg *serverConfig) { cfg.allowedOrigins = origins }
}

// WithRateLimit limits each client address to perMinute requests.
func WithRateLimit(perMinute int) ServerOption {
	return func(cfg *serverConfig) { cfg.rateLimit = perMinute }
}

// WithSecurityHeaders toggles the hardening headers.
func WithSecurityHeaders(on bool) ServerOption {
	return func(cfg *serverConfig) { cfg.securityHeaders = on }
}

// WithMaxBodyBytes caps request body size.
func WithMaxBodyBytes(n int64) ServerOption {
	return func(cfg *serverConfig) { cfg.maxBodyBytes = n }
}

// WithRequestTimeout bounds handler execution time.
func WithRequestTimeout(d time.Duration) ServerOption {
	return func(cfg *serverConfig) { cfg.requestTimeout = d }
}

// Server holds handler state.
type Server struct {
	deps     Deps
	validate *validator.Validate
}

// NewServer creates the HTTP router.
func NewServer(deps Deps, opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{securityHeaders: true, maxBodyBytes: 10 << 20}
	for _, opt := range opts {
		opt(cfg)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ExportTimeout <= 0 {
		deps.ExportTimeout = 5 * time.Minute
	}
	s := &Server{deps: deps, validate: newValidator()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(middleware.Recoverer)
	if len(cfg.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.allowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	if cfg.securityHeaders {
		r.Use(SecurityHeaders)
	}
	r.Use(RateLimit(cfg.rateLimit))
	if cfg.maxBodyBytes > 0 {
		r.Use(middleware.RequestSize(cfg.maxBodyBytes))
	}
	if cfg.requestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.requestTimeout))
	}
	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	r.Get("/", s.root)
	r.Get("/health", s.health)
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/scrape", s.scrapeContacts)
		r.Post("/scrape/google-maps", s.scrapePlaces)
		r.Post("/scrape/combined", s.scrapeCombined)
		r.Get("/scrape/{taskID}", s.taskStatus)

		r.Get("/export/{format}/{taskID}", s.exportFile)
		r.Post("/export/sheets", s.exportSheets)
		r.Post("/export/notion", s.exportNotion)

		r.Get("/notion/database-info", s.notionDatabaseInfo)
		r.Get("/fields", s.fields)
	})

	return r
}
