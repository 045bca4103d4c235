package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"github.com/sells-group/lead-scraper/internal/api"
	"github.com/sells-group/lead-scraper/internal/config"
	"github.com/sells-group/lead-scraper/pkg/notion"
	"github.com/sells-group/lead-scraper/pkg/sheets"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lead scraping API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env := initApp(cfg)
		shutdownTimeout := cfg.Server.ShutdownTimeout()
		defer env.Close(shutdownTimeout)

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newRouter(env, cfg),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				return eris.Wrap(err, "server shutdown")
			}
			return nil
		})

		return g.Wait()
	},
}

// newRouter wires the API server to the application environment and the
// export clients configured in c.
func newRouter(env *appEnv, c *config.Config) *chi.Mux {
	deps := api.Deps{
		Tasks:        env.Orchestrator,
		BackendToken: c.Apify.Token != "",
		NewNotion: func(token string) notion.Client {
			return notion.NewClient(token, notion.WithRateLimit(c.Notion.RateLimit))
		},
		NotionToken:      c.Notion.Token,
		NotionDatabaseID: c.Notion.DatabaseID,
		NewSheets: func(ctx context.Context, creds []byte) (sheets.Client, error) {
			switch {
			case len(creds) > 0:
				return sheets.NewClient(ctx, option.WithCredentialsJSON(creds))
			case c.Sheets.CredentialsFile != "":
				return sheets.NewClient(ctx, option.WithCredentialsFile(c.Sheets.CredentialsFile))
			default:
				return nil, eris.New("sheets: no credentials configured")
			}
		},
		SheetsConfigured: c.Sheets.CredentialsFile != "",
	}
	if c.Server.MetricsEnabled {
		deps.MetricsGatherer = env.Metrics
	}

	return api.NewServer(deps,
		api.WithAllowedOrigins(c.Server.AllowedOrigins...),
		api.WithRateLimit(c.Server.RateLimitPerMin),
		api.WithSecurityHeaders(c.Server.SecurityHeaders),
		api.WithMaxBodyBytes(c.Server.MaxRequestBytes),
		api.WithRequestTimeout(c.Server.RequestTimeout()),
	)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
