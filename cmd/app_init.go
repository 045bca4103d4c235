package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/sells-group/lead-scraper/internal/config"
	"github.com/sells-group/lead-scraper/internal/source"
	"github.com/sells-group/lead-scraper/internal/task"
	"github.com/sells-group/lead-scraper/pkg/apify"
)

// appEnv holds the orchestrator and its collaborators needed by the serve
// and scrape commands.
type appEnv struct {
	Orchestrator *task.Orchestrator
	Registry     *task.Registry
	Metrics      *prometheus.Registry
}

// Close cancels outstanding jobs and waits for them up to timeout.
func (e *appEnv) Close(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := e.Orchestrator.Close(ctx); err != nil {
		zap.L().Warn("orchestrator did not stop cleanly", zap.Error(err))
	}
}

// initApp builds the Apify backend, the source adapters and the
// orchestrator from c. Callers should defer env.Close.
func initApp(c *config.Config) *appEnv {
	backend := source.NewApifyBackend(c.Apify.Token,
		source.WithActors(c.Apify.ContactsActor, c.Apify.PlacesActor),
		source.WithClientFactory(func(token string) apify.Client {
			if c.Apify.BaseURL == "" {
				return apify.NewClient(token)
			}
			return apify.NewClient(token, apify.WithBaseURL(c.Apify.BaseURL))
		}),
		source.WithPollOptions(pollOptions(c.Apify)...),
	)

	opts := []source.Option{
		source.WithPolicy(c.Scrape.Retry.Policy()),
		source.WithPace(c.Scrape.Pace()),
	}
	adapters := []source.Adapter{
		source.NewContacts(backend, opts...),
		source.NewPlaces(backend, opts...),
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	registry := task.NewRegistry()
	orch := task.New(registry, adapters, task.WithRegisterer(reg))

	zap.L().Debug("application initialized",
		zap.String("contacts_actor", c.Apify.ContactsActor),
		zap.String("places_actor", c.Apify.PlacesActor),
		zap.Bool("backend_token", c.Apify.Token != ""),
	)

	return &appEnv{Orchestrator: orch, Registry: registry, Metrics: reg}
}

// pollOptions keeps the client defaults for unset intervals.
func pollOptions(c config.ApifyConfig) []apify.PollOption {
	var opts []apify.PollOption
	if c.PollIntervalSecs > 0 {
		opts = append(opts, apify.WithPollInterval(time.Duration(c.PollIntervalSecs)*time.Second))
	}
	if c.PollCapSecs > 0 {
		opts = append(opts, apify.WithPollCap(time.Duration(c.PollCapSecs)*time.Second))
	}
	if c.RunTimeoutSecs > 0 {
		opts = append(opts, apify.WithPollTimeout(time.Duration(c.RunTimeoutSecs)*time.Second))
	}
	return opts
}
