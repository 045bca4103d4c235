package source

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/lead-scraper/internal/model"
	"github.com/sells-group/lead-scraper/internal/normalize"
	"github.com/sells-group/lead-scraper/internal/resilience"
)

const defaultMaxPlaces = 50

// Places scrapes businesses from the places backend with a single call,
// either by search terms and location or by direct place URLs.
type Places struct {
	backend PlacesBackend
	opts    options
}

// NewPlaces creates a places adapter.
func NewPlaces(backend PlacesBackend, opts ...Option) *Places {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Places{backend: backend, opts: o}
}

// Source implements Adapter.
func (p *Places) Source() model.Source { return model.SourcePlaces }

// Run implements Adapter.
func (p *Places) Run(ctx context.Context, spec model.JobSpec) Result {
	src := model.SourcePlaces
	q := spec.Places
	if !q.HasURLs() && !q.HasSearch() {
		return failure(src, "Either provide search terms with location, or Google Maps URLs", nil)
	}

	req := PlacesRequest{
		MaxPlaces:         q.MaxPlaces,
		MinStars:          q.MinStars,
		EnrichmentRecords: q.EnrichmentRecords,
		SkipClosed:        q.SkipClosed,
		Fields:            fieldNames(spec.Fields),
		Token:             spec.BackendToken,
	}
	if req.MaxPlaces <= 0 {
		req.MaxPlaces = defaultMaxPlaces
	}
	if q.HasURLs() {
		req.StartURLs = model.NonBlank(q.URLs)
	} else {
		req.SearchTerms = model.NonBlank(q.SearchTerms)
		req.Location = q.Location
	}

	attempts := 0
	raw, err := resilience.DoVal(ctx, p.opts.retryPolicy(src, "fetch_places"), func(ctx context.Context) ([]model.RawRecord, error) {
		attempts++
		return p.backend.FetchPlaces(ctx, req)
	})
	if err != nil {
		zap.L().Warn("source: places scrape failed",
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return failure(src, "Google Maps scraping failed: "+err.Error(),
			&BackendError{Source: src, Attempts: attempts, Err: err})
	}

	records := normalize.Records(src, raw, spec.Fields)
	zap.L().Info("source: places scraped",
		zap.Int("items", len(raw)),
		zap.Int("records", len(records)),
	)
	return Result{
		Source:   src,
		Status:   StatusSuccess,
		Records:  records,
		RawCount: len(raw),
		Message:  fmt.Sprintf("Successfully scraped %d places from Google Maps", len(records)),
	}
}
