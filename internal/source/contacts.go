package source

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/lead-scraper/internal/model"
	"github.com/sells-group/lead-scraper/internal/normalize"
	"github.com/sells-group/lead-scraper/internal/resilience"
)

// maxResultsPerURL is the most items the contacts backend returns per URL.
const maxResultsPerURL = 1000

// Contacts scrapes people from the professional-contacts backend, one
// backend call per search URL.
type Contacts struct {
	backend ContactsBackend
	opts    options
}

// NewContacts creates a contacts adapter.
func NewContacts(backend ContactsBackend, opts ...Option) *Contacts {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Contacts{backend: backend, opts: o}
}

// Source implements Adapter.
func (c *Contacts) Source() model.Source { return model.SourceContacts }

// Run implements Adapter. Each URL gets its own retries; URLs that still fail
// are skipped, and the run fails only when every URL failed.
func (c *Contacts) Run(ctx context.Context, spec model.JobSpec) Result {
	src := model.SourceContacts
	var urls []string
	if spec.Contacts != nil {
		urls = model.NonBlank(spec.Contacts.URLs)
	}
	if len(urls) == 0 {
		return failure(src, "At least one contacts search URL is required", nil)
	}

	maxResults := maxResultsPerURL
	if spec.MaxRecords > 0 {
		maxResults = min(spec.MaxRecords, maxResultsPerURL)
	}
	limiter := rate.NewLimiter(rate.Every(c.opts.pace), 1)
	log := zap.L().With(zap.String("source", string(src)))

	var (
		raw     []model.RawRecord
		lastErr *BackendError
		failed  int
	)
	for i, u := range urls {
		if err := limiter.Wait(ctx); err != nil {
			lastErr = &BackendError{Source: src, Err: err}
			failed += len(urls) - i
			break
		}

		req := ContactsRequest{URL: u, MaxResults: maxResults, Fields: fieldNames(spec.Fields), Token: spec.BackendToken}
		attempts := 0
		items, err := resilience.DoVal(ctx, c.opts.retryPolicy(src, "fetch_contacts"), func(ctx context.Context) ([]model.RawRecord, error) {
			attempts++
			return c.backend.FetchContacts(ctx, req)
		})
		if err != nil {
			failed++
			lastErr = &BackendError{Source: src, Attempts: attempts, Err: err}
			log.Warn("source: contacts url failed, skipping", zap.String("url", u), zap.Int("attempts", attempts), zap.Error(err))
			continue
		}
		log.Info("source: contacts url scraped", zap.String("url", u), zap.Int("items", len(items)))
		raw = append(raw, items...)
	}

	if failed == len(urls) && lastErr != nil {
		return failure(src, "Scraping failed: "+lastErr.Err.Error(), lastErr)
	}

	records := normalize.Records(src, raw, spec.Fields)
	return Result{
		Source:   src,
		Status:   StatusSuccess,
		Records:  records,
		RawCount: len(raw),
		Message:  fmt.Sprintf("Successfully scraped %d leads", len(records)),
	}
}
