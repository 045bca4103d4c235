// Package source adapts the external scraping backends to canonical records.
//
// An adapter checks its preconditions, calls its backend under a retry
// policy and maps each raw item through the normalizer. Adapters never
// return errors: failures are reported inside the Result.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/sells-group/lead-scraper/internal/model"
	"github.com/sells-group/lead-scraper/internal/resilience"
)

// Status is the outcome of one adapter run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result is what an adapter hands back to the orchestrator.
type Result struct {
	Source   model.Source
	Status   Status
	Records  []model.Record
	RawCount int
	Message  string
	Err      error
}

// OK reports whether the run succeeded.
func (r Result) OK() bool { return r.Status == StatusSuccess }

// Adapter runs one source for a job.
type Adapter interface {
	Source() model.Source
	Run(ctx context.Context, spec model.JobSpec) Result
}

// BackendError is a backend failure that survived the retry policy.
type BackendError struct {
	Source   model.Source
	Attempts int
	Err      error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend failed after %d attempt(s): %v", e.Source, e.Attempts, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// ContactsRequest is one professional-contacts backend call.
type ContactsRequest struct {
	URL        string
	MaxResults int
	Fields     []string
	Token      string
}

// PlacesRequest is one places backend call. StartURLs takes precedence over
// SearchTerms and Location.
type PlacesRequest struct {
	SearchTerms       []string
	Location          string
	StartURLs         []string
	MaxPlaces         int
	MinStars          string
	EnrichmentRecords int
	SkipClosed        bool
	Fields            []string
	Token             string
}

// ContactsBackend fetches raw contact items.
type ContactsBackend interface {
	FetchContacts(ctx context.Context, req ContactsRequest) ([]model.RawRecord, error)
}

// PlacesBackend fetches raw place items.
type PlacesBackend interface {
	FetchPlaces(ctx context.Context, req PlacesRequest) ([]model.RawRecord, error)
}

// Option configures an adapter.
type Option func(*options)

type options struct {
	policy resilience.Policy
	pace   time.Duration
}

func defaultOptions() options {
	return options{
		policy: resilience.DefaultPolicy(),
		pace:   time.Second,
	}
}

// WithPolicy sets the retry policy applied to each backend call.
func WithPolicy(p resilience.Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithPace sets the minimum gap between successive backend calls within one
// run. Zero disables pacing.
func WithPace(d time.Duration) Option {
	return func(o *options) { o.pace = d }
}

// retryPolicy returns the configured policy, logging retries unless the
// caller installed its own hook.
func (o options) retryPolicy(src model.Source, operation string) resilience.Policy {
	p := o.policy
	if p.OnRetry == nil {
		p.OnRetry = resilience.RetryLogger(string(src), operation)
	}
	return p
}

func fieldNames(fields []model.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.String()
	}
	return out
}

func failure(src model.Source, msg string, err error) Result {
	return Result{Source: src, Status: StatusError, Message: msg, Err: err}
}
