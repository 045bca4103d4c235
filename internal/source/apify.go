package source

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-scraper/internal/model"
	"github.com/sells-group/lead-scraper/internal/resilience"
	"github.com/sells-group/lead-scraper/pkg/apify"
)

// Default actors backing each source.
const (
	DefaultContactsActor = "code_crafter/apollo-io-scraper"
	DefaultPlacesActor   = "nwua9Gu5YrADL7ZDj"
)

// ErrNoToken is returned when neither the job nor the configuration carries
// a backend token.
var ErrNoToken = errors.New("source: backend token not configured")

// ApifyBackend implements ContactsBackend and PlacesBackend on Apify actors.
type ApifyBackend struct {
	token         string
	contactsActor string
	placesActor   string
	newClient     func(token string) apify.Client
	poll          []apify.PollOption
}

// ApifyOption configures an ApifyBackend.
type ApifyOption func(*ApifyBackend)

// WithActors overrides the actor IDs. Empty values keep the defaults.
func WithActors(contacts, places string) ApifyOption {
	return func(b *ApifyBackend) {
		if contacts != "" {
			b.contactsActor = contacts
		}
		if places != "" {
			b.placesActor = places
		}
	}
}

// WithClientFactory overrides how per-token Apify clients are created.
func WithClientFactory(f func(token string) apify.Client) ApifyOption {
	return func(b *ApifyBackend) { b.newClient = f }
}

// WithPollOptions sets the run polling options.
func WithPollOptions(opts ...apify.PollOption) ApifyOption {
	return func(b *ApifyBackend) { b.poll = opts }
}

// NewApifyBackend creates a backend. token is used for jobs that do not
// bring their own.
func NewApifyBackend(token string, opts ...ApifyOption) *ApifyBackend {
	b := &ApifyBackend{
		token:         token,
		contactsActor: DefaultContactsActor,
		placesActor:   DefaultPlacesActor,
		newClient: func(token string) apify.Client {
			return apify.NewClient(token)
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *ApifyBackend) client(token string) (apify.Client, error) {
	if token == "" {
		token = b.token
	}
	if token == "" {
		return nil, resilience.NewPermanentError(ErrNoToken, 0)
	}
	return b.newClient(token), nil
}

// FetchContacts implements ContactsBackend.
func (b *ApifyBackend) FetchContacts(ctx context.Context, req ContactsRequest) ([]model.RawRecord, error) {
	c, err := b.client(req.Token)
	if err != nil {
		return nil, err
	}
	input := map[string]any{
		"url":        req.URL,
		"maxResults": req.MaxResults,
		"fields":     req.Fields,
	}
	items, err := apify.Call(ctx, c, b.contactsActor, input, req.MaxResults, b.poll...)
	if err != nil {
		return nil, classify(eris.Wrap(err, "source: contacts actor"))
	}
	return toRaw(items), nil
}

// FetchPlaces implements PlacesBackend.
func (b *ApifyBackend) FetchPlaces(ctx context.Context, req PlacesRequest) ([]model.RawRecord, error) {
	c, err := b.client(req.Token)
	if err != nil {
		return nil, err
	}
	items, err := apify.Call(ctx, c, b.placesActor, placesInput(req), 0, b.poll...)
	if err != nil {
		return nil, classify(eris.Wrap(err, "source: places actor"))
	}
	return toRaw(items), nil
}

func placesInput(req PlacesRequest) map[string]any {
	input := map[string]any{
		"maxCrawledPlacesPerSearch":     req.MaxPlaces,
		"language":                      "en",
		"searchMatching":                "all",
		"placeMinimumStars":             req.MinStars,
		"website":                       "allPlaces",
		"skipClosedPlaces":              req.SkipClosed,
		"scrapePlaceDetailPage":         true,
		"scrapeContacts":                req.EnrichmentRecords > 0,
		"maximumLeadsEnrichmentRecords": req.EnrichmentRecords,
		"maxReviews":                    0,
		"maxQuestions":                  0,
		"includeWebResults":             false,
	}
	if len(req.StartURLs) > 0 {
		start := make([]map[string]string, len(req.StartURLs))
		for i, u := range req.StartURLs {
			start[i] = map[string]string{"url": u}
		}
		input["startUrls"] = start
	} else {
		input["searchStringsArray"] = req.SearchTerms
		input["locationQuery"] = req.Location
	}
	return input
}

// classify marks HTTP failures as transient or permanent so the retry
// policy can skip hopeless attempts. Network failures are transient.
func classify(err error) error {
	var apiErr *apify.APIError
	if errors.As(err, &apiErr) {
		return resilience.ForHTTPStatus(err, apiErr.StatusCode)
	}
	if resilience.IsTransient(err) {
		return resilience.NewTransientError(err, 0)
	}
	return err
}

func toRaw(items []map[string]any) []model.RawRecord {
	out := make([]model.RawRecord, len(items))
	for i, item := range items {
		out[i] = model.RawRecord(item)
	}
	return out
}
