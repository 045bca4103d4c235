// Package notion wraps the Notion API for creating database entries.
package notion

import (
	"context"
	"net/http"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the Notion API operations used by this application.
type Client interface {
	CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
	GetDatabase(ctx context.Context, dbID string) (*notionapi.Database, error)
}

// ClientOption configures the Notion client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	limiter *rate.Limiter
	opts    []notionapi.ClientOption
}

// WithRateLimit overrides the default rate limit (2 req/s). Zero or less
// disables throttling.
func WithRateLimit(rps float64) ClientOption {
	return func(c *clientConfig) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// WithHTTPClient sets the *http.Client used for API calls.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.opts = append(c.opts, notionapi.WithHTTPClient(hc))
	}
}

// notionClient implements Client by wrapping a *notionapi.Client.
type notionClient struct {
	inner   *notionapi.Client
	limiter *rate.Limiter
}

// NewClient creates a Notion client for the given integration token.
// By default, calls are throttled to 2 req/s.
func NewClient(token string, opts ...ClientOption) Client {
	cfg := clientConfig{limiter: rate.NewLimiter(2, 1)}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &notionClient{
		inner:   notionapi.NewClient(notionapi.Token(token), cfg.opts...),
		limiter: cfg.limiter,
	}
}

// wait blocks until the rate limiter allows one event, or ctx is cancelled.
func (c *notionClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *notionClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "notion: rate limit")
	}
	page, err := c.inner.Page.Create(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "notion: create page")
	}
	return page, nil
}

func (c *notionClient) GetDatabase(ctx context.Context, dbID string) (*notionapi.Database, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "notion: rate limit")
	}
	db, err := c.inner.Database.Get(ctx, notionapi.DatabaseID(dbID))
	if err != nil {
		return nil, eris.Wrapf(err, "notion: get database %s", dbID)
	}
	return db, nil
}

// PlainText joins the plain text of a rich text list.
func PlainText(rt []notionapi.RichText) string {
	var s string
	for _, r := range rt {
		if r.PlainText != "" {
			s += r.PlainText
		} else if r.Text != nil {
			s += r.Text.Content
		}
	}
	return s
}
