package apify

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultPollInitial = 2 * time.Second
	defaultPollCap     = 15 * time.Second
	defaultPollTimeout = 10 * time.Minute
	defaultPageSize    = 1000
)

// PollOption configures WaitForRun.
type PollOption func(*pollConfig)

type pollConfig struct {
	initial time.Duration
	cap     time.Duration
	timeout time.Duration
}

// WithPollInterval overrides the initial poll interval.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.initial = d
	}
}

// WithPollCap overrides the maximum poll interval.
func WithPollCap(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.cap = d
	}
}

// WithPollTimeout overrides the default timeout (applied only if the parent
// context has no deadline).
func WithPollTimeout(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.timeout = d
	}
}

// WaitForRun polls GetRun until the run stops or ctx expires. A run that
// stops in any status other than SUCCEEDED is an error.
func WaitForRun(ctx context.Context, client Client, runID string, opts ...PollOption) (*Run, error) {
	cfg := pollConfig{initial: defaultPollInitial, cap: defaultPollCap, timeout: defaultPollTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	interval := cfg.initial
	for {
		run, err := client.GetRun(ctx, runID)
		if err != nil {
			return nil, eris.Wrapf(err, "apify: poll run %s", runID)
		}
		if run.Terminal() {
			if !run.Succeeded() {
				return run, eris.Errorf("apify: run %s finished with status %s", runID, run.Status)
			}
			return run, nil
		}

		select {
		case <-ctx.Done():
			return nil, eris.Wrapf(ctx.Err(), "apify: poll run %s timed out", runID)
		case <-time.After(interval):
		}

		interval *= 2
		if interval > cfg.cap {
			interval = cfg.cap
		}
	}
}

// CollectItems reads a dataset page by page until it is exhausted or maxItems
// items have been read. A maxItems of zero or less reads everything.
func CollectItems(ctx context.Context, client Client, datasetID string, maxItems int) ([]map[string]any, error) {
	var out []map[string]any
	for offset := 0; ; {
		limit := defaultPageSize
		if maxItems > 0 && maxItems-len(out) < limit {
			limit = maxItems - len(out)
		}
		page, err := client.DatasetItems(ctx, datasetID, offset, limit)
		if err != nil {
			return out, err
		}
		out = append(out, page...)
		offset += len(page)
		if len(page) < limit || (maxItems > 0 && len(out) >= maxItems) {
			return out, nil
		}
	}
}

// Call starts an actor, waits for it to succeed and returns up to maxItems items
// from its default dataset.
func Call(ctx context.Context, client Client, actorID string, input any, maxItems int, opts ...PollOption) ([]map[string]any, error) {
	run, err := client.RunActor(ctx, actorID, input)
	if err != nil {
		return nil, err
	}
	if !run.Terminal() {
		run, err = WaitForRun(ctx, client, run.ID, opts...)
		if err != nil {
			return nil, err
		}
	} else if !run.Succeeded() {
		return nil, eris.Errorf("apify: run %s finished with status %s", run.ID, run.Status)
	}
	if run.DefaultDatasetID == "" {
		return nil, eris.Errorf("apify: run %s has no dataset", run.ID)
	}
	return CollectItems(ctx, client, run.DefaultDatasetID, maxItems)
}
