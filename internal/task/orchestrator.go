// Package task runs scraping jobs asynchronously and tracks their state.
//
// Submit validates a job, stores a pending snapshot and returns it at once.
// Each job then runs in its own goroutine: the worker reports progress and
// finally an outcome over channels, and the job's owner goroutine is the only
// writer of that job's snapshots in the Registry.
package task

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-scraper/internal/model"
	"github.com/sells-group/lead-scraper/internal/normalize"
	"github.com/sells-group/lead-scraper/internal/source"
)

// Progress bands.
const (
	progressInitCombined = 5
	progressInitSingle   = 10
	progressScrapeStart  = 10
	progressScrapeSpan   = 80
	progressFinalize     = 95
	progressDone         = 100
)

var minStarsRe = regexp.MustCompile(`^[1-5]?$`)

// Orchestrator owns the job state machine.
type Orchestrator struct {
	registry *Registry
	adapters map[model.Source]source.Adapter
	metrics  *metrics
	now      func() time.Time
	newID    func() string

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closed  atomic.Bool

	mu   sync.Mutex
	done map[string]chan struct{}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRegisterer registers the orchestrator's metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *Orchestrator) { o.metrics = newMetrics(reg, o.registry.Len) }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDGenerator overrides task ID generation.
func WithIDGenerator(f func() string) Option {
	return func(o *Orchestrator) { o.newID = f }
}

// New creates an Orchestrator backed by registry and the given adapters.
// Jobs run on a context detached from any request and end with Close.
func New(registry *Registry, adapters []source.Adapter, opts ...Option) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		registry: registry,
		adapters: make(map[model.Source]source.Adapter, len(adapters)),
		now:      time.Now,
		newID:    uuid.NewString,
		baseCtx:  ctx,
		cancel:   cancel,
		done:     make(map[string]chan struct{}),
	}
	for _, a := range adapters {
		o.adapters[a.Source()] = a
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = newMetrics(nil, o.registry.Len)
	}
	return o
}

// Submit validates spec, stores a pending task and starts it in the
// background. The returned snapshot is the pending one.
func (o *Orchestrator) Submit(_ context.Context, spec model.JobSpec) (model.Task, error) {
	if o.closed.Load() {
		return model.Task{}, ErrClosed
	}
	if err := Validate(spec); err != nil {
		return model.Task{}, err
	}

	now := o.now()
	t := model.Task{
		ID:        o.newID(),
		Kind:      spec.Kind,
		Status:    model.TaskStatusPending,
		Message:   InitiatedMessage(spec),
		Sources:   spec.Sources(),
		Fields:    spec.Fields,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Admission and wg.Add happen under mu so Close cannot start waiting
	// between them.
	o.mu.Lock()
	if o.closed.Load() {
		o.mu.Unlock()
		return model.Task{}, ErrClosed
	}
	if err := o.registry.Create(t); err != nil {
		o.mu.Unlock()
		return model.Task{}, err
	}
	done := make(chan struct{})
	o.done[t.ID] = done
	o.wg.Add(1)
	o.mu.Unlock()

	o.metrics.submitted.WithLabelValues(string(spec.Kind)).Inc()
	zap.L().Info("task: submitted",
		zap.String("task_id", t.ID),
		zap.String("kind", string(spec.Kind)),
		zap.Int("sources", len(t.Sources)),
	)

	go o.own(t.ID, spec, done)
	return t, nil
}

// Status returns the current snapshot of a task.
func (o *Orchestrator) Status(id string) (model.Task, error) {
	t, ok := o.registry.Get(id)
	if !ok {
		return model.Task{}, ErrNotFound
	}
	return t, nil
}

// Wait blocks until the task is terminal or ctx is done.
func (o *Orchestrator) Wait(ctx context.Context, id string) (model.Task, error) {
	o.mu.Lock()
	done, ok := o.done[id]
	o.mu.Unlock()
	if !ok {
		return o.Status(id)
	}
	select {
	case <-done:
		return o.Status(id)
	case <-ctx.Done():
		return model.Task{}, eris.Wrapf(ctx.Err(), "task: wait %s", id)
	}
}

// Close stops accepting jobs and waits for running ones to finish. If ctx
// expires first, running jobs are cancelled and Close still waits for them
// to record their failure.
func (o *Orchestrator) Close(ctx context.Context) error {
	o.mu.Lock()
	o.closed.Store(true)
	o.mu.Unlock()
	finished := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		o.cancel()
		return nil
	case <-ctx.Done():
		o.cancel()
		<-finished
		return eris.Wrap(ctx.Err(), "task: close")
	}
}

type progressUpdate struct {
	progress int
	message  string
}

type outcome struct {
	records []model.Record
	message string
	err     error // orchestration fault
	failed  bool  // every source failed on a single-source job
}

// own is the only writer of id's snapshots after creation.
func (o *Orchestrator) own(id string, spec model.JobSpec, done chan struct{}) {
	defer o.wg.Done()
	defer close(done)

	o.metrics.running.Inc()
	defer o.metrics.running.Dec()

	o.apply(id, func(t model.Task) model.Task {
		t.Status = model.TaskStatusRunning
		t.Progress = progressInitSingle
		if spec.Kind == model.JobKindCombined {
			t.Progress = progressInitCombined
		}
		t.Message = initializingMessage(spec.Kind)
		return t
	})

	updates := make(chan progressUpdate)
	acks := make(chan struct{})
	results := make(chan outcome, 1)
	go o.work(spec, updates, acks, results)

	for {
		select {
		case u := <-updates:
			o.apply(id, func(t model.Task) model.Task {
				t.Progress = u.progress
				t.Message = u.message
				return t
			})
			acks <- struct{}{}
		case out := <-results:
			o.finish(id, spec, out)
			return
		}
	}
}

// work executes the job. Each progress report blocks until the owner has
// stored it, so snapshots never lag behind the adapter being run.
func (o *Orchestrator) work(spec model.JobSpec, updates chan<- progressUpdate, acks <-chan struct{}, results chan<- outcome) {
	defer func() {
		if r := recover(); r != nil {
			results <- outcome{err: eris.Errorf("panic: %v", r)}
		}
	}()
	results <- o.run(o.baseCtx, spec, func(progress int, msg string) {
		updates <- progressUpdate{progress: progress, message: msg}
		<-acks
	})
}

func (o *Orchestrator) run(ctx context.Context, spec model.JobSpec, report func(int, string)) outcome {
	sources := spec.Sources()
	if len(sources) == 0 {
		return outcome{err: eris.New("no source enabled")}
	}
	step := progressScrapeSpan / len(sources)

	var (
		records []model.Record
		results []source.Result
	)
	for i, src := range sources {
		report(progressScrapeStart+i*step, scrapingMessage(src))

		adapter, ok := o.adapters[src]
		if !ok {
			return outcome{err: eris.Errorf("no adapter for source %s", src)}
		}
		res := adapter.Run(ctx, spec)
		o.metrics.sourceRuns.WithLabelValues(string(src), string(res.Status)).Inc()
		if !res.OK() {
			zap.L().Warn("task: source failed",
				zap.String("source", string(src)),
				zap.String("message", res.Message),
				zap.Error(res.Err),
			)
		} else {
			o.metrics.records.WithLabelValues(string(src)).Add(float64(len(res.Records)))
			records = append(records, res.Records...)
		}
		results = append(results, res)
	}

	if spec.Kind != model.JobKindCombined && len(results) == 1 && !results[0].OK() {
		return outcome{failed: true, message: results[0].Message}
	}

	report(progressFinalize, finalizingMessage(spec.Kind))
	records = normalize.Clean(records)
	if spec.MaxRecords > 0 && len(records) > spec.MaxRecords {
		records = records[:spec.MaxRecords]
	}

	msg := fmt.Sprintf("Successfully scraped %d leads from %s", len(records), sourceList(sources))
	if spec.Kind != model.JobKindCombined && len(results) == 1 {
		msg = results[0].Message
	}
	return outcome{records: records, message: msg}
}

func (o *Orchestrator) finish(id string, spec model.JobSpec, out outcome) {
	var status model.TaskStatus
	t := o.apply(id, func(t model.Task) model.Task {
		switch {
		case out.err != nil:
			t.Status = model.TaskStatusFailed
			t.Progress = 0
			t.Records = nil
			t.TotalCount = 0
			t.Message = failurePrefix(spec.Kind) + out.err.Error()
		case out.failed:
			t.Status = model.TaskStatusFailed
			t.Progress = 0
			t.Records = nil
			t.TotalCount = 0
			t.Message = out.message
		default:
			t.Status = model.TaskStatusCompleted
			t.Progress = progressDone
			t.Records = out.records
			t.TotalCount = len(out.records)
			t.Message = out.message
		}
		status = t.Status
		return t
	})

	o.metrics.finished.WithLabelValues(string(spec.Kind), string(status)).Inc()
	log := zap.L().With(zap.String("task_id", id), zap.String("status", string(status)))
	if status == model.TaskStatusFailed {
		log.Error("task: failed", zap.String("message", t.Message), zap.Error(out.err))
		return
	}
	log.Info("task: completed", zap.Int("records", t.TotalCount))
}

func (o *Orchestrator) apply(id string, fn func(model.Task) model.Task) model.Task {
	t, err := o.registry.Update(id, func(t model.Task) model.Task {
		t = fn(t)
		t.UpdatedAt = o.now()
		return t
	})
	if err != nil {
		zap.L().Error("task: update rejected", zap.String("task_id", id), zap.Error(err))
	}
	return t
}

// Validate checks a job specification before any task exists.
func Validate(spec model.JobSpec) error {
	switch spec.Kind {
	case model.JobKindContacts:
		if !spec.HasContacts() {
			return &ValidationError{Field: "urls", Reason: "at least one contacts URL is required"}
		}
	case model.JobKindPlaces:
		if !spec.HasPlaces() {
			return &ValidationError{Field: "places", Reason: "either provide search terms with location, or Google Maps URLs"}
		}
	case model.JobKindCombined:
		if !spec.HasContacts() && !spec.HasPlaces() {
			return &ValidationError{Reason: "at least one source must be enabled: contacts URLs, search terms with location, or Google Maps URLs"}
		}
	default:
		return &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown job kind %q", spec.Kind)}
	}

	if len(spec.Fields) == 0 {
		return &ValidationError{Field: "fields", Reason: "at least one field is required"}
	}
	for _, f := range spec.Fields {
		if !f.Valid() {
			return &ValidationError{Field: "fields", Reason: fmt.Sprintf("unknown field %q", f)}
		}
	}
	if spec.MaxRecords < model.MinRecords || spec.MaxRecords > model.MaxRecordsLimit {
		return &ValidationError{Field: "max_records", Reason: fmt.Sprintf("must be between %d and %d", model.MinRecords, model.MaxRecordsLimit)}
	}
	if q := spec.Places; q != nil && spec.HasPlaces() {
		if !minStarsRe.MatchString(q.MinStars) {
			return &ValidationError{Field: "min_stars", Reason: "must be empty or a digit from 1 to 5"}
		}
		if q.MaxPlaces < 0 || q.EnrichmentRecords < 0 {
			return &ValidationError{Field: "places", Reason: "limits must not be negative"}
		}
	}
	return nil
}

// InitiatedMessage is the message of a freshly submitted task.
func InitiatedMessage(spec model.JobSpec) string {
	switch spec.Kind {
	case model.JobKindContacts:
		return "Scraping task initiated successfully"
	case model.JobKindPlaces:
		return "Google Maps scraping task initiated successfully"
	default:
		return "Combined scraping task initiated for " + sourceList(spec.Sources())
	}
}

func initializingMessage(kind model.JobKind) string {
	switch kind {
	case model.JobKindContacts:
		return "Initializing scraper..."
	case model.JobKindPlaces:
		return "Initializing Google Maps scraper..."
	default:
		return "Initializing combined scraper..."
	}
}

func scrapingMessage(src model.Source) string {
	if src == model.SourcePlaces {
		return "Scraping Google Maps data..."
	}
	return "Scraping Apollo.io leads..."
}

func finalizingMessage(kind model.JobKind) string {
	if kind == model.JobKindCombined {
		return "Processing combined results..."
	}
	return "Processing results..."
}

func failurePrefix(kind model.JobKind) string {
	switch kind {
	case model.JobKindContacts:
		return "Scraping failed: "
	case model.JobKindPlaces:
		return "Google Maps scraping failed: "
	default:
		return "Combined scraping failed: "
	}
}

func sourceList(sources []model.Source) string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.DisplayName()
	}
	return strings.Join(names, " and ")
}
