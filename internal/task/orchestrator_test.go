package task

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-scraper/internal/model"
	"github.com/sells-group/lead-scraper/internal/source"
)

type fakeAdapter struct {
	id  model.Source
	run func(ctx context.Context, spec model.JobSpec) source.Result
}

func (f *fakeAdapter) Source() model.Source { return f.id }

func (f *fakeAdapter) Run(ctx context.Context, spec model.JobSpec) source.Result {
	return f.run(ctx, spec)
}

func adapter(src model.Source, run func(ctx context.Context, spec model.JobSpec) source.Result) *fakeAdapter {
	return &fakeAdapter{id: src, run: run}
}

func succeed(src model.Source, names ...string) *fakeAdapter {
	return adapter(src, func(context.Context, model.JobSpec) source.Result {
		recs := make([]model.Record, len(names))
		for i, n := range names {
			recs[i] = model.Record{model.FieldName: n}
		}
		return source.Result{Source: src, Status: source.StatusSuccess, Records: recs, Message: fmt.Sprintf("ok %d", len(recs))}
	})
}

func fail(src model.Source, msg string) *fakeAdapter {
	return adapter(src, func(context.Context, model.JobSpec) source.Result {
		return source.Result{Source: src, Status: source.StatusError, Message: msg}
	})
}

func combinedSpec(maxRecords int) model.JobSpec {
	return model.JobSpec{
		Kind:       model.JobKindCombined,
		Contacts:   &model.ContactsQuery{URLs: []string{"https://app.apollo.io/a"}},
		Places:     &model.PlacesQuery{SearchTerms: []string{"dentist"}, Location: "Austin"},
		Fields:     []model.Field{model.FieldName},
		MaxRecords: maxRecords,
	}
}

func newOrchestrator(t *testing.T, adapters ...source.Adapter) *Orchestrator {
	t.Helper()
	o := New(NewRegistry(), adapters, WithRegisterer(prometheus.NewRegistry()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, o.Close(ctx))
	})
	return o
}

func wait(t *testing.T, o *Orchestrator, id string) model.Task {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, err := o.Wait(ctx, id)
	require.NoError(t, err)
	return got
}

func names(recs []model.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r[model.FieldName]
	}
	return out
}

func TestSubmit_ReturnsPendingSnapshot(t *testing.T) {
	gate := make(chan struct{})
	contacts := adapter(model.SourceContacts, func(context.Context, model.JobSpec) source.Result {
		<-gate
		return source.Result{Source: model.SourceContacts, Status: source.StatusSuccess, Message: "Successfully scraped 0 leads"}
	})
	o := newOrchestrator(t, contacts)

	spec := combinedSpec(10)
	spec.Kind = model.JobKindContacts
	task, err := o.Submit(context.Background(), spec)
	require.NoError(t, err)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, model.TaskStatusPending, task.Status)
	assert.Equal(t, 0, task.Progress)
	assert.Equal(t, "Scraping task initiated successfully", task.Message)
	assert.Equal(t, []model.Source{model.SourceContacts}, task.Sources)
	assert.Nil(t, task.Records)

	require.Eventually(t, func() bool {
		s, _ := o.Status(task.ID)
		return s.Status == model.TaskStatusRunning && s.Message == "Scraping Apollo.io leads..."
	}, time.Second, time.Millisecond)

	close(gate)
	done := wait(t, o, task.ID)
	assert.Equal(t, model.TaskStatusCompleted, done.Status)
	assert.Equal(t, 100, done.Progress)
	assert.Equal(t, "Successfully scraped 0 leads", done.Message)
	assert.Empty(t, done.Records)
}

func TestSubmit_ValidationCreatesNoTask(t *testing.T) {
	tests := []struct {
		name  string
		spec  func() model.JobSpec
		field string
	}{
		{"no sources", func() model.JobSpec {
			s := combinedSpec(10)
			s.Contacts, s.Places = nil, nil
			return s
		}, ""},
		{"contacts without urls", func() model.JobSpec {
			s := combinedSpec(10)
			s.Kind = model.JobKindContacts
			s.Contacts = &model.ContactsQuery{URLs: []string{" "}}
			return s
		}, "urls"},
		{"places without location", func() model.JobSpec {
			s := combinedSpec(10)
			s.Kind = model.JobKindPlaces
			s.Places.Location = ""
			return s
		}, "places"},
		{"no fields", func() model.JobSpec {
			s := combinedSpec(10)
			s.Fields = nil
			return s
		}, "fields"},
		{"unknown field", func() model.JobSpec {
			s := combinedSpec(10)
			s.Fields = []model.Field{"shoe_size"}
			return s
		}, "fields"},
		{"max records zero", func() model.JobSpec { return combinedSpec(0) }, "max_records"},
		{"max records too large", func() model.JobSpec { return combinedSpec(50001) }, "max_records"},
		{"bad min stars", func() model.JobSpec {
			s := combinedSpec(10)
			s.Places.MinStars = "6"
			return s
		}, "min_stars"},
		{"unknown kind", func() model.JobSpec {
			s := combinedSpec(10)
			s.Kind = "everything"
			return s
		}, "kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			o := New(reg, nil)
			_, err := o.Submit(context.Background(), tt.spec())

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Zero(t, reg.Len())
			require.NoError(t, o.Close(context.Background()))
		})
	}
}

func TestRun_CombinedOrderAndTruncation(t *testing.T) {
	o := newOrchestrator(t,
		succeed(model.SourcePlaces, "P1", "P2", "P3"),
		succeed(model.SourceContacts, "C1", "C2"),
	)

	task, err := o.Submit(context.Background(), combinedSpec(4))
	require.NoError(t, err)
	assert.Equal(t, "Combined scraping task initiated for Apollo.io and Google Maps", task.Message)

	done := wait(t, o, task.ID)
	assert.Equal(t, model.TaskStatusCompleted, done.Status)
	assert.Equal(t, []string{"C1", "C2", "P1", "P2"}, names(done.Records))
	assert.Equal(t, 4, done.TotalCount)
	assert.Equal(t, "Successfully scraped 4 leads from Apollo.io and Google Maps", done.Message)
}

func TestRun_CombinedTruncationBounds(t *testing.T) {
	tests := []struct {
		name       string
		maxRecords int
		want       []string
	}{
		{"inside contacts", 2, []string{"C1", "C2"}},
		{"first contact only", 1, []string{"C1"}},
		{"exactly contacts", 3, []string{"C1", "C2", "C3"}},
		{"nothing cut", 10, []string{"C1", "C2", "C3", "P1", "P2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOrchestrator(t,
				succeed(model.SourceContacts, "C1", "C2", "C3"),
				succeed(model.SourcePlaces, "P1", "P2"),
			)

			task, err := o.Submit(context.Background(), combinedSpec(tt.maxRecords))
			require.NoError(t, err)

			done := wait(t, o, task.ID)
			assert.Equal(t, model.TaskStatusCompleted, done.Status)
			assert.Equal(t, tt.want, names(done.Records))
			assert.Equal(t, len(tt.want), done.TotalCount)
		})
	}
}

func TestRun_CombinedToleratesSourceFailure(t *testing.T) {
	o := newOrchestrator(t,
		fail(model.SourceContacts, "Scraping failed: token rejected"),
		succeed(model.SourcePlaces, "P1"),
	)

	task, err := o.Submit(context.Background(), combinedSpec(100))
	require.NoError(t, err)

	done := wait(t, o, task.ID)
	assert.Equal(t, model.TaskStatusCompleted, done.Status)
	assert.Equal(t, []string{"P1"}, names(done.Records))
	assert.Equal(t, "Successfully scraped 1 leads from Apollo.io and Google Maps", done.Message)
}

func TestRun_CombinedAllSourcesFailStillCompletes(t *testing.T) {
	o := newOrchestrator(t,
		fail(model.SourceContacts, "a"),
		fail(model.SourcePlaces, "b"),
	)

	task, err := o.Submit(context.Background(), combinedSpec(100))
	require.NoError(t, err)

	done := wait(t, o, task.ID)
	assert.Equal(t, model.TaskStatusCompleted, done.Status)
	assert.Empty(t, done.Records)
	assert.Equal(t, 0, done.TotalCount)
}

func TestRun_SingleSourceFailureFailsTask(t *testing.T) {
	o := newOrchestrator(t, fail(model.SourcePlaces, "Google Maps scraping failed: quota exceeded"))

	spec := combinedSpec(100)
	spec.Kind = model.JobKindPlaces
	task, err := o.Submit(context.Background(), spec)
	require.NoError(t, err)

	done := wait(t, o, task.ID)
	assert.Equal(t, model.TaskStatusFailed, done.Status)
	assert.Equal(t, 0, done.Progress)
	assert.Nil(t, done.Records)
	assert.Equal(t, "Google Maps scraping failed: quota exceeded", done.Message)
}

func TestRun_CleansRecords(t *testing.T) {
	o := newOrchestrator(t, adapter(model.SourceContacts, func(context.Context, model.JobSpec) source.Result {
		return source.Result{Status: source.StatusSuccess, Records: []model.Record{
			{model.FieldName: "Acme\nCorp"},
			{model.FieldName: " \t "},
		}}
	}))

	spec := combinedSpec(100)
	spec.Kind = model.JobKindContacts
	task, err := o.Submit(context.Background(), spec)
	require.NoError(t, err)

	done := wait(t, o, task.ID)
	assert.Equal(t, []string{"Acme Corp"}, names(done.Records))
	assert.Equal(t, 1, done.TotalCount)
}

func TestRun_PanicBecomesFailure(t *testing.T) {
	o := newOrchestrator(t,
		adapter(model.SourceContacts, func(context.Context, model.JobSpec) source.Result { panic("boom") }),
		succeed(model.SourcePlaces, "P1"),
	)

	task, err := o.Submit(context.Background(), combinedSpec(100))
	require.NoError(t, err)

	done := wait(t, o, task.ID)
	assert.Equal(t, model.TaskStatusFailed, done.Status)
	assert.Equal(t, 0, done.Progress)
	assert.Nil(t, done.Records)
	assert.Equal(t, "Combined scraping failed: panic: boom", done.Message)
}

func TestRun_MissingAdapterFails(t *testing.T) {
	o := newOrchestrator(t)

	spec := combinedSpec(100)
	spec.Kind = model.JobKindContacts
	task, err := o.Submit(context.Background(), spec)
	require.NoError(t, err)

	done := wait(t, o, task.ID)
	assert.Equal(t, model.TaskStatusFailed, done.Status)
	assert.Contains(t, done.Message, "Scraping failed: no adapter for source contacts")
}

func TestRun_ProgressBands(t *testing.T) {
	var (
		o    *Orchestrator
		seen []model.Task
		ids  = make(chan string, 1)
	)
	observe := func(src model.Source) *fakeAdapter {
		return adapter(src, func(context.Context, model.JobSpec) source.Result {
			id := <-ids
			s, err := o.Status(id)
			assert.NoError(t, err)
			seen = append(seen, s)
			ids <- id
			return source.Result{Status: source.StatusSuccess}
		})
	}
	o = newOrchestrator(t, observe(model.SourceContacts), observe(model.SourcePlaces))

	task, err := o.Submit(context.Background(), combinedSpec(100))
	require.NoError(t, err)
	ids <- task.ID
	wait(t, o, task.ID)

	require.Len(t, seen, 2)
	assert.Equal(t, 10, seen[0].Progress)
	assert.Equal(t, "Scraping Apollo.io leads...", seen[0].Message)
	assert.Equal(t, 50, seen[1].Progress)
	assert.Equal(t, "Scraping Google Maps data...", seen[1].Message)
	assert.Equal(t, model.TaskStatusRunning, seen[1].Status)
}

func TestStatus_NotFound(t *testing.T) {
	o := newOrchestrator(t)
	_, err := o.Status("nope")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = o.Wait(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestWait_ContextExpires(t *testing.T) {
	gate := make(chan struct{})
	o := newOrchestrator(t, adapter(model.SourceContacts, func(context.Context, model.JobSpec) source.Result {
		<-gate
		return source.Result{Status: source.StatusSuccess}
	}))
	defer close(gate)

	spec := combinedSpec(10)
	spec.Kind = model.JobKindContacts
	task, err := o.Submit(context.Background(), spec)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = o.Wait(ctx, task.ID)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClose_CancelsRunningJobsOnTimeout(t *testing.T) {
	o := New(NewRegistry(), []source.Adapter{adapter(model.SourceContacts, func(ctx context.Context, _ model.JobSpec) source.Result {
		<-ctx.Done()
		return source.Result{Status: source.StatusError, Message: "Scraping failed: " + ctx.Err().Error()}
	})})

	spec := combinedSpec(10)
	spec.Kind = model.JobKindContacts
	task, err := o.Submit(context.Background(), spec)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.Error(t, o.Close(ctx))

	got, err := o.Status(task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusFailed, got.Status)
	assert.Equal(t, "Scraping failed: context canceled", got.Message)

	_, err = o.Submit(context.Background(), spec)
	require.ErrorIs(t, err, ErrClosed)
}

func TestClose_NoJobAdmittedAfterShutdown(t *testing.T) {
	o := New(NewRegistry(), []source.Adapter{succeed(model.SourceContacts, "C1")})
	spec := combinedSpec(10)
	spec.Kind = model.JobKindContacts

	var (
		mu       sync.Mutex
		accepted []string
		wg       sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				task, err := o.Submit(context.Background(), spec)
				if err != nil {
					assert.ErrorIs(t, err, ErrClosed)
					return
				}
				mu.Lock()
				accepted = append(accepted, task.ID)
				mu.Unlock()
			}
		}()
	}

	require.NoError(t, o.Close(context.Background()))
	// Everything admitted before Close returned has finished.
	mu.Lock()
	settled := append([]string(nil), accepted...)
	mu.Unlock()
	for _, id := range settled {
		got, err := o.Status(id)
		require.NoError(t, err)
		assert.True(t, got.Status.Terminal(), "task %s is %s", id, got.Status)
	}
	wg.Wait()

	_, err := o.Submit(context.Background(), spec)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	o := New(NewRegistry(), []source.Adapter{
		succeed(model.SourceContacts, "C1", "C2"),
		fail(model.SourcePlaces, "x"),
	}, WithRegisterer(reg))

	task, err := o.Submit(context.Background(), combinedSpec(100))
	require.NoError(t, err)
	wait(t, o, task.ID)
	require.NoError(t, o.Close(context.Background()))

	assert.InDelta(t, 1, testutil.ToFloat64(o.metrics.submitted.WithLabelValues("combined")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(o.metrics.finished.WithLabelValues("combined", "completed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(o.metrics.sourceRuns.WithLabelValues("places", "error")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(o.metrics.records.WithLabelValues("contacts")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(o.metrics.running), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(o.metrics.tracked), 0)
}
