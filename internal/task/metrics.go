package task

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	submitted  *prometheus.CounterVec
	finished   *prometheus.CounterVec
	sourceRuns *prometheus.CounterVec
	records    *prometheus.CounterVec
	running    prometheus.Gauge
	tracked    prometheus.GaugeFunc
}

// newMetrics creates the orchestrator metrics. tracked reports the number of
// tasks held in the registry.
func newMetrics(reg prometheus.Registerer, tracked func() int) *metrics {
	m := &metrics{
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadscrape",
			Name:      "jobs_submitted_total",
			Help:      "Scraping jobs accepted, by kind.",
		}, []string{"kind"}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadscrape",
			Name:      "jobs_finished_total",
			Help:      "Scraping jobs that reached a terminal state, by kind and status.",
		}, []string{"kind", "status"}),
		sourceRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadscrape",
			Name:      "source_runs_total",
			Help:      "Source adapter runs, by source and outcome.",
		}, []string{"source", "status"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadscrape",
			Name:      "records_total",
			Help:      "Normalized records produced, by source.",
		}, []string{"source"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "leadscrape",
			Name:      "jobs_running",
			Help:      "Scraping jobs currently executing.",
		}),
		tracked: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "leadscrape",
			Name:      "tasks_tracked",
			Help:      "Tasks held in memory, in any state.",
		}, func() float64 { return float64(tracked()) }),
	}
	if reg != nil {
		reg.MustRegister(m.submitted, m.finished, m.sourceRuns, m.records, m.running, m.tracked)
	}
	return m
}
