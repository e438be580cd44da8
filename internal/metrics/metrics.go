// Package metrics holds the Prometheus collectors for harvesting, scheduling
// and matching. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "jobscout"

type Metrics struct {
	harvestAttempts *prometheus.CounterVec
	harvested       *prometheus.CounterVec
	inserted        *prometheus.CounterVec
	duplicates      *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec

	jobRuns      *prometheus.CounterVec
	jobCoalesced *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec

	matchScore          prometheus.Histogram
	outcomes            *prometheus.CounterVec
	aggregationFailures prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	auto := promauto.With(reg)
	return &Metrics{
		harvestAttempts: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "harvest", Name: "fetch_attempts_total",
			Help: "Portal fetch attempts by result.",
		}, []string{"portal", "result"}),
		harvested: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "harvest", Name: "postings_total",
			Help: "Postings surviving parsing and duplicate checks.",
		}, []string{"portal"}),
		inserted: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "harvest", Name: "inserted_total",
			Help: "Postings newly written to the store.",
		}, []string{"portal"}),
		duplicates: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "harvest", Name: "duplicates_total",
			Help: "Harvested items dropped as duplicates.",
		}, []string{"portal", "stage"}),
		rateLimited: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "harvest", Name: "rate_limited_total",
			Help: "Harvest cycles skipped because the domain budget was spent.",
		}, []string{"domain"}),
		jobRuns: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "scheduler", Name: "runs_total",
			Help: "Scheduled job executions by status.",
		}, []string{"job", "status"}),
		jobCoalesced: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "scheduler", Name: "coalesced_total",
			Help: "Triggers dropped because the job was still running.",
		}, []string{"job"}),
		jobDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "scheduler", Name: "run_duration_seconds",
			Help:    "Wall time of scheduled job executions.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"job"}),
		matchScore: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "match", Name: "score",
			Help:    "Distribution of final match scores.",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		outcomes: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "match", Name: "outcomes_total",
			Help: "Reported candidate outcomes.",
		}, []string{"outcome"}),
		aggregationFailures: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "match", Name: "aggregation_failures_total",
			Help: "Learned-pattern refreshes that failed and left stale patterns in place.",
		}),
	}
}

func (m *Metrics) FetchAttempt(portal string, ok bool) {
	if m == nil {
		return
	}
	result := "error"
	if ok {
		result = "ok"
	}
	m.harvestAttempts.WithLabelValues(portal, result).Inc()
}

func (m *Metrics) Harvested(portal string, n int) {
	if m == nil {
		return
	}
	m.harvested.WithLabelValues(portal).Add(float64(n))
}

func (m *Metrics) Inserted(portal string, n int) {
	if m == nil {
		return
	}
	m.inserted.WithLabelValues(portal).Add(float64(n))
}

func (m *Metrics) Duplicate(portal, stage string) {
	if m == nil {
		return
	}
	m.duplicates.WithLabelValues(portal, stage).Inc()
}

func (m *Metrics) RateLimited(domain string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(domain).Inc()
}

func (m *Metrics) JobRun(job, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, status).Inc()
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *Metrics) JobCoalesced(job string) {
	if m == nil {
		return
	}
	m.jobCoalesced.WithLabelValues(job).Inc()
}

func (m *Metrics) MatchScored(score float64) {
	if m == nil {
		return
	}
	m.matchScore.Observe(score)
}

func (m *Metrics) Outcome(outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AggregationFailed() {
	if m == nil {
		return
	}
	m.aggregationFailures.Inc()
}
