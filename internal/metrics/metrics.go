// Package metrics exposes Prometheus collectors for pipeline runs and pushes
// them to a Pushgateway at the end of a batch job.
package metrics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "logiflow"

// Recorder owns a private registry so tests and repeated runs never collide
// with the global one. A nil *Recorder is a no-op.
type Recorder struct {
	reg *prometheus.Registry

	rows        *prometheus.CounterVec
	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	ruleFailure *prometheus.CounterVec
	requests    *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "etl",
				Name:      "rows_total",
				Help:      "Rows processed per table by outcome (extracted, transformed, inserted, updated, rejected).",
			},
			[]string{"table", "outcome"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "etl",
				Name:      "runs_total",
				Help:      "Finalized table runs by status.",
			},
			[]string{"table", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "etl",
				Name:      "run_duration_seconds",
				Help:      "Duration of a table run in seconds.",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"table"},
		),
		ruleFailure: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "validation",
				Name:      "rule_failures_total",
				Help:      "Failed validation rules per table.",
			},
			[]string{"table", "rule"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http_client",
				Name:      "requests_total",
				Help:      "Outbound API requests by endpoint and status code.",
			},
			[]string{"endpoint", "status_code"},
		),
	}
	r.reg.MustRegister(r.rows, r.runs, r.runDuration, r.ruleFailure, r.requests)
	return r
}

// Rows adds n rows with the given outcome.
func (r *Recorder) Rows(table, outcome string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.rows.WithLabelValues(table, outcome).Add(float64(n))
}

// Run records a finalized table run.
func (r *Recorder) Run(table, status string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(table, status).Inc()
	r.runDuration.WithLabelValues(table).Observe(elapsed.Seconds())
}

// RuleFailed counts a failed validation rule.
func (r *Recorder) RuleFailed(table, rule string) {
	if r == nil {
		return
	}
	r.ruleFailure.WithLabelValues(table, rule).Inc()
}

// Request counts an outbound HTTP request. A zero status means a transport error.
func (r *Recorder) Request(endpoint string, status int) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
}

// Push sends the registry to the Pushgateway at url under job.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if r == nil || url == "" {
		return nil
	}
	if job == "" {
		job = "logiflow_etl"
	}
	if err := push.New(url, job).Gatherer(r.reg).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
