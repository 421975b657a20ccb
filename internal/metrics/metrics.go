// Package metrics defines the Prometheus instrumentation for the HTTP API
// and transaction workflows.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Mohsinsiddi/w3burn/internal/workflow"
)

var (
	// Labels to use for partitioning requests.
	requestLabels = []string{"endpoint", "status", "cause"}

	// Labels to use for partitioning request latencies.
	requestLatencyLabels = []string{"endpoint"}
)

// RequestMetrics instruments the HTTP API.
type RequestMetrics struct {
	// Counts of requests made to each endpoint.
	RequestCounts *prometheus.CounterVec

	// Latencies of serving incoming requests.
	RequestLatencies *prometheus.HistogramVec
}

// NewRequestMetrics creates and registers request counters and latencies
// named after pkg. A nil registerer uses the default registry.
func NewRequestMetrics(pkg string, reg prometheus.Registerer) RequestMetrics {
	m := RequestMetrics{
		RequestCounts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: fmt.Sprintf("%s_requests", pkg),
				Help: "How many API requests were made, partitioned by endpoint, status, and cause.",
			},
			requestLabels,
		),
		RequestLatencies: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: fmt.Sprintf("%s_request_latencies", pkg),
				Help: "How long requests take to process, partitioned by endpoint.",
			},
			requestLatencyLabels,
		),
	}
	register(reg, m.RequestCounts, m.RequestLatencies)
	return m
}

// RequestCounter returns the counter for a request.
// Provided labels should be endpoint, status, and cause.
func (m *RequestMetrics) RequestCounter(labels ...string) prometheus.Counter {
	return m.RequestCounts.WithLabelValues(pad(labels, len(requestLabels))...)
}

// RequestTimer creates a new latency timer for the provided endpoint.
func (m *RequestMetrics) RequestTimer(labels ...string) *prometheus.Timer {
	return prometheus.NewTimer(m.RequestLatencies.WithLabelValues(pad(labels, len(requestLatencyLabels))...))
}

// WorkflowMetrics records transaction runs. It is a workflow.Observer.
type WorkflowMetrics struct {
	Transitions *prometheus.CounterVec
	Runs        *prometheus.CounterVec
	Durations   *prometheus.HistogramVec
}

// NewWorkflowMetrics creates and registers workflow metrics named after pkg.
func NewWorkflowMetrics(pkg string, reg prometheus.Registerer) *WorkflowMetrics {
	m := &WorkflowMetrics{
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: fmt.Sprintf("%s_workflow_transitions", pkg),
				Help: "Stage transitions of transaction workflows, partitioned by operation, stage, and contract method.",
			},
			[]string{"op", "stage", "method"},
		),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: fmt.Sprintf("%s_workflow_runs", pkg),
				Help: "Finished transaction workflows, partitioned by operation and outcome.",
			},
			[]string{"op", "outcome"},
		),
		Durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    fmt.Sprintf("%s_workflow_duration_seconds", pkg),
				Help:    "How long transaction workflows take from validation to their final stage.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"op"},
		),
	}
	register(reg, m.Transitions, m.Runs, m.Durations)
	return m
}

// Observe implements workflow.Observer.
func (m *WorkflowMetrics) Observe(e workflow.Event) {
	m.Transitions.WithLabelValues(e.Op, e.Stage.String(), e.Method).Inc()
	switch {
	case e.Stage.Terminal():
		m.Runs.WithLabelValues(e.Op, e.Stage.String()).Inc()
		m.Durations.WithLabelValues(e.Op).Observe(e.Elapsed.Seconds())
	case e.Stage == workflow.Idle:
		m.Runs.WithLabelValues(e.Op, "declined").Inc()
	}
}

func register(reg prometheus.Registerer, cs ...prometheus.Collector) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(cs...)
}

func pad(labels []string, n int) []string {
	if len(labels) > n {
		return labels[:n]
	}
	return append(labels, make([]string, n-len(labels))...)
}
