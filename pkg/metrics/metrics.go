// Package metrics holds the Prometheus collectors exported on /metrics.
// All methods are nil-safe so components can run without metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "herald"

// Metrics owns a private registry and the service collectors.
type Metrics struct {
	registry *prometheus.Registry

	executions        *prometheus.CounterVec
	executionDuration *prometheus.HistogramVec
	llmRequests       *prometheus.CounterVec
	llmTokens         *prometheus.CounterVec
	llmLatency        *prometheus.HistogramVec
	deliveries        *prometheus.CounterVec
	schedulerRuns     *prometheus.CounterVec
	sweptRecords      prometheus.Counter
}

// New creates and registers all collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Agent executions that reached a terminal status.",
		}, []string{"agent_id", "status"}),
		executionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_duration_seconds",
			Help:      "Time from execution creation to terminal status.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"agent_id"}),
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Chat-completion calls by model and outcome.",
		}, []string{"model", "outcome"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "Tokens consumed by model and kind.",
		}, []string{"model", "kind"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Chat-completion latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"model"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Message deliveries by channel and outcome.",
		}, []string{"channel", "outcome"}),
		schedulerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_firings_total",
			Help:      "Scheduler firings by job and outcome (submitted, skipped, locked, error).",
		}, []string{"job_id", "outcome"}),
		sweptRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_swept_total",
			Help:      "Execution records removed by the retention sweep.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.executions,
		m.executionDuration,
		m.llmRequests,
		m.llmTokens,
		m.llmLatency,
		m.deliveries,
		m.schedulerRuns,
		m.sweptRecords,
	)
	return m
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RegisterQueueDepth exports a gauge read from depth on every scrape.
func (m *Metrics) RegisterQueueDepth(depth func() int) {
	if m == nil || depth == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Executions waiting for a worker.",
	}, func() float64 { return float64(depth()) }))
}

// ObserveExecution records a terminal execution.
func (m *Metrics) ObserveExecution(agentID, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.executions.WithLabelValues(agentID, status).Inc()
	if duration > 0 {
		m.executionDuration.WithLabelValues(agentID).Observe(duration.Seconds())
	}
}

// ObserveLLMCall implements llm.CallObserver.
func (m *Metrics) ObserveLLMCall(model string, err error, seconds float64, promptTokens, completionTokens int) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.llmRequests.WithLabelValues(model, outcome).Inc()
	m.llmLatency.WithLabelValues(model).Observe(seconds)
	m.llmTokens.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	m.llmTokens.WithLabelValues(model, "completion").Add(float64(completionTokens))
}

// ObserveDelivery records one delivery attempt of a full message.
func (m *Metrics) ObserveDelivery(channel string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.deliveries.WithLabelValues(channel, outcome).Inc()
}

// ObserveSchedulerFiring records what a scheduler firing resulted in.
func (m *Metrics) ObserveSchedulerFiring(jobID, outcome string) {
	if m == nil {
		return
	}
	m.schedulerRuns.WithLabelValues(jobID, outcome).Inc()
}

// ObserveSweep records records removed by a retention sweep.
func (m *Metrics) ObserveSweep(removed int) {
	if m == nil || removed <= 0 {
		return
	}
	m.sweptRecords.Add(float64(removed))
}
