package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements MetricsCollector using Prometheus
type Collector struct {
	generationsSubmitted *prometheus.CounterVec
	generationsCompleted *prometheus.CounterVec
	generationDuration   *prometheus.HistogramVec
	stageDuration        *prometheus.HistogramVec

	llmCalls   *prometheus.CounterVec
	llmTokens  *prometheus.CounterVec
	llmLatency *prometheus.HistogramVec

	renderAttempts *prometheus.CounterVec
	renderDuration prometheus.Histogram

	workerPoolIdle    prometheus.Gauge
	workerPoolBusy    prometheus.Gauge
	workerPoolStopped prometheus.Gauge
	activeGenerations prometheus.Gauge
}

// NewCollector creates a new Prometheus metrics collector
func NewCollector() *Collector {
	return &Collector{
		generationsSubmitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "manimatic_generations_submitted_total",
				Help: "Total number of generations submitted",
			},
			[]string{"model"},
		),
		generationsCompleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "manimatic_generations_completed_total",
				Help: "Total number of generations finished, by final status",
			},
			[]string{"status"},
		),
		generationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "manimatic_generation_duration_seconds",
				Help:    "End-to-end generation duration in seconds",
				Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200, 1800},
			},
			[]string{"status"},
		),
		stageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "manimatic_stage_duration_seconds",
				Help:    "Pipeline stage duration in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"stage"},
		),
		llmCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "manimatic_llm_calls_total",
				Help: "Total number of LLM API calls",
			},
			[]string{"provider", "model"},
		),
		llmTokens: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "manimatic_llm_tokens_total",
				Help: "Total number of LLM tokens used",
			},
			[]string{"provider", "model", "type"},
		),
		llmLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "manimatic_llm_latency_seconds",
				Help:    "LLM call latency in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"provider"},
		),
		renderAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "manimatic_render_attempts_total",
				Help: "Total number of Manim render attempts",
			},
			[]string{"result"},
		),
		renderDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "manimatic_render_duration_seconds",
				Help:    "Manim render duration in seconds",
				Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
			},
		),
		workerPoolIdle: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "manimatic_worker_pool_idle",
				Help: "Number of idle workers",
			},
		),
		workerPoolBusy: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "manimatic_worker_pool_busy",
				Help: "Number of busy workers",
			},
		),
		workerPoolStopped: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "manimatic_worker_pool_stopped",
				Help: "Number of stopped workers",
			},
		),
		activeGenerations: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "manimatic_active_generations",
				Help: "Number of generations currently in flight",
			},
		),
	}
}

// RecordGenerationSubmitted records a generation submission (ports.MetricsCollector interface)
func (c *Collector) RecordGenerationSubmitted(model string) {
	c.generationsSubmitted.WithLabelValues(model).Inc()
}

// RecordGenerationCompleted records a finished generation (ports.MetricsCollector interface)
func (c *Collector) RecordGenerationCompleted(status string, duration time.Duration) {
	c.generationsCompleted.WithLabelValues(status).Inc()
	c.generationDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordStageDuration records one pipeline stage (ports.MetricsCollector interface)
func (c *Collector) RecordStageDuration(stage string, duration time.Duration) {
	c.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordLLMCall records an LLM API call (ports.MetricsCollector interface)
func (c *Collector) RecordLLMCall(provider, model string, duration time.Duration, inputTokens, outputTokens int) {
	c.llmCalls.WithLabelValues(provider, model).Inc()
	c.llmLatency.WithLabelValues(provider).Observe(duration.Seconds())
	c.llmTokens.WithLabelValues(provider, model, "input").Add(float64(inputTokens))
	c.llmTokens.WithLabelValues(provider, model, "output").Add(float64(outputTokens))
}

// RecordRenderAttempt records a Manim invocation (ports.MetricsCollector interface)
func (c *Collector) RecordRenderAttempt(success bool, duration time.Duration) {
	result := "failure"
	if success {
		result = "success"
	}
	c.renderAttempts.WithLabelValues(result).Inc()
	c.renderDuration.Observe(duration.Seconds())
}

// RecordWorkerPoolStatus records worker pool gauges (ports.MetricsCollector interface)
func (c *Collector) RecordWorkerPoolStatus(idle, busy, stopped int) {
	c.workerPoolIdle.Set(float64(idle))
	c.workerPoolBusy.Set(float64(busy))
	c.workerPoolStopped.Set(float64(stopped))
}

// SetActiveGenerations records the in-flight generation count (ports.MetricsCollector interface)
func (c *Collector) SetActiveGenerations(count int) {
	c.activeGenerations.Set(float64(count))
}
