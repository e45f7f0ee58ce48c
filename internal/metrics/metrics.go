// ============================================================================
// Scheduler Metrics - Prometheus Collectors
// ============================================================================
//
// Package: internal/metrics
// File: metrics.go
// Purpose: Collect and expose scheduling metrics for Prometheus scraping
//
// Metric groups:
//
//   1. Counters (cumulative):
//      - scheduler_items_ingested_total:  items accepted into the queue
//      - scheduler_items_executed_total:  executor invocations
//      - scheduler_items_succeeded_total: successful executions
//      - scheduler_items_failed_total:    failed executions
//      - scheduler_rescore_total:         queue-wide re-scoring events
//
//   2. Histograms (distributions):
//      - scheduler_item_score:              computed priority scores
//      - scheduler_execution_latency_seconds: executor call latency
//
//   3. Gauges (instantaneous):
//      - scheduler_queue_size:      current pending items
//      - scheduler_execution_round: current round number
//
// Exposed on /metrics (Prometheus text format) when the metrics server is
// enabled in the configuration.
//
// ============================================================================

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the scheduler's Prometheus instruments. A nil *Collector
// is valid and records nothing, so callers never branch on metrics being
// enabled.
type Collector struct {
	itemsIngested  prometheus.Counter
	itemsExecuted  prometheus.Counter
	itemsSucceeded prometheus.Counter
	itemsFailed    prometheus.Counter
	rescoreEvents  prometheus.Counter

	itemScore        prometheus.Histogram
	executionLatency prometheus.Histogram

	queueSize      prometheus.Gauge
	executionRound prometheus.Gauge
}

// NewCollector creates and registers all scheduler metrics.
func NewCollector() *Collector {
	c := &Collector{
		itemsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_items_ingested_total",
			Help: "Total number of test items accepted into the priority queue",
		}),
		itemsExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_items_executed_total",
			Help: "Total number of executor invocations",
		}),
		itemsSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_items_succeeded_total",
			Help: "Total number of successfully executed test items",
		}),
		itemsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_items_failed_total",
			Help: "Total number of failed test item executions",
		}),
		rescoreEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_rescore_total",
			Help: "Total number of queue-wide re-scoring events",
		}),
		itemScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scheduler_item_score",
			Help:    "Priority scores computed at ingestion time",
			Buckets: []float64{0, 30, 60, 100, 125, 150, 200, 300},
		}),
		executionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scheduler_execution_latency_seconds",
			Help:    "Executor call latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		queueSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_queue_size",
			Help: "Current number of pending items in the priority queue",
		}),
		executionRound: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_execution_round",
			Help: "Current execution round number",
		}),
	}

	prometheus.MustRegister(c.itemsIngested)
	prometheus.MustRegister(c.itemsExecuted)
	prometheus.MustRegister(c.itemsSucceeded)
	prometheus.MustRegister(c.itemsFailed)
	prometheus.MustRegister(c.rescoreEvents)
	prometheus.MustRegister(c.itemScore)
	prometheus.MustRegister(c.executionLatency)
	prometheus.MustRegister(c.queueSize)
	prometheus.MustRegister(c.executionRound)

	return c
}

// RecordIngested records an accepted item and its computed score.
func (c *Collector) RecordIngested(score int) {
	if c == nil {
		return
	}
	c.itemsIngested.Inc()
	c.itemScore.Observe(float64(score))
}

// RecordExecuted records one executor invocation and its latency.
func (c *Collector) RecordExecuted(latencySeconds float64) {
	if c == nil {
		return
	}
	c.itemsExecuted.Inc()
	c.executionLatency.Observe(latencySeconds)
}

// RecordSuccess records a successful execution.
func (c *Collector) RecordSuccess() {
	if c == nil {
		return
	}
	c.itemsSucceeded.Inc()
}

// RecordFailed records a failed execution.
func (c *Collector) RecordFailed() {
	if c == nil {
		return
	}
	c.itemsFailed.Inc()
}

// RecordRescore records a queue-wide re-scoring event.
func (c *Collector) RecordRescore() {
	if c == nil {
		return
	}
	c.rescoreEvents.Inc()
}

// SetQueueSize updates the pending-items gauge.
func (c *Collector) SetQueueSize(n int) {
	if c == nil {
		return
	}
	c.queueSize.Set(float64(n))
}

// SetRound updates the execution-round gauge.
func (c *Collector) SetRound(n int) {
	if c == nil {
		return
	}
	c.executionRound.Set(float64(n))
}
