// Package metrics is the crawl-scoped prometheus.Registry shared across every
// pipeline phase of a run: the Initializer through the account-Persister
// step. It is not served over HTTP — no front-end is in scope — but is
// available for an embedder to scrape and backs the per-phase item counts
// requires a succeeded-with-degradation crawl to log.
//
// Grounded on cmd/pulse-sensor-proxy/metrics.go's own-Registry shape (a
// private *prometheus.Registry rather than the global default, so a crawl's
// collectors never leak into a host process's own registry) and on
// internal/ai/patrol_metrics.go's Namespace/Subsystem-scoped CounterVec
// layout and Record* method set.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "discovery"

// Collectors is one crawl's worth of prometheus instrumentation. A fresh
// Collectors is constructed per run by the orchestrator and its Registry is
// handed to whatever embeds this module; nothing here touches the global
// default registerer.
type Collectors struct {
	phaseItems *prometheus.CounterVec
	tierFailures *prometheus.CounterVec
	persisterBatches *prometheus.CounterVec
	persisterFailures *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec
	runOutcome *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers one crawl's collector set.
func New() *Collectors {
	reg := prometheus.NewRegistry()

	c := &Collectors{
		phaseItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "phase",
				Name: "items_total",
				Help: "Resources produced by each pipeline phase.",
			},
			[]string{"phase"},
		),
		tierFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "enrichment",
				Name: "handler_failures_total",
				Help: "Per-item handler failures by enrichment tier and resource type.",
			},
			[]string{"tier", "resource_type"},
		),
		persisterBatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "persister",
				Name: "batches_total",
				Help: "Persister batches attempted by operation.",
			},
			[]string{"operation"},
		),
		persisterFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "persister",
				Name: "item_failures_total",
				Help: "Items a persister batch failed to store or delete, by operation.",
			},
			[]string{"operation"},
		),
		phaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "phase",
				Name: "duration_seconds",
				Help: "Wall-clock duration of each pipeline phase.",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"phase"},
		),
		runOutcome: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "run",
				Name: "outcome_total",
				Help: "Completed runs by outcome kind.",
			},
			[]string{"outcome"},
		),
		registry: reg,
	}

	reg.MustRegister(
		c.phaseItems,
		c.tierFailures,
		c.persisterBatches,
		c.persisterFailures,
		c.phaseDuration,
		c.runOutcome,
	)

	return c
}

// Registry returns the registry an embedder can scrape.
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}

// AddPhaseItems records items a phase appended to the working set.
func (c *Collectors) AddPhaseItems(phase string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.phaseItems.WithLabelValues(phase).Add(float64(n))
}

// RecordTierFailure records one per-item handler failure in an enrichment or
// inference tier.
func (c *Collectors) RecordTierFailure(tier, resourceType string) {
	if c == nil {
		return
	}
	c.tierFailures.WithLabelValues(tier, resourceType).Inc()
}

// RecordPersisterBatch records one persister batch attempt and the count of
// items within it that failed to land in either store.
func (c *Collectors) RecordPersisterBatch(operation string, failedItems int) {
	if c == nil {
		return
	}
	c.persisterBatches.WithLabelValues(operation).Inc()
	if failedItems > 0 {
		c.persisterFailures.WithLabelValues(operation).Add(float64(failedItems))
	}
}

// ObservePhaseDuration records how long a named pipeline phase took.
func (c *Collectors) ObservePhaseDuration(phase string, seconds float64) {
	if c == nil {
		return
	}
	c.phaseDuration.WithLabelValues(phase).Observe(seconds)
}

// RecordRunOutcome records the terminal outcome of a run (
// success / succeeded-with-degradation / fatal taxonomy).
func (c *Collectors) RecordRunOutcome(outcome string) {
	if c == nil {
		return
	}
	c.runOutcome.WithLabelValues(outcome).Inc()
}
