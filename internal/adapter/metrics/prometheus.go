// Package metrics exports ledger engine observations to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/devtofunmi/fake-bank/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements ports.LedgerMetrics for Prometheus.
type Collector struct {
	transfers       *prometheus.CounterVec
	deposits        *prometheus.CounterVec
	replays         prometheus.Counter
	jobs            *prometheus.CounterVec
	transferLatency *prometheus.HistogramVec
	depositLatency  *prometheus.HistogramVec
}

// NewCollector creates the ledger collectors under namespace.
func NewCollector(namespace string) *Collector {
	buckets := []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}

	return &Collector{
		transfers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transfers_total",
				Help:      "Total number of transfers by outcome",
			},
			[]string{"outcome"},
		),
		deposits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deposits_total",
				Help:      "Total number of deposits by outcome",
			},
			[]string{"outcome"},
		),
		replays: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deposit_replays_total",
				Help:      "Total number of deposits answered from an existing reference",
			},
		),
		jobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduled_jobs_total",
				Help:      "Total number of scheduled job executions by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		transferLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transfer_duration_seconds",
				Help:      "Transfer engine latency",
				Buckets:   buckets,
			},
			[]string{"outcome"},
		),
		depositLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "deposit_duration_seconds",
				Help:      "Deposit engine latency",
				Buckets:   buckets,
			},
			[]string{"outcome"},
		),
	}
}

// Register registers all metrics with the given Prometheus registry.
func (c *Collector) Register(registry prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		c.transfers,
		c.deposits,
		c.replays,
		c.jobs,
		c.transferLatency,
		c.depositLatency,
	}
	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// RecordTransfer counts one transfer attempt.
func (c *Collector) RecordTransfer(outcome string, duration time.Duration) {
	c.transfers.WithLabelValues(outcome).Inc()
	c.transferLatency.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordDeposit counts one deposit attempt.
func (c *Collector) RecordDeposit(outcome string, replayed bool, duration time.Duration) {
	c.deposits.WithLabelValues(outcome).Inc()
	c.depositLatency.WithLabelValues(outcome).Observe(duration.Seconds())
	if replayed {
		c.replays.Inc()
	}
}

// RecordJob counts one job execution.
func (c *Collector) RecordJob(jobType domain.JobType, outcome string) {
	c.jobs.WithLabelValues(string(jobType), outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
