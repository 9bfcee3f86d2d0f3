package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Collector counts processed transactions and fraud verdicts for the
// consumer's /metrics endpoint.
type Collector struct {
	registry           *prometheus.Registry
	processed          prometheus.Counter
	fraudDetected      prometheus.Counter
	failures           prometheus.Counter
	processingDuration prometheus.Histogram
	logger             *zap.Logger
}

func NewCollector(logger *zap.Logger) *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		processed: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "transactions_processed_total",
			Help: "Total number of transactions processed and persisted",
		}),
		fraudDetected: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "transactions_fraud_total",
			Help: "Total number of transactions flagged as fraudulent",
		}),
		failures: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "transactions_failed_total",
			Help: "Total number of messages that failed processing",
		}),
		processingDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "transaction_processing_duration_seconds",
			Help:    "Time taken to evaluate and persist one transaction",
			Buckets: prometheus.DefBuckets,
		}),
		logger: logger,
	}
}

func (c *Collector) RecordProcessed(duration time.Duration, fraud bool) {
	c.processed.Inc()
	if fraud {
		c.fraudDetected.Inc()
	}
	c.processingDuration.Observe(duration.Seconds())
}

func (c *Collector) RecordFailure() {
	c.failures.Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
