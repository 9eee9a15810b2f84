// Package metrics exposes queue and delivery metrics for an analytics client through Prometheus.
//
// A nil *Collector is valid and records nothing, so callers never need to check whether metrics were
// configured.
package metrics

import (
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/prometheus/client_golang/prometheus"
)

// Drop reasons used as the "reason" label of the dropped-messages counter.
const (
	DropReasonQueueFull = "queue_full"
	DropReasonClosed    = "closed"
)

// Batch outcomes used as the "result" label of the batches counter.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Collector holds the Prometheus instruments for one client.
type Collector struct {
	messagesEnqueued prometheus.Counter
	messagesDropped  *prometheus.CounterVec
	batchesSent      *prometheus.CounterVec
	sendAttempts     prometheus.Counter
	batchDuration    *prometheus.HistogramVec
	batchSize        prometheus.Histogram
	queueLength      prometheus.Gauge
	queueBytes       prometheus.Gauge
	flushesInFlight  prometheus.Gauge
}

// NewCollector creates the instruments and registers them with registerer. If an instrument with the
// same name is already registered (for instance by another client sharing the registry), the existing
// one is reused.
func NewCollector(namespace string, registerer prometheus.Registerer, loggers ldlog.Loggers) *Collector {
	c := &Collector{}

	c.messagesEnqueued = register(registerer, loggers, prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_enqueued_total",
			Help:      "Total number of messages accepted into the queue",
		},
	))

	c.messagesDropped = register(registerer, loggers, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Total number of messages rejected at enqueue time",
		},
		[]string{"reason"},
	))

	c.batchesSent = register(registerer, loggers, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Total number of batches resolved, by outcome",
		},
		[]string{"result"},
	))

	c.sendAttempts = register(registerer, loggers, prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_attempts_total",
			Help:      "Total number of HTTP requests made to deliver batches, including retries",
		},
	))

	c.batchDuration = register(registerer, loggers, prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Time taken to resolve a batch, including retries",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		},
		[]string{"result"},
	))

	c.batchSize = register(registerer, loggers, prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_messages",
			Help:      "Number of messages carried by each batch",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		},
	))

	c.queueLength = register(registerer, loggers, prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_messages",
			Help:      "Number of messages waiting in the queue",
		},
	))

	c.queueBytes = register(registerer, loggers, prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_bytes",
			Help:      "Encoded size of the messages waiting in the queue",
		},
	))

	c.flushesInFlight = register(registerer, loggers, prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "flushes_in_flight",
			Help:      "Number of batches currently being delivered",
		},
	))

	loggers.Debug("Prometheus metrics initialized")
	return c
}

func register[T prometheus.Collector](registerer prometheus.Registerer, loggers ldlog.Loggers, collector T) T {
	if err := registerer.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		loggers.Warnf("Failed to register metric: %s", err)
	}
	return collector
}

// RecordEnqueued counts a message accepted into the queue.
func (c *Collector) RecordEnqueued() {
	if c == nil {
		return
	}
	c.messagesEnqueued.Inc()
}

// RecordDropped counts a message rejected at enqueue time.
func (c *Collector) RecordDropped(reason string) {
	if c == nil {
		return
	}
	c.messagesDropped.WithLabelValues(reason).Inc()
}

// RecordAttempt counts one HTTP request.
func (c *Collector) RecordAttempt() {
	if c == nil {
		return
	}
	c.sendAttempts.Inc()
}

// RecordBatch records the outcome of a resolved batch.
func (c *Collector) RecordBatch(result string, messages int, duration time.Duration) {
	if c == nil {
		return
	}
	c.batchesSent.WithLabelValues(result).Inc()
	c.batchDuration.WithLabelValues(result).Observe(duration.Seconds())
	c.batchSize.Observe(float64(messages))
}

// SetQueueState publishes the current queue length and byte size.
func (c *Collector) SetQueueState(length, bytes int) {
	if c == nil {
		return
	}
	c.queueLength.Set(float64(length))
	c.queueBytes.Set(float64(bytes))
}

// SetFlushesInFlight publishes the number of batches being delivered.
func (c *Collector) SetFlushesInFlight(n int) {
	if c == nil {
		return
	}
	c.flushesInFlight.Set(float64(n))
}
