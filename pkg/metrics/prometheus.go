// Package metrics is the Prometheus-backed Recorder behind the
// domain Metrics interface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder registers its instruments on the default registry; the
// /metrics endpoint serves them.
type Recorder struct {
	messagesSent *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

func New() *Recorder {
	r := &Recorder{}
	r.messagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coinscope_messages_sent_total",
		Help: "Messages handed to a backend, by backend and symbol",
	}, []string{"backend", "symbol"})
	r.errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coinscope_errors_total",
		Help: "Errors by kind",
	}, []string{"type"})
	r.lastPrice = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "coinscope_last_price",
		Help: "Most recent observed price per symbol",
	}, []string{"symbol"})
	r.latency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coinscope_operation_duration_seconds",
		Help:    "Operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	return r
}

func (r *Recorder) RecordMessageSent(backend, symbol string) {
	r.messagesSent.WithLabelValues(backend, symbol).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
