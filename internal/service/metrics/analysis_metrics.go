package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	AnalysisLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "coinscope",
			Subsystem: "analysis",
			Name:      "latency_seconds",
			Help:      "Latency of analysis pipelines",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"domain"},
	)

	AnalysisErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coinscope",
			Subsystem: "analysis",
			Name:      "errors_total",
			Help:      "Errors by analysis domain",
		},
		[]string{"domain"},
	)

	AdvicesGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coinscope",
			Subsystem: "advisory",
			Name:      "advices_total",
			Help:      "Generated advices by action",
		},
		[]string{"symbol", "action"},
	)

	AdvisorySkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "coinscope",
			Subsystem: "advisory",
			Name:      "skipped_total",
			Help:      "Advisory runs skipped because another run held the lock",
		},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(AnalysisLatency, AnalysisErrors, AdvicesGenerated, AdvisorySkipped)
	})
}
