package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(sandboxExecutionsTotal, sandboxDuration, sandboxPoolBusy) }

var (
	sandboxExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandbox_executions_total",
			Help: "Sandboxed invocations by language and outcome.",
		},
		[]string{"lang", "outcome"}, // outcome: ok or a failure kind
	)

	sandboxDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sandbox_execution_seconds",
			Help:    "Wall-clock duration of sandboxed invocations.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"lang"},
	)

	sandboxPoolBusy = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sandbox_pool_busy",
			Help: "Sandbox worker slots currently in use.",
		},
	)
)

func ObserveExecution(lang, outcome string, d time.Duration) {
	sandboxExecutionsTotal.WithLabelValues(norm(lang), outcome).Inc()
	sandboxDuration.WithLabelValues(norm(lang)).Observe(d.Seconds())
}

func AddPoolBusy(delta float64) {
	sandboxPoolBusy.Add(delta)
}
