package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsProcessedTotal, jobPassRate, translationsTotal) }

var (
	jobsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_processed_total",
			Help: "Pipeline requests by operation and outcome kind.",
		},
		[]string{"operation", "status"}, // operation: translate|verify, status: ok or an error kind
	)

	jobPassRate = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "job_pass_rate",
			Help:    "Distribution of verification pass rates.",
			Buckets: []float64{0, 0.25, 0.5, 0.75, 0.9, 0.99, 1},
		},
	)

	translationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "translations_total",
			Help: "Translations by language pair and outcome.",
		},
		[]string{"source", "target", "status"},
	)
)

func IncJob(operation, status string) {
	jobsProcessedTotal.WithLabelValues(norm(operation), norm(status)).Inc()
}

func ObservePassRate(rate float64) {
	jobPassRate.Observe(rate)
}

func IncTranslation(source, target, status string) {
	translationsTotal.WithLabelValues(norm(source), norm(target), norm(status)).Inc()
}
