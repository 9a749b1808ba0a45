package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Prometheus metrics for the collector

var (
	// API call metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fortnite_api_requests_total",
			Help: "Total number of Fortnite API requests",
		},
		[]string{"endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fortnite_api_request_duration_seconds",
			Help:    "Duration of Fortnite API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Player metrics
	PlayersProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fortnite_players_processed_total",
			Help: "Total number of players processed, by outcome",
		},
		[]string{"outcome"},
	)

	// Write metrics
	PointsWrittenTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fortnite_points_written_total",
			Help: "Total number of points written to InfluxDB",
		},
	)

	PointsLostTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fortnite_points_lost_total",
			Help: "Total number of points lost after exhausted write retries",
		},
	)

	WriteBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fortnite_write_batches_total",
			Help: "Total number of batch writes to InfluxDB",
		},
		[]string{"status"},
	)

	WriteBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fortnite_write_batch_duration_seconds",
			Help:    "Duration of InfluxDB batch writes in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// Run metrics
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fortnite_collector_runs_total",
			Help: "Total number of collection runs, by final status",
		},
		[]string{"status"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fortnite_collector_run_duration_seconds",
			Help:    "Duration of collection runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	LastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fortnite_collector_last_run_timestamp",
			Help: "Timestamp of the last completed collection run",
		},
	)

	SeasonsEnumerated = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fortnite_seasons_enumerated",
			Help: "Number of seasons returned by the last enumeration",
		},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fortnite_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(endpoint, status string, duration float64) {
	APIRequestsTotal.WithLabelValues(endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordPlayerOutcome records the terminal outcome of one player pipeline
func RecordPlayerOutcome(outcome string) {
	PlayersProcessedTotal.WithLabelValues(outcome).Inc()
}

// RecordBatchWrite records one batch write attempt's final result
func RecordBatchWrite(status string, points int, duration float64) {
	WriteBatchesTotal.WithLabelValues(status).Inc()
	WriteBatchDuration.Observe(duration)

	if status == "success" {
		PointsWrittenTotal.Add(float64(points))
	} else {
		PointsLostTotal.Add(float64(points))
	}
}

// RecordRun records a completed collection run
func RecordRun(status string, duration float64) {
	RunsTotal.WithLabelValues(status).Inc()
	RunDuration.Observe(duration)
	LastRunTimestamp.SetToCurrentTime()
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// Push delivers the default registry to a Pushgateway. A run-once process
// exits before any scraper would reach it, so delivery is push-based; the
// caller decides whether a push failure matters.
func Push(gatewayURL, job string) error {
	return push.New(gatewayURL, job).
		Gatherer(prometheus.DefaultGatherer).
		Push()
}
