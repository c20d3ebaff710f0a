package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	apiRequestsTotal        *prometheus.CounterVec
	apiLatencySeconds       *prometheus.HistogramVec
	apiErrorsTotal          *prometheus.CounterVec
	joinAttemptsTotal       *prometheus.CounterVec
	callbackDuplicatesTotal prometheus.Counter
	notificationsPublished  *prometheus.CounterVec
	streamClientsActive     prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used for API observability.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aula_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aula_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aula_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		joinAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aula_join_attempts_total",
			Help: "Join attempts partitioned by the availability state they hit.",
		}, []string{"state"})

		callbackDuplicatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aula_callback_duplicates_total",
			Help: "Provider callbacks skipped because the record was already processed.",
		})

		notificationsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aula_notifications_published_total",
			Help: "Notifications published to users or course channels, by type.",
		}, []string{"type"})

		streamClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "aula_stream_clients_active",
			Help: "Currently connected notification stream subscribers.",
		})

		prometheus.MustRegister(apiRequestsTotal, apiLatencySeconds, apiErrorsTotal, joinAttemptsTotal, callbackDuplicatesTotal, notificationsPublished, streamClientsActive)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// JoinAttempts exposes the counter for session join attempts by state.
func JoinAttempts() *prometheus.CounterVec {
	RegisterMetrics()
	return joinAttemptsTotal
}

// CallbackDuplicates exposes the counter for replayed provider callbacks.
func CallbackDuplicates() prometheus.Counter {
	RegisterMetrics()
	return callbackDuplicatesTotal
}

// NotificationsPublished exposes the counter for published notifications.
func NotificationsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublished
}

// StreamClientsActive exposes the gauge for connected stream subscribers.
func StreamClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return streamClientsActive
}
