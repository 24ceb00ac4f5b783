// Package metrics defines the Prometheus metrics of the HR console.
//
// All metrics are registered with the default registry and served by
// promhttp on GET /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// LoginsTotal counts login attempts by outcome.
	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrconsole_logins_total",
			Help: "Total login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// ResolutionsTotal counts session resolutions by outcome.
	ResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrconsole_resolutions_total",
			Help: "Total session resolutions by outcome.",
		},
		[]string{"outcome"},
	)

	// ProfileRefreshSharedTotal counts resolutions that joined an in-flight profile refresh.
	ProfileRefreshSharedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hrconsole_profile_refresh_shared_total",
			Help: "Profile refreshes served by an already running request.",
		},
	)

	// BackendRequestDurationSeconds is a histogram of backend call latency by endpoint.
	BackendRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hrconsole_backend_request_duration_seconds",
			Help:    "Duration of backend API requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)

func init() {
	prometheus.MustRegister(
		LoginsTotal,
		ResolutionsTotal,
		ProfileRefreshSharedTotal,
		BackendRequestDurationSeconds,
	)
}

// RecordLogin records the outcome of one login attempt.
func RecordLogin(outcome string) {
	LoginsTotal.WithLabelValues(outcome).Inc()
}

// RecordResolution records the outcome of one resolution pass.
func RecordResolution(outcome string) {
	ResolutionsTotal.WithLabelValues(outcome).Inc()
}

// RecordSharedRefresh records a resolution that reused an in-flight profile refresh.
func RecordSharedRefresh() {
	ProfileRefreshSharedTotal.Inc()
}

// ObserveBackendRequest records the latency of one backend call.
func ObserveBackendRequest(endpoint string, d time.Duration) {
	BackendRequestDurationSeconds.WithLabelValues(endpoint).Observe(d.Seconds())
}
