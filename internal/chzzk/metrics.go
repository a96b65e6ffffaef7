package chzzk

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ellier_chzzk_request_total",
			Help: "Total number of CHZZK API request attempts",
		},
		[]string{"endpoint", "status_class"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ellier_chzzk_request_duration_seconds",
			Help:    "Duration of CHZZK API requests per attempt",
			Buckets: prometheus.ExponentialBuckets(0.05, 2.0, 8),
		},
		[]string{"endpoint", "status_class"},
	)
	requestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ellier_chzzk_request_errors_total",
			Help: "Number of CHZZK API request attempts that failed",
		},
		[]string{"endpoint", "status_class"},
	)
	requestRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ellier_chzzk_request_retries_total",
			Help: "Number of CHZZK API retries performed",
		},
		[]string{"endpoint", "status_class"},
	)
)

func statusClass(err error, status int) string {
	if err != nil {
		return "error"
	}
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	case status > 0:
		return "1xx"
	}
	return "unknown"
}

func recordAttemptMetrics(endpoint string, status int, duration time.Duration, err error, retry bool) {
	class := statusClass(err, status)
	requestTotal.WithLabelValues(endpoint, class).Inc()
	requestDuration.WithLabelValues(endpoint, class).Observe(duration.Seconds())
	if class != "2xx" {
		requestErrors.WithLabelValues(endpoint, class).Inc()
	}
	if retry {
		requestRetries.WithLabelValues(endpoint, class).Inc()
	}
}
