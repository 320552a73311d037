// Package metrics holds the Prometheus collectors for the HTTP API and the
// background job queue.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realty_http_requests_total",
			Help: "Total number of HTTP requests by route template, method and status",
		},
		[]string{"route", "method", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "realty_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realty_jobs_processed_total",
			Help: "Background jobs by type and outcome",
		},
		[]string{"job_type", "outcome"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "realty_job_duration_seconds",
			Help: "Duration of background job processing in seconds",
		},
		[]string{"job_type"},
	)
)

// Job outcomes.
const (
	OutcomeSuccess    = "success"
	OutcomeRetry      = "retry"
	OutcomeDeadLetter = "dead_letter"
)

// ObserveRequest records one served HTTP request.
func ObserveRequest(route, method string, status int, took time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(route, method).Observe(took.Seconds())
}

// ObserveJob records one processed job.
func ObserveJob(jobType, outcome string, took time.Duration) {
	JobsProcessed.WithLabelValues(jobType, outcome).Inc()
	JobDuration.WithLabelValues(jobType).Observe(took.Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
