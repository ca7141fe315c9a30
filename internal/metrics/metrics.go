// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

// Package metrics defines the Prometheus collectors for the service.
// Collectors are package-level and registered via promauto; handlers
// and stores record through the helper functions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequestsTotal counts HTTP requests by method, route pattern,
	// and status code.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfmark_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	// APIRequestDuration observes request latency by method and route.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shelfmark_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// APIActiveRequests gauges in-flight requests.
	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shelfmark_api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)

	// DBQueryDuration observes store query latency by operation and table.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shelfmark_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"operation", "table"},
	)

	// AuthAttemptsTotal counts authentication outcomes. Result is one
	// of: success, invalid_credentials, requires_2fa, invalid_otp,
	// blacklisted, error.
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfmark_auth_attempts_total",
			Help: "Authentication attempts by result",
		},
		[]string{"result"},
	)

	// RateLimitRejectionsTotal counts requests rejected by the limiter.
	RateLimitRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shelfmark_rate_limit_rejections_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	// ImportRowsTotal counts bulk import rows by outcome (ok, failed).
	ImportRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfmark_import_rows_total",
			Help: "Bulk import rows processed by outcome",
		},
		[]string{"outcome"},
	)

	// DependencyUp reports reachability of backing services (postgres,
	// redis) as 1 or 0, refreshed by the health probe worker.
	DependencyUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shelfmark_dependency_up",
			Help: "Whether a backing dependency is reachable (1) or not (0)",
		},
		[]string{"dependency"},
	)
)

// RecordAPIRequest records one completed HTTP request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordDBQuery records one store query.
func RecordDBQuery(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordAuthAttempt records one authentication outcome.
func RecordAuthAttempt(result string) {
	AuthAttemptsTotal.WithLabelValues(result).Inc()
}

// TrackActiveRequest increments the in-flight gauge and returns the
// matching decrement for deferred use.
func TrackActiveRequest() func() {
	APIActiveRequests.Inc()
	return APIActiveRequests.Dec
}

// SetDependencyUp records the reachability of one backing service.
func SetDependencyUp(dependency string, up bool) {
	v := 0.0
	if up {
		v = 1.0
	}
	DependencyUp.WithLabelValues(dependency).Set(v)
}
