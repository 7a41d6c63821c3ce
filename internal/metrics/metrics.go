// Package metrics declares the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Total HTTP requests partitioned by method, route, and status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	// Request duration in seconds partitioned by method, route, and status code
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// LinksCreated counts created links by code source (custom or generated).
	LinksCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinylink_links_created_total",
			Help: "Short links created",
		},
		[]string{"source"},
	)

	// CodeCollisions counts codes found taken, either by the existence check
	// or by the store rejecting an insert.
	CodeCollisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinylink_code_collisions_total",
			Help: "Short code collisions by detection stage",
		},
		[]string{"stage"},
	)

	Redirects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinylink_redirects_total",
			Help: "Redirect lookups by result",
		},
		[]string{"result"},
	)

	ClickRecordFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tinylink_click_record_failures_total",
			Help: "Redirects whose click counter update failed",
		},
	)
)

const (
	SourceCustom    = "custom"
	SourceGenerated = "generated"

	StageCheck  = "check"
	StageInsert = "insert"

	ResultFound    = "found"
	ResultNotFound = "not_found"
	ResultError    = "error"
)
