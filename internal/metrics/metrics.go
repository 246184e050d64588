package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Game lifecycle
var (
	// GamesCreated counts games handed out by the registry.
	GamesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arbiter_games_created_total",
			Help: "Total games created",
		},
	)

	// GamesActive tracks games currently held by the registry.
	GamesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "arbiter_games_current",
			Help: "Games held in memory",
		},
	)

	// GamesFinished counts games reaching a terminal status, by status kind.
	GamesFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbiter_games_finished_total",
			Help: "Total games finished by status",
		},
		[]string{"status"},
	)

	// Operations counts registry operations by name and outcome (ok or an error code).
	Operations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbiter_operations_total",
			Help: "Registry operations by operation and result",
		},
		[]string{"operation", "result"},
	)
)

// Infrastructure
var (
	// StoreErrors counts failed snapshot writes or loads.
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbiter_store_errors_total",
			Help: "Snapshot store failures by operation",
		},
		[]string{"operation"},
	)

	// ArchiveErrors counts failed result archive writes.
	ArchiveErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arbiter_archive_errors_total",
			Help: "Result archive write failures",
		},
	)

	// HTTPRequests counts API requests by route and status code.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbiter_http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"route", "status"},
	)

	// HTTPDuration tracks handler latency in seconds.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arbiter_http_request_duration_seconds",
			Help:    "HTTP handler duration in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"route"},
	)
)
