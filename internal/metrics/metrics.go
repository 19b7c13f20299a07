package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UploadsTotal counts uploaded spreadsheets by kind (client, batch) and outcome.
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coverage_uploads_total",
			Help: "Number of uploaded spreadsheets by kind and status (ok, parse_error, validation_error)",
		},
		[]string{"kind", "status"},
	)

	RowsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coverage_rows_dropped_total",
		Help: "Rows of uploaded client sheets excluded from queries, by reason",
	}, []string{"reason"})
)

var (
	TableCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coverage_table_cache_requests_total",
		Help: "Parsed table cache lookups (result = hit or miss)",
	}, []string{"cache", "result"})

	TableCacheEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "coverage_table_cache_entries",
		Help: "Number of parsed tables currently held in memory",
	}, []string{"cache"})
)

var (
	QueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "coverage_query_duration_seconds",
		Help:    "Time spent computing one coverage report",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	})

	NearbyFreeClients = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "coverage_nearby_free_clients",
		Help:    "Free clients within the search radius of each resolved target",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100, 200},
	})

	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coverage_queries_total",
		Help: "Coverage reports computed, by search mode and outcome (results, no_targets, empty_center, overview)",
	}, []string{"mode", "outcome"})
)

var (
	// OutgoingLatency tracks requests made by the service itself, e.g. remote config fetches.
	OutgoingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_outgoing_request_duration_seconds",
		Help:    "Latency of outgoing HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"url", "method", "status"})
)
