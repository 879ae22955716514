// Package metrics exposes Prometheus instrumentation for the fetch, persist
// and serve paths. Metrics are registered on the default registry and served
// at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes.
const (
	OutcomeRecords        = "records"
	OutcomeEmpty          = "empty"
	OutcomeStatusError    = "status_error"
	OutcomeTransportError = "transport_error"
)

// Upsert results.
const (
	ResultInserted  = "inserted"
	ResultUpdated   = "updated"
	ResultUnchanged = "unchanged"
)

var (
	// Source Metrics
	SourceFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_fetches_total",
			Help: "Outbound price-record queries by outcome",
		},
		[]string{"outcome"},
	)

	SourceFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "source_fetch_duration_seconds",
			Help:    "Duration of outbound price-record queries",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	NormalizationDropsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "source_normalization_drops_total",
			Help: "Raw records dropped because they failed normalization",
		},
	)

	// Resolver Metrics
	FallbackAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "resolver_attempts",
			Help:    "Dates queried per resolution, including the first",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
	)

	ResolutionsEmptyTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "resolver_empty_total",
			Help: "Resolutions that found no data on any candidate date",
		},
	)

	// Storage Metrics
	UpsertRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_upsert_rows_total",
			Help: "Upserted records by result",
		},
		[]string{"result"},
	)

	StorageBatchFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storage_batch_failures_total",
			Help: "Upsert batches rolled back after a storage failure",
		},
	)

	SweepDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storage_sweep_deleted_total",
			Help: "Rows deleted by the retention sweep",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)
)
