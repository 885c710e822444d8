package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks total number of HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	// RequestDuration tracks request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingest_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	// CycleDuration tracks how long a full ingestion cycle takes
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_cycle_duration_seconds",
			Help:    "Duration of a full source-fetch and categorization cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	// RecordsIngested counts newly inserted transaction records per source
	RecordsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_records_ingested_total",
			Help: "Newly inserted transaction records",
		},
		[]string{"source"},
	)

	// RecordsSkipped counts candidates dropped during ingestion per reason
	RecordsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_records_skipped_total",
			Help: "Candidates skipped during ingestion",
		},
		[]string{"source", "reason"},
	)

	// SourceErrors counts source-level fetch failures
	SourceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_source_errors_total",
			Help: "Source connector failures that skipped a source for one cycle",
		},
		[]string{"source"},
	)

	// RecordsCategorized counts category assignments per stage
	RecordsCategorized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_records_categorized_total",
			Help: "Records assigned a category, by stage (rule or model)",
		},
		[]string{"stage"},
	)
)
