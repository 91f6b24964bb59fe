package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_previewer_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_previewer_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_previewer_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Resolver metrics
var (
	ResolveTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_previewer_resolve_total",
			Help: "Total number of format resolutions",
		},
		[]string{"format", "strategy"},
	)

	ResolveUnrecognized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_previewer_resolve_unrecognized_total",
			Help: "Total number of files no format descriptor matched",
		},
	)
)

// Extraction metrics
var (
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_previewer_extractions_total",
			Help: "Total number of preview extractions",
		},
		[]string{"format", "status"},
	)

	ExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_previewer_extraction_duration_seconds",
			Help:    "Preview extraction duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"format"},
	)

	ExtractionFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_previewer_extraction_fallbacks_total",
			Help: "Total number of extractor fallback steps taken",
		},
		[]string{"format", "extractor"},
	)

	ExternalDecoderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_previewer_external_decoder_calls_total",
			Help: "Total number of external decoder invocations",
		},
		[]string{"status"}, // "ok", "error", "timeout", "unavailable"
	)
)

// Compositor metrics
var (
	CompositeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_previewer_composite_total",
			Help: "Total number of full canvas composites",
		},
		[]string{"format", "status"},
	)

	CompositeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_previewer_composite_duration_seconds",
			Help:    "Canvas compositing duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"format"},
	)
)

// Scanner metrics
var (
	ScannerMatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_previewer_scanner_matches_total",
			Help: "Total number of embedded image scans by outcome",
		},
		[]string{"kind", "outcome"}, // outcome: "match", "none"
	)

	ScannerMatchBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_previewer_scanner_match_bytes",
			Help:    "Size of the embedded image chosen by the scanner",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
	)
)

// Batch metrics
var (
	BatchRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_previewer_batch_runs_total",
			Help: "Total number of batch generation runs",
		},
	)

	BatchFilesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_previewer_batch_files_total",
			Help: "Total number of files processed by batch runs",
		},
		[]string{"status"}, // "ok", "skipped", "error"
	)

	BatchLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_previewer_batch_last_run_duration_seconds",
			Help: "Duration of the last batch run in seconds",
		},
	)

	BatchRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_previewer_batch_running",
			Help: "Whether a batch run is in progress (1 = running, 0 = idle)",
		},
	)
)
