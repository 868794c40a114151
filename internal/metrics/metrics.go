// Package metrics exposes the Prometheus collectors for the ingestion
// pipeline and the HTTP API. Collectors are registered at import time via
// promauto and served on /metrics by cmd/server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RawRecordsIngested counts raw log records accepted by the recorder.
	RawRecordsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loglens_raw_records_ingested_total",
		Help: "Raw log records written to the store by the recorder",
	})

	// EventsProcessed counts insert events the watcher pulled off the feed.
	EventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loglens_watcher_events_processed_total",
		Help: "Insert events processed by the change watcher",
	})

	// RecordsPersisted counts derived records successfully written.
	RecordsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loglens_watcher_records_persisted_total",
		Help: "Derived records persisted by the change watcher",
	})

	// RecordsDropped counts events dropped after a failed persist.
	RecordsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loglens_watcher_records_dropped_total",
		Help: "Events dropped because the derived record could not be persisted",
	})

	// ScoringFailures counts failed forwards to the scoring endpoint.
	ScoringFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loglens_scoring_failures_total",
		Help: "Forwards to the anomaly-scoring endpoint that failed",
	})

	// ScoringAnomalies counts records the scoring endpoint flagged.
	ScoringAnomalies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loglens_scoring_anomalies_total",
		Help: "Records the scoring endpoint judged anomalous",
	})

	// WatcherReconnects counts feed outages the watcher recovered from.
	WatcherReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loglens_watcher_reconnects_total",
		Help: "Change-feed reconnect attempts after a subscription error",
	})

	// WatcherConnected reflects the watcher's connectivity (1 watching, 0 not).
	WatcherConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "loglens_watcher_connected",
		Help: "Whether the change watcher currently holds a live subscription",
	})

	// HTTPRequestsTotal counts API requests by route, method and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loglens_http_requests_total",
		Help: "HTTP requests served by the API",
	}, []string{"route", "method", "status"})

	// HTTPRequestDuration observes API request latency by route and method.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "loglens_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"route", "method"})

	// WSClients tracks currently connected WebSocket stream clients.
	WSClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "loglens_ws_clients",
		Help: "Currently connected WebSocket stream clients",
	})

	// AlertsFired counts error-threshold evaluations whose gate opened.
	AlertsFired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loglens_error_threshold_alerts_total",
		Help: "Error-threshold evaluations where the error count exceeded the threshold",
	})
)
