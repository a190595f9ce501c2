// Package metrics provides Prometheus metrics for modeltool.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Operation metrics
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modeltool_operations_total",
			Help: "Total number of orchestrator operations",
		},
		[]string{"operation", "result"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modeltool_operation_duration_seconds",
			Help:    "Orchestrator operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Transfer metrics
	bytesRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "modeltool_bytes_read_total",
			Help: "Total bytes read from model files",
		},
	)

	bytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "modeltool_bytes_written_total",
			Help: "Total bytes written to native model files",
		},
	)

	// Batch metrics
	batchItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modeltool_batch_items_total",
			Help: "Total number of files processed by batch conversion",
		},
		[]string{"result"},
	)

	// State metrics
	currentState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "modeltool_state",
			Help: "Current orchestrator state as its ordinal",
		},
	)

	listingSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "modeltool_listing_entries",
			Help: "Number of entries in the current directory listing",
		},
	)

	refreshesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "modeltool_listing_refreshes_total",
			Help: "Total number of directory listing refreshes",
		},
	)

	watchEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modeltool_watch_events_total",
			Help: "Total number of directory change events received",
		},
		[]string{"op"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordOperation records one finished operation.
func RecordOperation(operation string, duration time.Duration, success bool) {
	operationsTotal.WithLabelValues(operation, result(success)).Inc()
	operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRead adds bytes read from disk.
func RecordRead(bytes int) {
	bytesRead.Add(float64(bytes))
}

// RecordWrite adds bytes written to disk.
func RecordWrite(bytes int) {
	bytesWritten.Add(float64(bytes))
}

// RecordBatchItem records the outcome of one batch file.
func RecordBatchItem(success bool) {
	batchItemsTotal.WithLabelValues(result(success)).Inc()
}

// SetState publishes the orchestrator state ordinal.
func SetState(state int) {
	currentState.Set(float64(state))
}

// RecordRefresh records a listing refresh of size entries.
func RecordRefresh(size int) {
	refreshesTotal.Inc()
	listingSize.Set(float64(size))
}

// RecordWatchEvent records a change event by op name.
func RecordWatchEvent(op string) {
	watchEventsTotal.WithLabelValues(op).Inc()
}

// NewServer returns an HTTP server exposing Handler at /metrics on addr.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
