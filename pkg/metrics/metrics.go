// Package metrics exposes the collector's Prometheus metrics over HTTP.
// All metrics are defined in their owning packages (fetcher, aggregator,
// store) via promauto to keep registration next to the instrumented code.
//
// This package provides the optional /metrics listener and documents the
// available series.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Serve starts the /metrics endpoint on addr in the background. An empty
// addr disables the listener.
func Serve(addr string) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	logger := log.With().Str("component", "metrics").Logger()
	logger.Info().Str("addr", addr).Msg("Serving Prometheus metrics")

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error().Err(err).Msg("Metrics listener failed")
		}
	}()
}

// Metrics Documentation
//
// Request Metrics (pkg/fetcher):
//   - telemetry_requests_total{status} (Counter): Requests by HTTP status or "network_error"
//   - telemetry_request_duration_seconds (Histogram): Per-attempt request duration
//
// Retry Metrics (pkg/fetcher):
//   - telemetry_retries_total{error_class} (Counter): Retry attempts by error class
//   - telemetry_retry_backoff_seconds{error_class} (Histogram): Backoff durations
//   - telemetry_retry_exhausted_total{error_class} (Counter): Batches that exhausted retries
//
// Run Metrics (pkg/aggregator):
//   - telemetry_batches_total{result} (Counter): Batches by result (success, failure)
//   - telemetry_records_collected_total (Counter): Records appended to run results
//   - telemetry_run_duration_seconds (Histogram): Wall-clock run duration
//
// Persistence Metrics (pkg/store):
//   - telemetry_snapshots_saved_total{sink} (Counter): Snapshots by sink (file, redis)
//   - telemetry_snapshot_bytes{sink} (Histogram): Encoded snapshot sizes
//
// Example Prometheus Queries:
//
//   # Batch failure rate
//   rate(telemetry_batches_total{result="failure"}[5m]) /
//   rate(telemetry_batches_total[5m])
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(telemetry_request_duration_seconds_bucket[5m]))
//
//   # Retry pressure by class
//   rate(telemetry_retries_total[5m])
