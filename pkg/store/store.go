// Package store persists run snapshots. A snapshot is the aggregated record
// collection plus run metadata, encoded as one JSON blob and written under a
// generated unique name. Two sinks are provided: a local file store and a
// Redis store.
package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for snapshot persistence.
var (
	snapshotsSavedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_snapshots_saved_total",
		Help: "Total snapshots saved by sink",
	}, []string{"sink"})

	snapshotBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "telemetry_snapshot_bytes",
		Help:    "Encoded snapshot size in bytes by sink",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
	}, []string{"sink"})
)

// Store writes a named blob to durable storage.
type Store interface {
	Save(ctx context.Context, name string, data []byte) error
}

// Metadata describes one aggregation run.
type Metadata struct {
	RunID        string    `json:"run_id"`
	Timestamp    time.Time `json:"timestamp"`
	TotalRecords int       `json:"totalRecords"`
	Duration     int64     `json:"duration"`
	SuccessRate  float64   `json:"successRate"`
}

// Snapshot is the persisted form of a run: metadata plus the records exactly
// as the server returned them.
type Snapshot struct {
	Metadata Metadata          `json:"metadata"`
	Data     []json.RawMessage `json:"data"`
}

// Encode renders the snapshot as indented JSON.
func (s Snapshot) Encode() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// SnapshotName derives a unique, filesystem-safe name from a timestamp.
// Colons are not valid in filenames on every platform, so they are replaced.
func SnapshotName(ts time.Time) string {
	stamp := strings.ReplaceAll(ts.UTC().Format(time.RFC3339), ":", "-")
	return "telemetry-" + stamp + ".json"
}
