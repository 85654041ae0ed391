// Package aggregator drives the batch loop: it generates the device
// population, dispatches one signed query per batch strictly sequentially,
// paces consecutive requests at a fixed interval, and collects results and
// failure counts into a single run result.
//
// Batches are never dispatched concurrently. The remote service rate-limits
// per client, and overlapping requests would defeat the pacing contract, so
// the loop is a deliberate single thread of control.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/devicepulse/telemetry-collector/pkg/batch"
	"github.com/devicepulse/telemetry-collector/pkg/device"
	"github.com/devicepulse/telemetry-collector/pkg/store"
)

// Prometheus metrics for aggregation runs.
var (
	batchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_batches_total",
		Help: "Total batches processed by result",
	}, []string{"result"})

	recordsCollectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telemetry_records_collected_total",
		Help: "Total telemetry records collected",
	})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "telemetry_run_duration_seconds",
		Help:    "Aggregation run duration in seconds",
		Buckets: []float64{1, 5, 15, 60, 120, 300, 600},
	})
)

// BatchFetcher is the fetch capability the aggregator drives. Implementations
// own the signing, timeout and retry policy for one batch.
type BatchFetcher interface {
	FetchBatch(ctx context.Context, serials []string) ([]json.RawMessage, error)
}

// Config holds the aggregator configuration.
type Config struct {
	// DeviceCount, SerialPrefix and SerialPadWidth describe the queried
	// population (e.g. 500 devices "SN-000".."SN-499").
	DeviceCount    int
	SerialPrefix   string
	SerialPadWidth int

	// BatchSize is the maximum serials per request.
	BatchSize int

	// BatchDelay is the fixed pause between consecutive batch dispatches.
	// It applies after failed batches too: the remote limiter counts
	// requests, not successes.
	BatchDelay time.Duration
}

// DefaultConfig returns the production aggregation configuration.
func DefaultConfig() Config {
	return Config{
		DeviceCount:    500,
		SerialPrefix:   "SN-",
		SerialPadWidth: 3,
		BatchSize:      10,
		BatchDelay:     1 * time.Second,
	}
}

// RunOptions controls a single run.
type RunOptions struct {
	// Persist hands the final snapshot to the store when at least one
	// record was collected.
	Persist bool
}

// RunResult is the outcome of one aggregation run. Records are ordered by
// batch dispatch order, then by server-returned order within each batch.
type RunResult struct {
	RunID            string
	Records          []json.RawMessage
	DevicesQueried   int
	BatchesAttempted int
	BatchesSucceeded int
	BatchesFailed    int
	Elapsed          time.Duration
}

// SuccessRate returns the fraction of attempted batches that succeeded.
func (r RunResult) SuccessRate() float64 {
	if r.BatchesAttempted == 0 {
		return 0
	}
	return float64(r.BatchesSucceeded) / float64(r.BatchesAttempted)
}

// Aggregator runs the sequential batch loop.
type Aggregator struct {
	fetcher BatchFetcher
	store   store.Store
	config  Config
	logger  zerolog.Logger
}

// New creates an aggregator. The store may be nil when persistence is never
// requested.
func New(fetcher BatchFetcher, st store.Store, cfg Config) (*Aggregator, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("batch fetcher is required")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive (got %d)", cfg.BatchSize)
	}
	if cfg.DeviceCount < 0 {
		cfg.DeviceCount = 0
	}

	return &Aggregator{
		fetcher: fetcher,
		store:   st,
		config:  cfg,
		logger:  log.With().Str("component", "aggregator").Logger(),
	}, nil
}

// Run executes one aggregation: generate serials, chunk them, fetch each
// batch in order with fixed pacing in between, and collect results. A failed
// batch is counted and skipped, never fatal. Context cancellation is observed
// between batches: the in-flight attempt finishes (or times out), then the
// partial result is returned without starting another batch.
func (a *Aggregator) Run(ctx context.Context, opts RunOptions) RunResult {
	start := time.Now()

	serials := device.Serials(device.SerialConfig{
		Count:    a.config.DeviceCount,
		Prefix:   a.config.SerialPrefix,
		PadWidth: a.config.SerialPadWidth,
	})
	batches := batch.Chunk(serials, a.config.BatchSize)

	result := RunResult{
		RunID:          uuid.NewString(),
		DevicesQueried: len(serials),
	}

	a.logger.Info().
		Str("run_id", result.RunID).
		Int("devices", len(serials)).
		Int("batches", len(batches)).
		Int("batch_size", a.config.BatchSize).
		Msg("Starting aggregation run")

loop:
	for i, b := range batches {
		if ctx.Err() != nil {
			a.logger.Warn().
				Int("batches_remaining", len(batches)-i).
				Msg("Shutdown requested, stopping before next batch")
			break
		}

		records, err := a.fetcher.FetchBatch(ctx, b)
		result.BatchesAttempted++

		if err != nil {
			result.BatchesFailed++
			batchesTotal.WithLabelValues("failure").Inc()
			a.logger.Error().
				Err(err).
				Int("batch_index", i).
				Msg("Batch failed, continuing with next batch")
		} else {
			result.Records = append(result.Records, records...)
			result.BatchesSucceeded++
			batchesTotal.WithLabelValues("success").Inc()
			recordsCollectedTotal.Add(float64(len(records)))
			a.logger.Debug().
				Int("batch_index", i).
				Int("records", len(records)).
				Msg("Batch complete")
		}

		if i < len(batches)-1 {
			select {
			case <-ctx.Done():
				break loop
			case <-time.After(a.config.BatchDelay):
			}
		}
	}

	result.Elapsed = time.Since(start)
	runDuration.Observe(result.Elapsed.Seconds())

	a.logger.Info().
		Str("run_id", result.RunID).
		Int("succeeded", result.BatchesSucceeded).
		Int("failed", result.BatchesFailed).
		Int("records", len(result.Records)).
		Dur("elapsed", result.Elapsed).
		Float64("success_rate", result.SuccessRate()).
		Msg("Aggregation run complete")

	if opts.Persist {
		a.persist(ctx, result)
	}

	return result
}

// persist hands the snapshot to the store. A persistence failure is reported
// but never invalidates the in-memory result; the run already succeeded.
func (a *Aggregator) persist(ctx context.Context, result RunResult) {
	if len(result.Records) == 0 {
		a.logger.Warn().Msg("No records collected, skipping persistence")
		return
	}
	if a.store == nil {
		a.logger.Warn().Msg("Persistence requested but no store configured")
		return
	}

	now := time.Now()
	snapshot := store.Snapshot{
		Metadata: store.Metadata{
			RunID:        result.RunID,
			Timestamp:    now,
			TotalRecords: len(result.Records),
			Duration:     result.Elapsed.Milliseconds(),
			SuccessRate:  result.SuccessRate(),
		},
		Data: result.Records,
	}

	data, err := snapshot.Encode()
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to encode snapshot")
		return
	}

	name := store.SnapshotName(now)
	if err := a.store.Save(ctx, name, data); err != nil {
		a.logger.Error().Err(err).Str("name", name).Msg("Failed to persist snapshot")
		return
	}
}
