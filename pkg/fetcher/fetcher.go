// Package fetcher issues signed batch queries against the device telemetry
// API with per-request timeouts and bounded exponential-backoff retry.
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/devicepulse/telemetry-collector/pkg/signer"
)

// QueryPath is the device telemetry query endpoint.
const QueryPath = "/device/real/query"

// Prometheus metrics for fetch operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_requests_total",
		Help: "Total device query requests by status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "telemetry_request_duration_seconds",
		Help:    "Device query request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "telemetry_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 4, 8, 16},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// Config holds the fetcher configuration.
type Config struct {
	// BaseURL is the device API base URL, e.g. "http://localhost:3000".
	BaseURL string

	// Secret is the shared signing secret. Validated at startup, not per call.
	Secret string

	// RequestTimeout bounds each individual attempt.
	RequestTimeout time.Duration

	// MaxRetries is the number of retries after the first attempt
	// (total attempts = MaxRetries + 1).
	MaxRetries int

	// BackoffBase is the delay before the first retry; successive retries
	// double it (base, 2*base, 4*base, ...).
	BackoffBase time.Duration
}

// DefaultConfig returns the production fetcher configuration.
func DefaultConfig(baseURL, secret string) Config {
	return Config{
		BaseURL:        baseURL,
		Secret:         secret,
		RequestTimeout: 10 * time.Second,
		MaxRetries:     3,
		BackoffBase:    1 * time.Second,
	}
}

// Fetcher executes signed batch queries.
type Fetcher struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new fetcher.
func New(cfg Config) (*Fetcher, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("signing secret is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 1 * time.Second
	}

	return &Fetcher{
		// Attempt deadlines come from the per-request context, so the
		// client itself carries no timeout.
		httpClient: &http.Client{},
		config:     cfg,
		logger:     log.With().Str("component", "fetcher").Logger(),
	}, nil
}

type queryRequest struct {
	SNList []string `json:"sn_list"`
}

type queryResponse struct {
	Data []json.RawMessage `json:"data"`
}

// FetchBatch queries telemetry for one batch of device serials and returns
// the server's records in order. Transient failures (429, refused connection,
// timeout) are retried up to MaxRetries times with exponential backoff; each
// attempt signs a fresh timestamp. Any other failure, or retry exhaustion,
// returns a *BatchError carrying the batch range. The caller decides whether
// a failed batch aborts anything; this method never does.
func (f *Fetcher) FetchBatch(ctx context.Context, serials []string) ([]json.RawMessage, error) {
	if len(serials) == 0 {
		return nil, nil
	}

	first, last := serials[0], serials[len(serials)-1]

	var lastErr error
	var lastClass ErrorClass

	for attempt := 0; attempt <= f.config.MaxRetries; attempt++ {
		records, err := f.attempt(ctx, serials)
		if err == nil {
			if attempt > 0 {
				f.logger.Info().
					Str("range", first+".."+last).
					Int("attempt", attempt+1).
					Msg("Batch succeeded after retry")
			}
			return records, nil
		}

		lastErr = err
		lastClass = Classify(err)

		if !shouldRetry(lastClass) {
			f.logger.Error().
				Err(err).
				Str("range", first+".."+last).
				Str("error_class", string(lastClass)).
				Msg("Batch failed with non-retryable error")
			return nil, &BatchError{First: first, Last: last, Attempts: attempt + 1, Err: err}
		}

		if attempt >= f.config.MaxRetries {
			break
		}

		backoff := f.config.BackoffBase << attempt
		retriesTotal.WithLabelValues(string(lastClass)).Inc()
		retryBackoffSeconds.WithLabelValues(string(lastClass)).Observe(backoff.Seconds())

		f.logger.Warn().
			Err(err).
			Str("range", first+".."+last).
			Str("error_class", string(lastClass)).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Msg("Retrying batch after backoff")

		select {
		case <-ctx.Done():
			err := fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
			return nil, &BatchError{First: first, Last: last, Attempts: attempt + 1, Err: err}
		case <-time.After(backoff):
		}
	}

	retryExhaustedTotal.WithLabelValues(string(lastClass)).Inc()
	f.logger.Error().
		Err(lastErr).
		Str("range", first+".."+last).
		Str("error_class", string(lastClass)).
		Int("attempts", f.config.MaxRetries+1).
		Msg("Batch failed, retry attempts exhausted")

	err := fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, f.config.MaxRetries+1, lastErr)
	return nil, &BatchError{First: first, Last: last, Attempts: f.config.MaxRetries + 1, Err: err}
}

// attempt performs one signed request. The timestamp and signature are
// computed fresh here: a retried attempt is a new signed request, not a
// resend of stale bytes.
func (f *Fetcher) attempt(ctx context.Context, serials []string) ([]json.RawMessage, error) {
	timestamp := time.Now().UnixMilli()
	signature := signer.Sign(QueryPath, f.config.Secret, timestamp)

	body, err := json.Marshal(queryRequest{SNList: serials})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.config.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, f.config.BaseURL+QueryPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Signature", signature)
	req.Header.Set("Timestamp", strconv.FormatInt(timestamp, 10))

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	requestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		requestsTotal.WithLabelValues("network_error").Inc()
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var decoded queryResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return decoded.Data, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (f *Fetcher) SetHTTPClient(client *http.Client) {
	f.httpClient = client
}
