// Package testutil provides testing utilities for the telemetry collector.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// RecordedRequest captures one request seen by the mock device API.
type RecordedRequest struct {
	ReceivedAt time.Time
	Signature  string
	Timestamp  string
	SNList     []string
}

// MockDeviceAPI is a configurable mock of the device telemetry query service.
// The default handler validates the wire protocol (method, path, content
// type, signature headers) and echoes one record per requested serial, so
// protocol regressions fail tests without extra assertions.
type MockDeviceAPI struct {
	server *httptest.Server

	mu       sync.Mutex
	requests []RecordedRequest
	failures []int // HTTP statuses to serve before succeeding
	delay    time.Duration
	handler  http.HandlerFunc
}

// NewMockDeviceAPI creates a started mock server.
func NewMockDeviceAPI() *MockDeviceAPI {
	mock := &MockDeviceAPI{}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.serve))
	return mock
}

// URL returns the mock server base URL.
func (m *MockDeviceAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockDeviceAPI) Close() {
	m.server.Close()
}

// FailFirst makes the next n requests respond with the given HTTP status
// before the default handler takes over again.
func (m *MockDeviceAPI) FailFirst(n, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = m.failures[:0]
	for i := 0; i < n; i++ {
		m.failures = append(m.failures, status)
	}
}

// SetDelay makes every response wait before being written, to provoke
// client-side timeouts.
func (m *MockDeviceAPI) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetHandler replaces the response logic entirely. Requests are still
// recorded.
func (m *MockDeviceAPI) SetHandler(h http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = h
}

// RequestCount returns the number of requests received.
func (m *MockDeviceAPI) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of all recorded requests in arrival order.
func (m *MockDeviceAPI) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *MockDeviceAPI) serve(w http.ResponseWriter, r *http.Request) {
	rec := RecordedRequest{
		ReceivedAt: time.Now(),
		Signature:  r.Header.Get("Signature"),
		Timestamp:  r.Header.Get("Timestamp"),
	}

	var body struct {
		SNList []string `json:"sn_list"`
	}
	decodeErr := json.NewDecoder(r.Body).Decode(&body)
	rec.SNList = body.SNList

	m.mu.Lock()
	m.requests = append(m.requests, rec)
	delay := m.delay
	handler := m.handler
	var failStatus int
	if len(m.failures) > 0 {
		failStatus = m.failures[0]
		m.failures = m.failures[1:]
	}
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	if handler != nil {
		handler(w, r)
		return
	}

	if failStatus != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(failStatus)
		fmt.Fprintf(w, `{"error": "injected failure (status %d)"}`, failStatus)
		return
	}

	// Protocol validation: wrong requests get a 400 the client must treat
	// as non-retryable, which surfaces immediately in tests.
	switch {
	case r.Method != http.MethodPost,
		r.URL.Path != "/device/real/query",
		r.Header.Get("Content-Type") != "application/json",
		rec.Signature == "",
		rec.Timestamp == "",
		decodeErr != nil:
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": "malformed device query"}`)
		return
	}

	records := make([]json.RawMessage, 0, len(body.SNList))
	for _, sn := range body.SNList {
		records = append(records, json.RawMessage(
			fmt.Sprintf(`{"sn":%q,"status":"online","battery":87}`, sn)))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{"data": records})
}
