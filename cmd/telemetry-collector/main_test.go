package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/devicepulse/telemetry-collector/pkg/aggregator"
)

func testResult(records int) aggregator.RunResult {
	result := aggregator.RunResult{
		RunID:            "11111111-2222-3333-4444-555555555555",
		DevicesQueried:   records,
		BatchesAttempted: 2,
		BatchesSucceeded: 2,
		Elapsed:          1500 * time.Millisecond,
	}
	for i := 0; i < records; i++ {
		result.Records = append(result.Records, json.RawMessage(`{"sn":"SN-000"}`))
	}
	return result
}

func TestPrintSample_Summary(t *testing.T) {
	buf := &bytes.Buffer{}

	printSample(buf, testResult(3), 5)

	out := buf.String()
	if !strings.Contains(out, "3 records") {
		t.Errorf("Summary %q missing record count", out)
	}
	if !strings.Contains(out, "2/2 batches succeeded (100.0%)") {
		t.Errorf("Summary %q missing batch counters", out)
	}
	if strings.Count(out, `"sn"`) != 3 {
		t.Errorf("Expected all 3 records printed, got:\n%s", out)
	}
}

func TestPrintSample_TruncatesLongRuns(t *testing.T) {
	buf := &bytes.Buffer{}

	printSample(buf, testResult(12), 5)

	out := buf.String()
	if strings.Count(out, `"sn"`) != 5 {
		t.Errorf("Expected 5 sample records, got:\n%s", out)
	}
	if !strings.Contains(out, "... and 7 more records") {
		t.Errorf("Summary %q missing truncation note", out)
	}
}

func TestPrintSample_EmptyRun(t *testing.T) {
	buf := &bytes.Buffer{}

	printSample(buf, aggregator.RunResult{RunID: "x"}, 5)

	out := buf.String()
	if !strings.Contains(out, "0 records") {
		t.Errorf("Summary %q missing zero record count", out)
	}
}
