// Package device generates the fixed population of device serial numbers
// queried during an aggregation run.
package device

import "fmt"

// SerialConfig describes how the serial population is generated.
type SerialConfig struct {
	// Count is the total number of devices.
	Count int

	// Prefix is prepended to every serial (e.g. "SN-").
	Prefix string

	// PadWidth is the zero-padded width of the sequence number
	// (e.g. 3 -> "SN-007").
	PadWidth int
}

// Serials returns the ordered serial numbers for the configured population:
// Prefix + zero-padded index, starting at 0. Deterministic for a given config.
func Serials(cfg SerialConfig) []string {
	if cfg.Count <= 0 {
		return nil
	}

	serials := make([]string, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		serials[i] = fmt.Sprintf("%s%0*d", cfg.Prefix, cfg.PadWidth, i)
	}
	return serials
}
