// File: control/metrics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Capture metrics. Counters are plain atomics so the producer-side
// updates stay wait-free; Snapshot is for monitoring threads.

package control

import "sync/atomic"

// Metrics aggregates counters for one capture pipeline.
type Metrics struct {
	PeriodsWritten atomic.Uint64
	FramesWritten  atomic.Uint64
	FramesDropped  atomic.Uint64
	Xruns          atomic.Uint64
	WriteErrors    atomic.Uint64
	EntriesOpened  atomic.Uint64
	EntriesClosed  atomic.Uint64
}

// NewMetrics creates an empty metrics set.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Snapshot returns the current counter values as a map keyed by metric
// name, suitable for export or debug probes.
func (m *Metrics) Snapshot() map[string]uint64 {
	return map[string]uint64{
		"periods_written": m.PeriodsWritten.Load(),
		"frames_written":  m.FramesWritten.Load(),
		"frames_dropped":  m.FramesDropped.Load(),
		"xruns":           m.Xruns.Load(),
		"write_errors":    m.WriteErrors.Load(),
		"entries_opened":  m.EntriesOpened.Load(),
		"entries_closed":  m.EntriesClosed.Load(),
	}
}
