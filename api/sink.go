// File: api/sink.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Storage sink contract. A sink owns actual file I/O; the buffering
// core only drives it with periods and entry lifecycle calls.

package api

// Sink receives drained periods and entry lifecycle events. All methods
// are invoked from the single consumer thread of a data thread; a Sink
// does not need to be safe for concurrent use.
//
// Data is organized in entries: logical recording segments with a single
// start time, spanning zero or more periods across one or more channels,
// until explicitly closed.
type Sink interface {
	// NewEntry creates a new entry starting at the given frame index,
	// closing the previous one if still open.
	NewEntry(frame uint64) error

	// CloseEntry closes the current entry. No-op if none is open.
	CloseEntry() error

	// Ready reports whether an entry is open for recording.
	Ready() bool

	// Aligned reports whether every channel has received the same
	// amount of data and at least one full period has been written.
	Aligned() bool

	// Xrun records that an overrun occurred at the current position.
	Xrun()

	// Write persists one period. If start is nonzero only frames with
	// index >= start are written; if stop is nonzero only frames with
	// index < stop are written (stop past the period's end is fine).
	// Returns the number of frames actually persisted. A failed write
	// must leave the sink consistent enough for subsequent periods.
	Write(p *Period, start, stop uint64) (uint32, error)

	// Flush requests buffered data to be pushed to stable storage.
	// Called by the core when the system load is light and on stop.
	Flush() error

	// SetTimebase hands the sink an optional time/rate source for
	// timestamping entries. May be called with nil.
	SetTimebase(tb Timebase)
}

// Timebase correlates frame counts with sample rate and wall-clock
// time. It is an optional collaborator: all components tolerate its
// absence.
type Timebase interface {
	// SampleRate returns the nominal sample rate in Hz.
	SampleRate() int

	// FrameTime returns the wall-clock time in microseconds since the
	// epoch for the given frame index, or 0 if unknown.
	FrameTime(frame uint64) int64
}
