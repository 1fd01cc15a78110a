// File: api/datathread.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Producer-facing surface of the buffered disk thread.

package api

// DataThread decouples a hard-real-time producer from unbounded-latency
// storage. Exactly one producer thread may call the data-path methods
// (Push, WriteSpace, DataReady, Xrun); the implementation runs exactly
// one consumer thread internally.
type DataThread interface {
	// Push admits one period of multichannel data. data holds
	// hdr.NChannels contiguous blocks of hdr.NBytes bytes. Returns the
	// number of frames admitted; 0 means the buffer was full and the
	// period was dropped (backpressure, not an error). Never blocks.
	Push(data []byte, hdr PeriodHeader) uint32

	// WriteSpace reports how many complete periods of nframes frames
	// can currently be admitted. Wait-free.
	WriteSpace(nframes uint32) uint32

	// DataReady wakes the consumer thread. Multiple calls before the
	// consumer wakes have the same effect as one.
	DataReady()

	// Xrun records that an overrun occurred since the last drain.
	Xrun()

	// CloseEntry asks the consumer to close the current entry once all
	// channels have produced data up to (or past) the given frame.
	CloseEntry(frame uint64)

	// ResizeBuffer enlarges the buffer to hold at least nframes frames
	// of nchannels channels; never shrinks. Blocks until the consumer
	// has drained the buffer. Must not be called from the real-time
	// producer thread; intended for setup and reconfiguration only.
	// Returns the new capacity in frames.
	ResizeBuffer(nframes, nchannels uint32) uint32

	// Start spawns the consumer thread.
	Start() error

	// Stop asks the consumer thread to exit after a final drain of any
	// admitted data. Does not block; use Join to wait.
	Stop()

	// Join blocks until the consumer thread has exited.
	Join()
}
