// File: sink/null.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// NullSink counts what it is given and throws the data away. Useful as
// a test double and as the base case for pipelines that only exercise
// the buffering core.

package sink

import (
	"sync"

	"github.com/momentics/hioload-rec/api"
)

// NullSink implements api.Sink by accounting periods and discarding
// payloads. Unlike file sinks it is safe to inspect from another
// goroutine while the consumer thread drives it, which is what tests
// need.
type NullSink struct {
	mu sync.Mutex

	open       bool
	entryStart uint64

	entriesOpened uint64
	entriesClosed uint64
	periods       uint64
	frames        uint64
	xruns         uint64
	flushes       uint64

	chanBytes []uint64 // per-channel byte totals within the current entry
}

var _ api.Sink = (*NullSink)(nil)

// NewNullSink creates an empty counting sink.
func NewNullSink() *NullSink {
	return &NullSink{}
}

func (s *NullSink) NewEntry(frame uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		s.entriesClosed++
	}
	s.open = true
	s.entryStart = frame
	s.entriesOpened++
	s.chanBytes = s.chanBytes[:0]
	return nil
}

func (s *NullSink) CloseEntry() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil
	}
	s.open = false
	s.entriesClosed++
	s.chanBytes = s.chanBytes[:0]
	return nil
}

func (s *NullSink) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *NullSink) Aligned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alignedLocked()
}

func (s *NullSink) alignedLocked() bool {
	if len(s.chanBytes) == 0 {
		return false
	}
	first := s.chanBytes[0]
	if first == 0 {
		return false
	}
	for _, b := range s.chanBytes[1:] {
		if b != first {
			return false
		}
	}
	return true
}

func (s *NullSink) Xrun() {
	s.mu.Lock()
	s.xruns++
	s.mu.Unlock()
}

func (s *NullSink) Write(p *api.Period, start, stop uint64) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0, api.ErrNoEntry
	}
	frames := uint64(p.Header.Frames(api.DefaultSampleBytes))
	lo := uint64(0)
	if start > p.Header.Time {
		lo = start - p.Header.Time
	}
	hi := frames
	if stop != 0 && stop < p.Header.Time+frames {
		if stop <= p.Header.Time {
			hi = 0
		} else {
			hi = stop - p.Header.Time
		}
	}
	if hi <= lo {
		return 0, nil
	}
	if len(s.chanBytes) < len(p.Channels) {
		s.chanBytes = append(s.chanBytes, make([]uint64, len(p.Channels)-len(s.chanBytes))...)
	}
	for ch, payload := range p.Channels {
		s.chanBytes[ch] += uint64(len(payload))
	}
	s.periods++
	s.frames += hi - lo
	return uint32(hi - lo), nil
}

func (s *NullSink) Flush() error {
	s.mu.Lock()
	s.flushes++
	s.mu.Unlock()
	return nil
}

func (s *NullSink) SetTimebase(tb api.Timebase) {}

// Counts returns (entries opened, entries closed, periods, xruns).
func (s *NullSink) Counts() (opened, closed, periods, xruns uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entriesOpened, s.entriesClosed, s.periods, s.xruns
}

// Frames returns the total frames accounted across all entries.
func (s *NullSink) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// LastEntryStart returns the start frame of the most recent entry.
func (s *NullSink) LastEntryStart() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entryStart
}
