// File: sink/wav.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// WAVSink stores each entry as one multichannel 16-bit PCM WAV file.
// Period payloads are interpreted as little-endian int16 samples. The
// file and encoder are created lazily on the first written period,
// because the channel count is only known from the period header.

package sink

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-rec/api"
)

// DefaultSampleRate is used when neither an option nor a timebase
// supplies a rate.
const DefaultSampleRate = 48000

// WAVSink implements api.Sink on plain WAV files, one file per entry.
type WAVSink struct {
	dir    string
	prefix string
	rate   int
	log    zerolog.Logger
	tb     api.Timebase

	file       *os.File
	enc        *wav.Encoder
	open       bool
	entryStart uint64
	entryIndex int
	channels   int
	periods    uint64
	frames     uint64
	xruns      uint64
	closed     bool

	scratch []int // reused interleave buffer
}

var _ api.Sink = (*WAVSink)(nil)

// WAVOption configures a WAVSink.
type WAVOption func(*WAVSink)

// WithSampleRate fixes the sample rate written to file headers.
func WithSampleRate(rate int) WAVOption {
	return func(s *WAVSink) { s.rate = rate }
}

// WithFilePrefix sets the filename prefix for entry files.
func WithFilePrefix(prefix string) WAVOption {
	return func(s *WAVSink) { s.prefix = prefix }
}

// WithLogger sets the sink logger; default is a no-op logger.
func WithLogger(l zerolog.Logger) WAVOption {
	return func(s *WAVSink) { s.log = l }
}

// NewWAVSink creates a sink writing entry files into dir.
func NewWAVSink(dir string, opts ...WAVOption) (*WAVSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("wavsink: empty directory: %w", api.ErrInvalidArgument)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("wavsink: %w", err)
	}
	s := &WAVSink{
		dir:    dir,
		prefix: "entry",
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *WAVSink) SetTimebase(tb api.Timebase) { s.tb = tb }

func (s *WAVSink) sampleRate() int {
	if s.rate > 0 {
		return s.rate
	}
	if s.tb != nil {
		if r := s.tb.SampleRate(); r > 0 {
			return r
		}
	}
	return DefaultSampleRate
}

func (s *WAVSink) NewEntry(frame uint64) error {
	if s.closed {
		return api.ErrSinkClosed
	}
	if s.open {
		if err := s.CloseEntry(); err != nil {
			return err
		}
	}
	s.open = true
	s.entryStart = frame
	s.channels = 0
	s.periods = 0
	s.frames = 0
	s.log.Info().Uint64("frame", frame).Int("entry", s.entryIndex).Msg("new entry")
	return nil
}

func (s *WAVSink) CloseEntry() error {
	if !s.open {
		return nil
	}
	s.open = false
	s.entryIndex++
	if s.enc == nil {
		// entry never received data; nothing on disk
		return nil
	}
	var err error
	if cerr := s.enc.Close(); cerr != nil {
		err = fmt.Errorf("wavsink: close encoder: %w", cerr)
	}
	if cerr := s.file.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("wavsink: close file: %w", cerr)
	}
	s.log.Info().
		Str("file", s.file.Name()).
		Uint64("frames", s.frames).
		Msg("entry closed")
	s.enc = nil
	s.file = nil
	return err
}

func (s *WAVSink) Ready() bool { return s.open }

func (s *WAVSink) Aligned() bool {
	// Write receives whole periods covering every channel, so all
	// channels stay in lockstep within an entry.
	return s.open && s.periods > 0
}

func (s *WAVSink) Xrun() {
	s.xruns++
	s.log.Warn().Uint64("entry_start", s.entryStart).Msg("xrun marker")
}

func (s *WAVSink) Write(p *api.Period, start, stop uint64) (uint32, error) {
	if s.closed {
		return 0, api.ErrSinkClosed
	}
	if !s.open {
		return 0, api.ErrNoEntry
	}
	nch := int(p.Header.NChannels)
	frames := uint64(p.Header.Frames(2))
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
	if s.enc == nil {
		if err := s.createFile(nch); err != nil {
			return 0, err
		}
	}
	if nch != s.channels {
		return 0, fmt.Errorf("wavsink: period has %d channels, entry has %d: %w",
			nch, s.channels, api.ErrInvalidArgument)
	}

	n := int(hi - lo)
	need := n * nch
	if cap(s.scratch) < need {
		s.scratch = make([]int, need)
	}
	data := s.scratch[:need]
	for ch, payload := range p.Channels {
		for i := 0; i < n; i++ {
			off := (int(lo) + i) * 2
			sample := int16(binary.LittleEndian.Uint16(payload[off : off+2]))
			data[i*nch+ch] = int(sample)
		}
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: nch, SampleRate: s.sampleRate()},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := s.enc.Write(buf); err != nil {
		return 0, fmt.Errorf("wavsink: write period: %w", err)
	}
	s.periods++
	s.frames += uint64(n)
	return uint32(n), nil
}

func (s *WAVSink) createFile(nch int) error {
	name := fmt.Sprintf("%s_%04d_%d.wav", s.prefix, s.entryIndex, s.entryStart)
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return fmt.Errorf("wavsink: create entry file: %w", err)
	}
	s.file = f
	s.enc = wav.NewEncoder(f, s.sampleRate(), 16, nch, 1)
	s.channels = nch
	return nil
}

func (s *WAVSink) Flush() error {
	if s.file == nil {
		return nil
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("wavsink: sync: %w", err)
	}
	return nil
}

// Close closes any open entry and invalidates the sink.
func (s *WAVSink) Close() error {
	if s.closed {
		return nil
	}
	err := s.CloseEntry()
	s.closed = true
	return err
}
