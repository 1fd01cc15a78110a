// File: sink/null_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sink

import (
	"testing"

	"github.com/momentics/hioload-rec/api"
)

func testPeriod(time uint64, frames, nchannels int) *api.Period {
	nbytes := frames * api.DefaultSampleBytes
	chans := make([][]byte, nchannels)
	for ch := range chans {
		chans[ch] = make([]byte, nbytes)
	}
	return &api.Period{
		Header:   api.PeriodHeader{Time: time, NBytes: uint32(nbytes), NChannels: uint32(nchannels)},
		Channels: chans,
	}
}

func TestNullSinkEntryLifecycle(t *testing.T) {
	s := NewNullSink()

	if s.Ready() {
		t.Fatal("Ready on fresh sink")
	}
	if _, err := s.Write(testPeriod(0, 64, 1), 0, 0); err != api.ErrNoEntry {
		t.Fatalf("Write without entry: err = %v, want ErrNoEntry", err)
	}

	if err := s.NewEntry(100); err != nil {
		t.Fatalf("NewEntry error: %v", err)
	}
	if !s.Ready() {
		t.Fatal("not Ready after NewEntry")
	}
	if s.LastEntryStart() != 100 {
		t.Fatalf("LastEntryStart = %d, want 100", s.LastEntryStart())
	}
	if s.Aligned() {
		t.Fatal("Aligned before any data")
	}

	n, err := s.Write(testPeriod(100, 64, 2), 0, 0)
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if n != 64 {
		t.Fatalf("Write = %d frames, want 64", n)
	}
	if !s.Aligned() {
		t.Fatal("not Aligned after whole-period write")
	}

	if err := s.CloseEntry(); err != nil {
		t.Fatalf("CloseEntry error: %v", err)
	}
	if s.Ready() {
		t.Fatal("Ready after CloseEntry")
	}
	// Closing twice is a no-op.
	if err := s.CloseEntry(); err != nil {
		t.Fatalf("second CloseEntry error: %v", err)
	}

	opened, closed, periods, _ := s.Counts()
	if opened != 1 || closed != 1 || periods != 1 {
		t.Fatalf("Counts = (%d,%d,%d), want (1,1,1)", opened, closed, periods)
	}
}

func TestNullSinkWriteWindow(t *testing.T) {
	s := NewNullSink()
	if err := s.NewEntry(0); err != nil {
		t.Fatalf("NewEntry error: %v", err)
	}

	// Period covers frames [100, 164).
	p := testPeriod(100, 64, 1)

	cases := []struct {
		name        string
		start, stop uint64
		want        uint32
	}{
		{"whole period", 0, 0, 64},
		{"start clips head", 110, 0, 54},
		{"stop clips tail", 0, 150, 50},
		{"both clip", 110, 150, 40},
		{"stop before period", 0, 90, 0},
		{"window after period", 200, 0, 0},
	}
	for _, c := range cases {
		n, err := s.Write(p, c.start, c.stop)
		if err != nil {
			t.Fatalf("%s: Write error: %v", c.name, err)
		}
		if n != c.want {
			t.Errorf("%s: Write = %d frames, want %d", c.name, n, c.want)
		}
	}
}

func TestNullSinkAlignment(t *testing.T) {
	s := NewNullSink()
	if err := s.NewEntry(0); err != nil {
		t.Fatalf("NewEntry error: %v", err)
	}

	if _, err := s.Write(testPeriod(0, 64, 2), 0, 0); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if !s.Aligned() {
		t.Fatal("not Aligned after symmetric write")
	}

	// A mono period into a stereo entry leaves channel 1 behind.
	if _, err := s.Write(testPeriod(64, 64, 1), 0, 0); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if s.Aligned() {
		t.Fatal("Aligned with unequal channel totals")
	}
}
