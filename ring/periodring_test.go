// File: ring/periodring_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package ring

import (
	"bytes"
	"encoding/binary"
	"runtime"
	"testing"

	"github.com/momentics/hioload-rec/api"
)

func mustPeriodRing(t *testing.T, size int) *PeriodRing {
	t.Helper()
	p, err := NewPeriodRing(size)
	if err != nil {
		t.Fatalf("NewPeriodRing(%d) error: %v", size, err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func channelPayload(period, ch, nbytes int) []byte {
	b := make([]byte, nbytes)
	for i := range b {
		b[i] = byte(period*31 + ch*7 + i)
	}
	return b
}

func TestPeriodRingRoundTrip(t *testing.T) {
	p := mustPeriodRing(t, 1024)
	const (
		nbytes    = 64
		nchannels = 3
		time      = uint64(48128)
	)

	if n := p.Reserve(time, nbytes, nchannels); n < 1 {
		t.Fatalf("Reserve = %d, want >= 1", n)
	}
	if p.ChansToWrite() != nchannels {
		t.Fatalf("ChansToWrite = %d, want %d", p.ChansToWrite(), nchannels)
	}
	for ch := 0; ch < nchannels; ch++ {
		p.PushChannel(channelPayload(0, ch, nbytes))
	}
	if p.ChansToWrite() != 0 {
		t.Fatalf("ChansToWrite after full push = %d, want 0", p.ChansToWrite())
	}

	wantChunk := HeaderSize + nbytes*nchannels
	if p.ReadSpace() != wantChunk {
		t.Fatalf("ReadSpace = %d, want %d", p.ReadSpace(), wantChunk)
	}

	hdr, ok := p.Request()
	if !ok {
		t.Fatal("Request: no period available")
	}
	want := api.PeriodHeader{Time: time, NBytes: nbytes, NChannels: nchannels}
	if hdr != want {
		t.Fatalf("header = %+v, want %+v", hdr, want)
	}
	dst := make([]byte, nbytes)
	for ch := 0; ch < nchannels; ch++ {
		p.PopChannel(dst)
		if !bytes.Equal(dst, channelPayload(0, ch, nbytes)) {
			t.Fatalf("channel %d payload mismatch", ch)
		}
	}
	if p.ReadSpace() != 0 {
		t.Fatalf("ReadSpace after drain = %d, want 0", p.ReadSpace())
	}
	if p.WriteSpace() != p.Capacity()-1 {
		t.Fatalf("WriteSpace after drain = %d, want %d", p.WriteSpace(), p.Capacity()-1)
	}
}

func TestPeriodRingRealizedCapacity(t *testing.T) {
	p := mustPeriodRing(t, 100)
	if p.Capacity() != 128 {
		t.Fatalf("Capacity = %d, want 128", p.Capacity())
	}
	if p.WriteSpace() != 127 {
		t.Fatalf("initial WriteSpace = %d, want 127", p.WriteSpace())
	}
}

func TestPeriodRingReserveBackpressure(t *testing.T) {
	p := mustPeriodRing(t, 64)

	// A 3x64-byte period can never fit in a 64-byte ring.
	if n := p.Reserve(0, 64, 3); n != 0 {
		t.Fatalf("Reserve = %d, want 0", n)
	}
	// Failed reserve opens nothing: a following reserve of a fitting
	// size must succeed.
	if n := p.Reserve(0, 8, 2); n < 1 {
		t.Fatalf("Reserve after failed reserve = %d, want >= 1", n)
	}
}

func TestPeriodRingNoPartialVisibility(t *testing.T) {
	p := mustPeriodRing(t, 1024)
	const nbytes, nchannels = 32, 3

	if n := p.Reserve(7, nbytes, nchannels); n < 1 {
		t.Fatalf("Reserve = %d, want >= 1", n)
	}
	payload := channelPayload(0, 0, nbytes)
	for ch := 0; ch < nchannels-1; ch++ {
		p.PushChannel(payload)
		if _, ok := p.Request(); ok {
			t.Fatalf("period visible after %d of %d channels", ch+1, nchannels)
		}
	}
	p.PushChannel(payload)
	if _, ok := p.Request(); !ok {
		t.Fatal("period not visible after all channels pushed")
	}
}

func TestPeriodRingProtocolViolations(t *testing.T) {
	mustPanic := func(name string, fn func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Errorf("%s: no panic", name)
			}
		}()
		fn()
	}

	payload := make([]byte, 16)

	p := mustPeriodRing(t, 1024)
	p.Reserve(0, 16, 2)
	mustPanic("double reserve", func() { p.Reserve(1, 16, 2) })

	p2 := mustPeriodRing(t, 1024)
	mustPanic("push without reserve", func() { p2.PushChannel(payload) })

	p3 := mustPeriodRing(t, 1024)
	p3.Reserve(0, 16, 1)
	p3.PushChannel(payload)
	p3.Request()
	mustPanic("double request", func() { p3.Request() })

	p4 := mustPeriodRing(t, 1024)
	mustPanic("pop without request", func() { p4.PopChannel(payload) })
}

func TestPeriodRingPopChannelFunc(t *testing.T) {
	p := mustPeriodRing(t, 64)
	const nbytes = 24

	// Advance cursors so the second period's payload wraps the
	// 64-byte boundary.
	p.Reserve(0, nbytes, 1)
	p.PushChannel(channelPayload(0, 0, nbytes))
	p.Request()
	p.PopChannel(make([]byte, nbytes))

	p.Reserve(1, nbytes, 1)
	p.PushChannel(channelPayload(1, 0, nbytes))
	if _, ok := p.Request(); !ok {
		t.Fatal("second period not available")
	}
	var segs int
	var got []byte
	p.PopChannelFunc(func(seg []byte) {
		segs++
		got = append(got, seg...)
	})
	if segs > 2 {
		t.Fatalf("visitor segments = %d, want <= 2", segs)
	}
	if !bytes.Equal(got, channelPayload(1, 0, nbytes)) {
		t.Fatal("visitor payload mismatch")
	}
}

func TestPeriodRingHeaderCodec(t *testing.T) {
	h := api.PeriodHeader{Time: 0xdeadbeefcafe, NBytes: 512, NChannels: 9}
	var b [HeaderSize]byte
	putHeader(b[:], h)
	if got := binary.LittleEndian.Uint64(b[0:8]); got != h.Time {
		t.Fatalf("encoded time = %d, want %d", got, h.Time)
	}
	if got := getHeader(b[:]); got != h {
		t.Fatalf("decoded header = %+v, want %+v", got, h)
	}
}

// TestPeriodRingConcurrentStress runs a real producer/consumer pair and
// asserts that every period arrives whole: header fields in order and
// every channel payload consistent with its period index.
func TestPeriodRingConcurrentStress(t *testing.T) {
	const (
		periods   = 5000
		nbytes    = 32
		nchannels = 3
	)
	p := mustPeriodRing(t, 4*(HeaderSize+nbytes*nchannels))

	done := make(chan error, 1)
	go func() {
		dst := make([]byte, nbytes)
		for i := 0; i < periods; i++ {
			var hdr api.PeriodHeader
			for {
				var ok bool
				hdr, ok = p.Request()
				if ok {
					break
				}
				runtime.Gosched()
			}
			if hdr.Time != uint64(i) || hdr.NBytes != nbytes || hdr.NChannels != nchannels {
				done <- errorf("period %d: header %+v", i, hdr)
				return
			}
			for ch := 0; ch < nchannels; ch++ {
				p.PopChannel(dst)
				if !bytes.Equal(dst, channelPayload(i, ch, nbytes)) {
					done <- errorf("period %d channel %d: payload mismatch", i, ch)
					return
				}
			}
		}
		done <- nil
	}()

	for i := 0; i < periods; i++ {
		for p.Reserve(uint64(i), nbytes, nchannels) == 0 {
			runtime.Gosched()
		}
		for ch := 0; ch < nchannels; ch++ {
			p.PushChannel(channelPayload(i, ch, nbytes))
		}
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}
