// File: ring/periodring.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Period framing over ByteRing. Each period is framed as a fixed-size
// header followed by NChannels contiguous channel payloads, staged in
// unpublished ring space and committed by a single write-cursor advance
// once the last channel is pushed. A reader therefore never observes a
// period with only some of its channels present.
//
// Both sides run a two-phase protocol: Reserve/PushChannel on the
// producer thread, Request/PopChannel on the consumer thread. Each side
// has at most one in-flight period; out-of-sequence calls are
// programming errors and panic rather than corrupt the framing state.

package ring

import (
	"encoding/binary"

	"github.com/momentics/hioload-rec/api"
)

// HeaderSize is the framed size of an api.PeriodHeader in the ring.
const HeaderSize = 16

func putHeader(b []byte, h api.PeriodHeader) {
	binary.LittleEndian.PutUint64(b[0:8], h.Time)
	binary.LittleEndian.PutUint32(b[8:12], h.NBytes)
	binary.LittleEndian.PutUint32(b[12:16], h.NChannels)
}

func getHeader(b []byte) api.PeriodHeader {
	return api.PeriodHeader{
		Time:      binary.LittleEndian.Uint64(b[0:8]),
		NBytes:    binary.LittleEndian.Uint32(b[8:12]),
		NChannels: binary.LittleEndian.Uint32(b[12:16]),
	}
}

// PeriodRing frames multichannel periods over a single ByteRing.
type PeriodRing struct {
	rb *ByteRing

	// producer-side transaction state
	whdr     api.PeriodHeader
	whdrBuf  [HeaderSize]byte
	wpending uint32
	wopen    bool

	// consumer-side transaction state
	rhdr     api.PeriodHeader
	rhdrBuf  [HeaderSize]byte
	rpending uint32
	ropen    bool
}

// NewPeriodRing allocates a period ring over a byte ring of at least
// minBytes capacity.
func NewPeriodRing(minBytes int) (*PeriodRing, error) {
	rb, err := NewByteRing(minBytes)
	if err != nil {
		return nil, err
	}
	return &PeriodRing{rb: rb}, nil
}

// Close releases the underlying byte ring.
func (p *PeriodRing) Close() error { return p.rb.Close() }

// Capacity returns the underlying byte capacity.
func (p *PeriodRing) Capacity() int { return p.rb.Capacity() }

// WriteSpace returns free bytes in the underlying ring. Wait-free.
func (p *PeriodRing) WriteSpace() int { return p.rb.WriteSpace() }

// ReadSpace returns occupied bytes in the underlying ring. Wait-free.
func (p *PeriodRing) ReadSpace() int { return p.rb.ReadSpace() }

// Reserve opens a new period of nchannels payloads of nbytes bytes
// each, starting at frame index time. It stages the header in
// unpublished ring space and returns the number of whole periods of
// this size that currently fit, or 0 if there is no room for even one
// (backpressure; the reservation is not opened). Producer thread only.
//
// Calling Reserve while a previous reservation is unfinished panics.
func (p *PeriodRing) Reserve(time uint64, nbytes, nchannels int) int {
	if p.wopen {
		panic("periodring: reserve before finishing previous period")
	}
	if nbytes <= 0 || nchannels <= 0 {
		panic("periodring: reserve with non-positive period dimensions")
	}
	chunk := HeaderSize + nbytes*nchannels
	avail := p.rb.WriteSpace() / chunk
	if avail < 1 {
		return 0
	}
	p.whdr = api.PeriodHeader{Time: time, NBytes: uint32(nbytes), NChannels: uint32(nchannels)}
	putHeader(p.whdrBuf[:], p.whdr)
	p.rb.stageAt(0, p.whdrBuf[:])
	p.wpending = uint32(nchannels)
	p.wopen = true
	return avail
}

// ChansToWrite returns how many channels of the current reservation are
// still unpushed; 0 when no reservation is open.
func (p *PeriodRing) ChansToWrite() int { return int(p.wpending) }

// PushChannel copies one channel's payload into the next slot of the
// current reservation. When the last channel is pushed the whole chunk
// is published in a single cursor advance. Producer thread only.
//
// Calling PushChannel with no open reservation panics.
func (p *PeriodRing) PushChannel(src []byte) {
	if !p.wopen {
		panic("periodring: push before reserving header")
	}
	nb := int(p.whdr.NBytes)
	if len(src) < nb {
		panic("periodring: channel payload shorter than reservation")
	}
	off := HeaderSize + nb*int(p.whdr.NChannels-p.wpending)
	p.rb.stageAt(off, src[:nb])
	p.wpending--
	if p.wpending == 0 {
		p.rb.commit(HeaderSize + nb*int(p.whdr.NChannels))
		p.wopen = false
	}
}

// Request returns the next period's header if a complete period is
// available, opening a consumer-side transaction. The second return is
// false when nothing is ready. Consumer thread only.
//
// Calling Request while a previous period is unfinished panics.
func (p *PeriodRing) Request() (api.PeriodHeader, bool) {
	if p.ropen {
		panic("periodring: request before finishing previous period")
	}
	if p.rb.ReadSpace() < HeaderSize {
		return api.PeriodHeader{}, false
	}
	p.rb.peekAt(0, p.rhdrBuf[:])
	p.rhdr = getHeader(p.rhdrBuf[:])
	p.rpending = p.rhdr.NChannels
	p.ropen = true
	return p.rhdr, true
}

// ChansToRead returns how many channels of the current period are still
// unpopped; 0 when no period is requested.
func (p *PeriodRing) ChansToRead() int { return int(p.rpending) }

// PopChannel copies one channel's payload into dst. When the last
// channel is popped, the whole chunk is released in a single cursor
// advance, freeing its space for the producer. Consumer thread only.
//
// Calling PopChannel with no requested period panics.
func (p *PeriodRing) PopChannel(dst []byte) {
	nb := p.checkPop()
	if len(dst) < nb {
		panic("periodring: destination shorter than channel payload")
	}
	off := HeaderSize + nb*int(p.rhdr.NChannels-p.rpending)
	p.rb.peekAt(off, dst[:nb])
	p.finishChannel(nb)
}

// PopChannelFunc visits one channel's payload in place, in at most two
// contiguous segments, then accounts it as consumed. Consumer thread
// only.
func (p *PeriodRing) PopChannelFunc(fn Visitor) {
	nb := p.checkPop()
	off := HeaderSize + nb*int(p.rhdr.NChannels-p.rpending)
	p.rb.peekFunc(off, nb, fn)
	p.finishChannel(nb)
}

// TransferTo moves all published bytes into dst, which must be empty
// and at least as large. Committed periods are contiguous byte runs, so
// a verbatim byte transfer preserves framing. Used when swapping rings
// during a resize; both rings' consumer sides must be quiescent.
func (p *PeriodRing) TransferTo(dst *PeriodRing) int {
	return p.rb.PopFunc(func(seg []byte) {
		dst.rb.Push(seg)
	}, 0)
}

func (p *PeriodRing) checkPop() int {
	if !p.ropen {
		panic("periodring: pop before requesting header (or out of channels)")
	}
	return int(p.rhdr.NBytes)
}

// finishChannel decrements the read-side pending counter; completion is
// detected on the read-side counter exclusively.
func (p *PeriodRing) finishChannel(nb int) {
	p.rpending--
	if p.rpending == 0 {
		p.rb.release(HeaderSize + nb*int(p.rhdr.NChannels))
		p.ropen = false
	}
}
