// File: ring/bytering.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Lock-free SPSC byte ring with monotonic atomic cursors, cache-line
// padding between producer and consumer state, and mlocked backing
// storage. One slot of capacity is kept unused so that equal cursors
// always mean empty: WriteSpace()+1+ReadSpace() == Capacity().

package ring

import (
	"fmt"
	"sync/atomic"

	"github.com/momentics/hioload-rec/api"
	"github.com/momentics/hioload-rec/internal/memlock"
)

// Visitor processes one contiguous segment of ring data in place,
// without an intermediate copy. A popping call invokes it once per
// wrapped segment, i.e. at most twice.
type Visitor func(seg []byte)

// ByteRing is a fixed-capacity power-of-two circular byte buffer with
// independent read/write cursors. The producer thread owns the write
// cursor, the consumer thread owns the read cursor; no other access is
// supported.
type ByteRing struct {
	widx atomic.Uint64
	_    [56]byte // keep producer and consumer cursors on separate cache lines
	ridx atomic.Uint64
	_    [56]byte

	buf  []byte
	mask uint64
	size uint64
}

// NewByteRing allocates a ring with capacity rounded up to the smallest
// power of two >= minSize and locks the backing storage into physical
// memory. A locking failure is a fatal setup error.
func NewByteRing(minSize int) (*ByteRing, error) {
	if minSize <= 0 {
		return nil, fmt.Errorf("ring: size %d: %w", minSize, api.ErrInvalidArgument)
	}
	size := uint64(2)
	for size < uint64(minSize) {
		size <<= 1
	}
	r := &ByteRing{
		buf:  make([]byte, size),
		mask: size - 1,
		size: size,
	}
	if err := memlock.Lock(r.buf); err != nil {
		return nil, err
	}
	return r, nil
}

// Close unlocks the backing storage. The ring must not be used after.
func (r *ByteRing) Close() error {
	return memlock.Unlock(r.buf)
}

// Capacity returns the realized capacity in bytes.
func (r *ByteRing) Capacity() int { return int(r.size) }

// WriteSpace returns the number of bytes that can be pushed. Wait-free;
// safe to call concurrently with consumer-side operations.
func (r *ByteRing) WriteSpace() int {
	used := r.widx.Load() - r.ridx.Load()
	return int(r.size - 1 - used)
}

// ReadSpace returns the number of bytes that can be popped. Wait-free;
// safe to call concurrently with producer-side operations.
func (r *ByteRing) ReadSpace() int {
	return int(r.widx.Load() - r.ridx.Load())
}

// Push copies up to len(p) bytes into the ring, wrapping at the buffer
// boundary, and publishes by advancing the write cursor last. Returns
// the number of bytes actually written; a short write signals
// backpressure, never an error. Producer thread only.
func (r *ByteRing) Push(p []byte) int {
	w := r.widx.Load()
	free := r.size - 1 - (w - r.ridx.Load())
	n := uint64(len(p))
	if n > free {
		n = free
	}
	if n == 0 {
		return 0
	}
	r.copyIn(w, p[:n])
	r.widx.Store(w + n) // publish point
	return int(n)
}

// Pop copies up to len(dst) bytes out of the ring. Returns the number
// of bytes actually read. Consumer thread only.
func (r *ByteRing) Pop(dst []byte) int {
	rd := r.ridx.Load()
	avail := r.widx.Load() - rd
	n := uint64(len(dst))
	if n > avail {
		n = avail
	}
	if n == 0 {
		return 0
	}
	r.copyOut(rd, dst[:n])
	r.ridx.Store(rd + n)
	return int(n)
}

// PopFunc reads count bytes (0 = all available) through a visitor,
// avoiding the intermediate copy. The visitor sees each contiguous
// segment before the read cursor advances. Consumer thread only.
func (r *ByteRing) PopFunc(fn Visitor, count int) int {
	rd := r.ridx.Load()
	avail := r.widx.Load() - rd
	n := avail
	if count > 0 && uint64(count) < n {
		n = uint64(count)
	}
	if n == 0 {
		return 0
	}
	pos := rd & r.mask
	first := r.size - pos
	if first > n {
		first = n
	}
	fn(r.buf[pos : pos+first])
	if n > first {
		fn(r.buf[:n-first])
	}
	r.ridx.Store(rd + n)
	return int(n)
}

// Advance discards count bytes (0 = all available) without copying.
// Consumer thread only.
func (r *ByteRing) Advance(count int) int {
	rd := r.ridx.Load()
	avail := r.widx.Load() - rd
	n := avail
	if count > 0 && uint64(count) < n {
		n = uint64(count)
	}
	r.ridx.Store(rd + n)
	return int(n)
}

// Flush advances the read cursor until at most keep bytes remain,
// dropping the oldest data. Used for prebuffer maintenance. Returns the
// number of bytes dropped. The producer may add data concurrently, in
// which case ReadSpace may exceed keep afterwards. Consumer thread only.
func (r *ByteRing) Flush(keep int) int {
	rd := r.ridx.Load()
	avail := r.widx.Load() - rd
	if avail <= uint64(keep) {
		return 0
	}
	n := avail - uint64(keep)
	r.ridx.Store(rd + n)
	return int(n)
}

// stageAt copies p into the not-yet-published region at the given byte
// offset past the write cursor. The caller guarantees the region fits
// in the current write space. Producer thread only.
func (r *ByteRing) stageAt(off int, p []byte) {
	r.copyIn(r.widx.Load()+uint64(off), p)
}

// commit publishes n staged bytes in one cursor step. Producer thread
// only.
func (r *ByteRing) commit(n int) {
	r.widx.Store(r.widx.Load() + uint64(n))
}

// peekAt copies published bytes at the given offset past the read
// cursor without consuming them. Consumer thread only.
func (r *ByteRing) peekAt(off int, dst []byte) {
	r.copyOut(r.ridx.Load()+uint64(off), dst)
}

// peekFunc visits n published bytes at the given offset past the read
// cursor without consuming them; at most two segments. Consumer thread
// only.
func (r *ByteRing) peekFunc(off, n int, fn Visitor) {
	pos := (r.ridx.Load() + uint64(off)) & r.mask
	first := r.size - pos
	if first > uint64(n) {
		first = uint64(n)
	}
	fn(r.buf[pos : pos+first])
	if uint64(n) > first {
		fn(r.buf[:uint64(n)-first])
	}
}

// release consumes n bytes in one cursor step. Consumer thread only.
func (r *ByteRing) release(n int) {
	r.ridx.Store(r.ridx.Load() + uint64(n))
}

func (r *ByteRing) copyIn(start uint64, p []byte) {
	pos := start & r.mask
	n := uint64(len(p))
	first := r.size - pos
	if first >= n {
		copy(r.buf[pos:pos+n], p)
		return
	}
	copy(r.buf[pos:], p[:first])
	copy(r.buf, p[first:])
}

func (r *ByteRing) copyOut(start uint64, dst []byte) {
	pos := start & r.mask
	n := uint64(len(dst))
	first := r.size - pos
	if first >= n {
		copy(dst, r.buf[pos:pos+n])
		return
	}
	copy(dst, r.buf[pos:])
	copy(dst[first:], r.buf[:n-first])
}
