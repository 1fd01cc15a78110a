// File: writer/buffered.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// BufferedWriter moves periods from the real-time producer into a
// PeriodRing and drains them to an api.Sink on a dedicated goroutine.
//
// Locking discipline: the mutex guards flags and the close-request
// queue only. It is never held across ring copies or sink I/O, so the
// producer's brief signalling sections cannot invert priority with disk
// latency. The ready flag is coalesced: any number of DataReady calls
// before the consumer wakes behave as one.

package writer

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-rec/affinity"
	"github.com/momentics/hioload-rec/api"
	"github.com/momentics/hioload-rec/control"
	"github.com/momentics/hioload-rec/ring"
)

const (
	stateStopped int32 = iota
	stateRunning
)

// DefaultBufferFrames is the initial per-channel buffer capacity.
const DefaultBufferFrames = 4096

// BufferedWriter implements api.DataThread over a PeriodRing and a
// storage sink. Exactly one producer thread may use the data-path
// methods; the writer runs exactly one consumer goroutine.
type BufferedWriter struct {
	mu        sync.Mutex
	cond      *sync.Cond // work available: ready|xrun|stop
	drained   *sync.Cond // consumer reports an empty ring
	ready     bool
	xrunFlag  bool
	stopReq   bool
	closeReqs *queue.Queue // pending CloseEntry frame indices, FIFO

	rg        atomic.Pointer[ring.PeriodRing]
	nchannels atomic.Uint32
	state     atomic.Int32

	sink        api.Sink
	tb          api.Timebase
	log         zerolog.Logger
	metrics     *control.Metrics
	sampleBytes int
	bufFrames   uint32
	cpu         int

	done chan struct{}

	// consumer-thread state; touched only by the consumer goroutine
	scratch   []byte
	channels  [][]byte
	chanBytes []uint64
	entryEnd  uint64 // one past the last frame forwarded to the sink
}

var _ api.DataThread = (*BufferedWriter)(nil)

// New creates a stopped BufferedWriter that owns sink for their shared
// lifetime. A failure to allocate or pin the ring's memory is fatal at
// construction and returned as an error.
func New(sink api.Sink, opts ...Option) (*BufferedWriter, error) {
	w := &BufferedWriter{
		sink:        sink,
		log:         zerolog.Nop(),
		metrics:     control.NewMetrics(),
		sampleBytes: api.DefaultSampleBytes,
		bufFrames:   DefaultBufferFrames,
		cpu:         -1,
		closeReqs:   queue.New(),
	}
	w.nchannels.Store(1)
	for _, opt := range opts {
		opt(w)
	}
	w.cond = sync.NewCond(&w.mu)
	w.drained = sync.NewCond(&w.mu)

	pr, err := ring.NewPeriodRing(w.ringBytes(w.bufFrames, w.nchannels.Load()))
	if err != nil {
		return nil, err
	}
	w.rg.Store(pr)
	sink.SetTimebase(w.tb)
	return w, nil
}

// Metrics returns the writer's counter set.
func (w *BufferedWriter) Metrics() *control.Metrics { return w.metrics }

func (w *BufferedWriter) ringBytes(nframes, nchannels uint32) int {
	return int(nframes) * int(nchannels) * w.sampleBytes
}

// Start spawns the consumer goroutine.
func (w *BufferedWriter) Start() error {
	if !w.state.CompareAndSwap(stateStopped, stateRunning) {
		return api.ErrAlreadyRunning
	}
	w.mu.Lock()
	w.ready = false
	w.xrunFlag = false
	w.stopReq = false
	w.mu.Unlock()
	w.done = make(chan struct{})
	go w.run()
	return nil
}

// Stop asks the consumer to exit after a final drain. Non-blocking.
func (w *BufferedWriter) Stop() {
	w.mu.Lock()
	w.stopReq = true
	w.cond.Broadcast()
	w.mu.Unlock()
}

// Join blocks until the consumer goroutine has exited.
func (w *BufferedWriter) Join() {
	if w.done == nil {
		return
	}
	<-w.done
}

// Push admits one period. data holds hdr.NChannels contiguous blocks of
// hdr.NBytes bytes. Returns frames admitted; 0 means the ring had no
// room for a whole period and the data was dropped. Never blocks and
// takes no locks. Producer thread only.
func (w *BufferedWriter) Push(data []byte, hdr api.PeriodHeader) uint32 {
	nb := int(hdr.NBytes)
	nch := int(hdr.NChannels)
	if len(data) < nb*nch {
		panic("writer: push payload shorter than period descriptor")
	}
	frames := hdr.Frames(w.sampleBytes)
	rg := w.rg.Load()
	if rg.Reserve(hdr.Time, nb, nch) == 0 {
		w.metrics.FramesDropped.Add(uint64(frames))
		return 0
	}
	for i := 0; i < nch; i++ {
		rg.PushChannel(data[i*nb : (i+1)*nb])
	}
	return frames
}

// WriteSpace reports how many complete periods of nframes frames (at
// the configured channel count) can currently be admitted. Wait-free.
func (w *BufferedWriter) WriteSpace(nframes uint32) uint32 {
	if nframes == 0 {
		return 0
	}
	chunk := ring.HeaderSize + int(nframes)*w.sampleBytes*int(w.nchannels.Load())
	return uint32(w.rg.Load().WriteSpace() / chunk)
}

// DataReady wakes the consumer. Coalesced: multiple calls before the
// consumer wakes have the same effect as one.
func (w *BufferedWriter) DataReady() {
	w.mu.Lock()
	w.ready = true
	w.cond.Broadcast()
	w.mu.Unlock()
}

// Xrun records that an overrun occurred since the last drain. The
// consumer observes the flag exactly once per occurrence and applies
// the entry-split policy.
func (w *BufferedWriter) Xrun() {
	w.mu.Lock()
	w.xrunFlag = true
	w.cond.Broadcast()
	w.mu.Unlock()
}

// CloseEntry asks the consumer to close the current entry once every
// channel has produced data up to (or past) frame.
func (w *BufferedWriter) CloseEntry(frame uint64) {
	w.mu.Lock()
	w.closeReqs.Add(frame)
	w.ready = true
	w.cond.Broadcast()
	w.mu.Unlock()
}

// ResizeBuffer enlarges the ring to hold at least nframes frames of
// nchannels channels; it never shrinks. When the writer is running it
// blocks until the consumer has drained the ring to empty, which can
// take arbitrarily long if production continues; callers must invoke it
// only from setup or otherwise quiescent periods, never from the
// real-time producer thread. Returns the capacity in frames afterwards.
func (w *BufferedWriter) ResizeBuffer(nframes, nchannels uint32) uint32 {
	if nchannels == 0 {
		nchannels = 1
	}
	target := w.ringBytes(nframes, nchannels)
	frameBytes := w.sampleBytes * int(nchannels)

	w.mu.Lock()
	cur := w.rg.Load()
	if target <= cur.Capacity() {
		w.nchannels.Store(nchannels)
		w.mu.Unlock()
		return uint32(cur.Capacity() / frameBytes)
	}
	if w.state.Load() == stateRunning {
		for w.rg.Load().ReadSpace() != 0 {
			w.ready = true
			w.cond.Broadcast()
			w.drained.Wait()
		}
	}
	pr, err := ring.NewPeriodRing(target)
	if err != nil {
		w.mu.Unlock()
		// Matches the construction-time contract: the system cannot run
		// without its memory guarantees.
		panic("writer: resize failed to allocate pinned buffer: " + err.Error())
	}
	old := w.rg.Load()
	// When the writer is stopped the old ring may still hold admitted
	// periods; committed chunks are contiguous bytes, so they carry
	// over verbatim. In the running path the ring is already empty.
	old.TransferTo(pr)
	w.rg.Store(pr)
	w.nchannels.Store(nchannels)
	w.bufFrames = nframes
	w.mu.Unlock()

	if err := old.Close(); err != nil {
		w.log.Warn().Err(err).Msg("resize: releasing old ring")
	}
	w.log.Info().
		Uint32("frames", nframes).
		Uint32("channels", nchannels).
		Int("bytes", pr.Capacity()).
		Msg("buffer resized")
	return uint32(pr.Capacity() / frameBytes)
}

// run is the consumer loop: sleep until signalled, drain everything,
// report drained, repeat. On stop it performs one final drain so that
// already-admitted data is never silently lost.
func (w *BufferedWriter) run() {
	if w.cpu >= 0 {
		runtime.LockOSThread()
		if err := affinity.SetAffinity(w.cpu); err != nil {
			w.log.Warn().Err(err).Int("cpu", w.cpu).Msg("consumer thread not pinned")
		}
	}
	for {
		w.mu.Lock()
		for !w.ready && !w.xrunFlag && !w.stopReq {
			w.cond.Wait()
		}
		doXrun := w.xrunFlag
		w.xrunFlag = false
		w.ready = false
		stop := w.stopReq
		w.mu.Unlock()

		w.drain(doXrun)

		w.mu.Lock()
		if w.rg.Load().ReadSpace() == 0 {
			w.drained.Broadcast()
		}
		w.mu.Unlock()

		if stop {
			break
		}
	}
	if w.sink.Ready() {
		w.closeCurrentEntry()
	}
	if err := w.sink.Flush(); err != nil {
		w.log.Error().Err(err).Msg("final flush")
	}
	w.state.Store(stateStopped)
	close(w.done)
}

// drain forwards every complete period to the sink. A failed sink write
// is counted and logged; the ring has already consumed the period, so
// offsets stay consistent and draining continues.
func (w *BufferedWriter) drain(doXrun bool) {
	rg := w.rg.Load()
	if doXrun {
		w.metrics.Xruns.Add(1)
		w.sink.Xrun()
		if w.sink.Ready() {
			// Default overrun policy: end the entry here; the next
			// period opens a fresh one at its own start frame.
			w.closeCurrentEntry()
		}
	}
	wrote := false
	for {
		hdr, ok := rg.Request()
		if !ok {
			break
		}
		w.readPeriod(rg, hdr)
		w.forward(hdr)
		wrote = true
		w.applyCloseRequests()
	}
	w.applyCloseRequests()
	if wrote {
		if err := w.sink.Flush(); err != nil {
			w.log.Error().Err(err).Msg("flush")
		}
	}
}

// readPeriod pops all channels of the current period into scratch
// storage and rebuilds the per-channel slice headers.
func (w *BufferedWriter) readPeriod(rg *ring.PeriodRing, hdr api.PeriodHeader) {
	nb := int(hdr.NBytes)
	nch := int(hdr.NChannels)
	if need := nb * nch; cap(w.scratch) < need {
		w.scratch = make([]byte, need)
	}
	w.channels = w.channels[:0]
	for i := 0; i < nch; i++ {
		dst := w.scratch[i*nb : (i+1)*nb]
		rg.PopChannel(dst)
		w.channels = append(w.channels, dst)
	}
}

func (w *BufferedWriter) forward(hdr api.PeriodHeader) {
	if !w.sink.Ready() {
		if err := w.sink.NewEntry(hdr.Time); err != nil {
			w.metrics.WriteErrors.Add(1)
			w.log.Error().Err(err).Uint64("frame", hdr.Time).Msg("new entry")
			return
		}
		w.metrics.EntriesOpened.Add(1)
		w.chanBytes = w.chanBytes[:0]
	}
	p := api.Period{Header: hdr, Channels: w.channels}
	frames, err := w.sink.Write(&p, 0, 0)
	if err != nil {
		w.metrics.WriteErrors.Add(1)
		w.log.Error().Err(err).Uint64("frame", hdr.Time).Msg("sink write")
		return
	}
	w.metrics.PeriodsWritten.Add(1)
	w.metrics.FramesWritten.Add(uint64(frames))

	nch := int(hdr.NChannels)
	if len(w.chanBytes) < nch {
		w.chanBytes = append(w.chanBytes, make([]uint64, nch-len(w.chanBytes))...)
	}
	for ch := 0; ch < nch; ch++ {
		w.chanBytes[ch] += uint64(hdr.NBytes)
	}
	w.entryEnd = hdr.Time + uint64(hdr.Frames(w.sampleBytes))
}

// entryAligned reports whether every channel of the current entry has
// received the same amount of data and at least one full period.
func (w *BufferedWriter) entryAligned() bool {
	if len(w.chanBytes) == 0 || w.chanBytes[0] == 0 {
		return false
	}
	for _, b := range w.chanBytes[1:] {
		if b != w.chanBytes[0] {
			return false
		}
	}
	return true
}

// applyCloseRequests closes the entry for any queued request whose
// frame has been reached on all channels. The queue is inspected under
// the lock; the actual close (disk I/O) happens outside it.
func (w *BufferedWriter) applyCloseRequests() {
	for {
		w.mu.Lock()
		if w.closeReqs.Length() == 0 {
			w.mu.Unlock()
			return
		}
		frame := w.closeReqs.Peek().(uint64)
		if !w.sink.Ready() {
			// Nothing open; the request is moot.
			w.closeReqs.Remove()
			w.mu.Unlock()
			continue
		}
		if !w.entryAligned() || w.entryEnd < frame {
			w.mu.Unlock()
			return
		}
		w.closeReqs.Remove()
		w.mu.Unlock()
		w.closeCurrentEntry()
	}
}

func (w *BufferedWriter) closeCurrentEntry() {
	if err := w.sink.CloseEntry(); err != nil {
		w.log.Error().Err(err).Msg("close entry")
	}
	w.metrics.EntriesClosed.Add(1)
	w.chanBytes = w.chanBytes[:0]
}
