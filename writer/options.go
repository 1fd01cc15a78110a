// File: writer/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package writer

import (
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-rec/api"
	"github.com/momentics/hioload-rec/control"
)

// Option configures a BufferedWriter at construction.
type Option func(*BufferedWriter)

// WithBufferFrames sets the initial buffer capacity in frames per
// channel. Default 4096.
func WithBufferFrames(n uint32) Option {
	return func(w *BufferedWriter) { w.bufFrames = n }
}

// WithChannels sets the expected channel count used for capacity
// accounting. Default 1.
func WithChannels(n uint32) Option {
	return func(w *BufferedWriter) { w.nchannels.Store(n) }
}

// WithSampleBytes sets the sample width in bytes used to convert
// between frames and bytes. Default api.DefaultSampleBytes.
func WithSampleBytes(n int) Option {
	return func(w *BufferedWriter) { w.sampleBytes = n }
}

// WithLogger sets the writer logger; default is a no-op logger.
func WithLogger(l zerolog.Logger) Option {
	return func(w *BufferedWriter) { w.log = l }
}

// WithMetrics attaches a shared metrics set; default is a private one.
func WithMetrics(m *control.Metrics) Option {
	return func(w *BufferedWriter) { w.metrics = m }
}

// WithCPU pins the consumer thread to the given CPU core on supported
// platforms. Default is no pinning.
func WithCPU(cpu int) Option {
	return func(w *BufferedWriter) { w.cpu = cpu }
}

// WithTimebase injects an optional time/rate source, forwarded to the
// sink. The writer tolerates its absence.
func WithTimebase(tb api.Timebase) Option {
	return func(w *BufferedWriter) { w.tb = tb }
}
