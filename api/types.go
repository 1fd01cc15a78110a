// File: api/types.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Core data model: periods of multichannel sampled data.

package api

// DefaultSampleBytes is the assumed width of one sample when a component
// is not configured otherwise (16-bit PCM).
const DefaultSampleBytes = 2

// PeriodHeader describes one period of multichannel data: the frame
// index of the first sample, the payload size of each channel in bytes,
// and the number of channels. The payload follows the header as
// NChannels contiguous blocks of NBytes bytes, in channel order.
type PeriodHeader struct {
	// Time is the frame index of the first sample in the period, in
	// the producer's own sample-count domain.
	Time uint64
	// NBytes is the payload size per channel, in bytes.
	NBytes uint32
	// NChannels is the number of channel payloads in the period.
	NChannels uint32
}

// Frames returns the number of frames in the period given a sample
// width in bytes.
func (h PeriodHeader) Frames(sampleBytes int) uint32 {
	if sampleBytes <= 0 {
		sampleBytes = DefaultSampleBytes
	}
	return h.NBytes / uint32(sampleBytes)
}

// Period is one drained period handed to a Sink. Channel slices alias
// scratch storage owned by the caller and are valid only for the
// duration of the Write call; a Sink must copy anything it keeps.
type Period struct {
	Header   PeriodHeader
	Channels [][]byte
}
