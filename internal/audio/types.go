// ABOUTME: Audio sample types for VFO playback
// ABOUTME: Defines inbound sample batches and de-interleaved playable buffers
package audio

import (
	"errors"
	"fmt"
)

const (
	// VFO numbers are a protocol-level constant: four independent
	// receiver channels per station.
	MinVFO = 1
	MaxVFO = 4
)

var (
	ErrBadVFO      = errors.New("vfo number out of range")
	ErrBadRate     = errors.New("invalid sample rate")
	ErrBadChannels = errors.New("invalid channel count")
)

// SampleBatch is one network-delivered chunk of demodulated PCM for a VFO.
// Stereo batches are interleaved (L0,R0,L1,R1,...).
type SampleBatch struct {
	VFO        int
	SampleRate int
	Channels   int // 1 = mono, 2 = stereo
	Samples    []float32
}

// Validate checks the batch header fields
func (b SampleBatch) Validate() error {
	if b.VFO < MinVFO || b.VFO > MaxVFO {
		return fmt.Errorf("%w: %d", ErrBadVFO, b.VFO)
	}
	if b.SampleRate <= 0 {
		return fmt.Errorf("%w: %d", ErrBadRate, b.SampleRate)
	}
	if b.Channels != 1 && b.Channels != 2 {
		return fmt.Errorf("%w: %d", ErrBadChannels, b.Channels)
	}
	return nil
}

// Frames returns the number of sample frames in the batch.
// A trailing unmatched stereo sample does not count as a frame.
func (b SampleBatch) Frames() int {
	if b.Channels == 2 {
		return len(b.Samples) / 2
	}
	return len(b.Samples)
}

// Duration returns the batch playback duration in seconds
func (b SampleBatch) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// PCMBuffer is a de-interleaved buffer ready for hardware scheduling.
// Right is nil for mono buffers.
type PCMBuffer struct {
	SampleRate int
	Left       []float32
	Right      []float32
}

// Frames returns the number of sample frames in the buffer
func (p *PCMBuffer) Frames() int {
	return len(p.Left)
}

// Duration returns the buffer playback duration in seconds
func (p *PCMBuffer) Duration() float64 {
	if p.SampleRate <= 0 {
		return 0
	}
	return float64(p.Frames()) / float64(p.SampleRate)
}

// Deinterleave converts a sample batch into per-channel planes.
// Even indices go to the left plane, odd indices to the right; a trailing
// unmatched sample in an odd-length stereo batch is dropped. Mono batches
// pass through as a single plane.
func Deinterleave(b SampleBatch) (*PCMBuffer, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	if b.Channels == 1 {
		left := make([]float32, len(b.Samples))
		copy(left, b.Samples)
		return &PCMBuffer{SampleRate: b.SampleRate, Left: left}, nil
	}

	frames := len(b.Samples) / 2
	left := make([]float32, frames)
	right := make([]float32, frames)

	for i := 0; i < frames; i++ {
		left[i] = b.Samples[i*2]
		right[i] = b.Samples[i*2+1]
	}

	return &PCMBuffer{SampleRate: b.SampleRate, Left: left, Right: right}, nil
}

// SampleToInt16 converts a float32 sample in [-1,1] to int16 with clamping
func SampleToInt16(sample float32) int16 {
	if sample > 1.0 {
		sample = 1.0
	} else if sample < -1.0 {
		sample = -1.0
	}
	return int16(sample * 32767.0)
}
