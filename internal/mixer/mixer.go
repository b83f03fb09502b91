// ABOUTME: Sample-clock mixer rendering per-VFO scheduled segments through oto
// ABOUTME: The render cursor doubles as the playback clock the scheduler reads
package mixer

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"sync"

	"github.com/GroundLink-Project/groundlink-go/internal/audio"
	"github.com/ebitengine/oto/v3"
)

const outputChannels = 2 // device output is stereo; mono VFOs render to both

// segment is one scheduled buffer on a VFO's timeline, positioned in
// device frames. right aliases left for mono audio.
type segment struct {
	start int64
	left  []float32
	right []float32
}

func (s *segment) end() int64 {
	return s.start + int64(len(s.left))
}

// Mixer renders up to four independent VFO timelines into one output
// stream. Each VFO owns its own segment list and gain; the only shared
// state is the render cursor, which is also the hardware clock exposed
// through Now. Safe for concurrent use; the device pulls samples through
// Read on its own goroutine.
type Mixer struct {
	mu     sync.Mutex
	rate   int
	cursor int64
	segs   [audio.MaxVFO + 1][]*segment
	gains  [audio.MaxVFO + 1]float64

	otoCtx *oto.Context
	player *oto.Player
	ready  bool
}

// New creates a mixer rendering at the given device sample rate
func New(rate int) *Mixer {
	m := &Mixer{rate: rate}
	for n := range m.gains {
		m.gains[n] = 1.0
	}
	return m
}

// Open acquires the output device and starts the persistent player pulling
// from the mixer. Waits for the device to become ready; ctx bounds the wait.
func (m *Mixer) Open(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ready {
		return nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   m.rate,
		ChannelCount: outputChannels,
		Format:       oto.FormatSignedInt16LE,
	}

	otoCtx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}

	select {
	case <-readyChan:
	case <-ctx.Done():
		return fmt.Errorf("audio device not ready: %w", ctx.Err())
	}

	m.otoCtx = otoCtx
	m.player = otoCtx.NewPlayer(m)
	m.player.Play()
	m.ready = true

	log.Printf("Audio output initialized: %dHz, %d channels", m.rate, outputChannels)

	return nil
}

// Now returns the playback clock in seconds: frames already handed to the
// device divided by the sample rate.
func (m *Mixer) Now() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.cursor) / float64(m.rate)
}

// ScheduleAt places buf on the VFO's timeline starting at time when.
// Buffers at a different sample rate are resampled to the device rate.
// If when has already been rendered past, the segment is clamped to the
// cursor rather than scheduled in the past.
func (m *Mixer) ScheduleAt(vfoNum int, buf *audio.PCMBuffer, when float64) error {
	if vfoNum < audio.MinVFO || vfoNum > audio.MaxVFO {
		return fmt.Errorf("%w: %d", audio.ErrBadVFO, vfoNum)
	}
	if buf == nil || buf.Frames() == 0 {
		return nil
	}

	left := audio.Resample(buf.Left, buf.SampleRate, m.rate)
	right := left
	if buf.Right != nil {
		right = audio.Resample(buf.Right, buf.SampleRate, m.rate)
	}
	if len(right) != len(left) {
		// Resampling rounds planes independently; trim to the shorter
		if len(right) < len(left) {
			left = left[:len(right)]
		} else {
			right = right[:len(left)]
		}
	}
	if len(left) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	start := int64(when * float64(m.rate))
	if start < m.cursor {
		start = m.cursor
	}

	m.segs[vfoNum] = append(m.segs[vfoNum], &segment{start: start, left: left, right: right})
	return nil
}

// SetGain sets the VFO's gain [0,1], effective on the next rendered frame
// including audio already scheduled.
func (m *Mixer) SetGain(vfoNum int, gain float64) {
	if vfoNum < audio.MinVFO || vfoNum > audio.MaxVFO {
		return
	}
	if gain < 0 {
		gain = 0
	} else if gain > 1 {
		gain = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.gains[vfoNum] = gain
}

// Flush drops the VFO's segments from time at onward, truncating any
// segment playing across it. Other VFO timelines are untouched.
func (m *Mixer) Flush(vfoNum int, at float64) {
	if vfoNum < audio.MinVFO || vfoNum > audio.MaxVFO {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cut := int64(at * float64(m.rate))
	if cut < m.cursor {
		cut = m.cursor
	}

	kept := m.segs[vfoNum][:0]
	for _, seg := range m.segs[vfoNum] {
		switch {
		case seg.start >= cut:
			// Entirely after the cut: drop
		case seg.end() > cut:
			// Straddles the cut: truncate
			n := cut - seg.start
			seg.left = seg.left[:n]
			seg.right = seg.right[:n]
			kept = append(kept, seg)
		default:
			kept = append(kept, seg)
		}
	}
	m.segs[vfoNum] = kept
}

// Read renders the next block of interleaved stereo int16 samples. Gaps in
// a timeline render as silence, so the clock keeps advancing even when no
// audio is scheduled. Implements io.Reader for the oto player.
func (m *Mixer) Read(p []byte) (int, error) {
	frames := len(p) / (outputChannels * 2)
	if frames == 0 {
		return 0, nil
	}

	mixL := make([]float32, frames)
	mixR := make([]float32, frames)

	m.mu.Lock()
	start := m.cursor
	end := start + int64(frames)

	for n := audio.MinVFO; n <= audio.MaxVFO; n++ {
		gain := float32(m.gains[n])
		kept := m.segs[n][:0]

		for _, seg := range m.segs[n] {
			if seg.end() <= start {
				continue // fully rendered, discard
			}
			kept = append(kept, seg)

			if seg.start >= end {
				continue // not yet due
			}

			from := start
			if seg.start > from {
				from = seg.start
			}
			to := end
			if seg.end() < to {
				to = seg.end()
			}

			segOff := from - seg.start
			mixOff := from - start
			for i := int64(0); i < to-from; i++ {
				mixL[mixOff+i] += seg.left[segOff+i] * gain
				mixR[mixOff+i] += seg.right[segOff+i] * gain
			}
		}
		m.segs[n] = kept
	}

	m.cursor = end
	m.mu.Unlock()

	for i := 0; i < frames; i++ {
		l := audio.SampleToInt16(mixL[i])
		r := audio.SampleToInt16(mixR[i])
		binary.LittleEndian.PutUint16(p[i*4:], uint16(l))
		binary.LittleEndian.PutUint16(p[i*4+2:], uint16(r))
	}

	return frames * outputChannels * 2, nil
}

// Close releases the output device
func (m *Mixer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.player != nil {
		m.player.Close()
		m.player = nil
	}
	if m.otoCtx != nil {
		m.otoCtx.Suspend()
		m.otoCtx = nil
	}
	m.ready = false
	return nil
}
