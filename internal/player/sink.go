// ABOUTME: Output sink abstraction for scheduled per-VFO playback
// ABOUTME: Production implementation is the sample-clock mixer
package player

import "github.com/GroundLink-Project/groundlink-go/internal/audio"

// Sink renders scheduled buffers. Each VFO owns its own timeline and gain
// within the sink; no call for one VFO may disturb another's schedule.
type Sink interface {
	// ScheduleAt schedules buf to begin playing at time when (seconds on
	// the sink's clock). Fire-and-forget: the sink owns buf afterwards.
	ScheduleAt(vfoNum int, buf *audio.PCMBuffer, when float64) error

	// SetGain sets the VFO's output gain [0,1]. Takes effect immediately,
	// including for audio already scheduled.
	SetGain(vfoNum int, gain float64)

	// Flush drops the VFO's scheduled audio from time at onward and
	// truncates anything playing across it.
	Flush(vfoNum int, at float64)

	// Close releases the output device
	Close() error
}
