// ABOUTME: Monotonic playback clock abstraction
// ABOUTME: Lets tests simulate stalls without real-time waits
package player

import "time"

// Clock is the shared output clock all scheduling decisions read. The
// production implementation is the mixer's render cursor (frames handed
// to the output device divided by the sample rate); tests inject a fake.
type Clock interface {
	// Now returns the current playback time in seconds. Monotonic.
	Now() float64
}

// wallClock is a monotonic wall-time clock, used when no sink provides a
// device clock.
type wallClock struct {
	start time.Time
}

// NewWallClock returns a Clock backed by monotonic wall time
func NewWallClock() Clock {
	return &wallClock{start: time.Now()}
}

func (c *wallClock) Now() float64 {
	return time.Since(c.start).Seconds()
}
