// ABOUTME: Multi-VFO playback engine with continuous gap-free scheduling
// ABOUTME: Routes sample batches to workers and schedules them on the output clock
package player

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/GroundLink-Project/groundlink-go/internal/audio"
	"github.com/GroundLink-Project/groundlink-go/internal/mixer"
	"github.com/GroundLink-Project/groundlink-go/internal/vfo"
)

// AllVFOs selects every channel in flush and query operations
const AllVFOs = 0

const (
	DefaultBatchMs        = 40
	DefaultSampleRate     = 48000
	DefaultMaxBufferAhead = 2.0 // seconds
	DefaultMonitorEvery   = 500 * time.Millisecond
)

// Config holds engine configuration. Clock and Sink are injectable for
// tests; when nil the engine opens a mixer on the output device and uses
// its sample clock.
type Config struct {
	BatchMs        int
	SampleRate     int
	MaxBufferAhead float64
	MonitorEvery   time.Duration
	Clock          Clock
	Sink           Sink
}

// Stats tracks engine counters
type Stats struct {
	Received  int64
	Scheduled int64
	Dropped   int64
	Flushed   int64
}

// State is a diagnostics snapshot of the engine
type State struct {
	Enabled       bool
	ContextState  string
	MasterVolume  float64
	Mutes         [audio.MaxVFO + 1]bool
	Volumes       [audio.MaxVFO + 1]float64
	Levels        [audio.MaxVFO + 1]float64
	BufferedAhead float64
	Stats         Stats
}

// vfoState is the scheduling bookkeeping for one VFO. The nextPlayTime
// cursor is always >= the clock once a scheduling decision has been made.
type vfoState struct {
	nextPlayTime float64
	muted        bool
	volume       float64
}

// Engine converts per-VFO sample batches into gap-free scheduled playback
// with independent mute, volume, and flush per channel.
type Engine struct {
	cfg   Config
	clock Clock
	sink  Sink

	mu       sync.Mutex
	enabled  bool
	master   float64
	states   [audio.MaxVFO + 1]*vfoState
	stats    Stats
	ownsSink bool

	workers  [audio.MaxVFO + 1]*vfo.Worker
	ready    chan vfo.Ready
	failures chan vfo.Failure

	runCtx    context.Context
	runCancel context.CancelFunc
	runDone   chan struct{}
}

// New creates an engine. Call Initialize before submitting audio.
func New(cfg Config) *Engine {
	if cfg.BatchMs <= 0 {
		cfg.BatchMs = DefaultBatchMs
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.MaxBufferAhead <= 0 {
		cfg.MaxBufferAhead = DefaultMaxBufferAhead
	}
	if cfg.MonitorEvery <= 0 {
		cfg.MonitorEvery = DefaultMonitorEvery
	}

	e := &Engine{
		cfg:    cfg,
		master: 1.0,
	}
	for n := audio.MinVFO; n <= audio.MaxVFO; n++ {
		e.states[n] = &vfoState{volume: 1.0}
	}
	return e
}

// Initialize acquires the output device, creates the per-VFO workers, and
// starts the scheduling loop. Idempotent while enabled. A device
// acquisition failure is returned synchronously and leaves the engine
// disabled so the caller can retry.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.enabled {
		return nil
	}

	e.clock = e.cfg.Clock
	e.sink = e.cfg.Sink
	e.ownsSink = false

	if e.sink == nil {
		m := mixer.New(e.cfg.SampleRate)
		if err := m.Open(ctx); err != nil {
			return fmt.Errorf("audio device unavailable: %w", err)
		}
		e.sink = m
		e.ownsSink = true
		if e.clock == nil {
			e.clock = m
		}
	}
	if e.clock == nil {
		e.clock = NewWallClock()
	}

	// Fresh channels per session: anything still buffered from a previous
	// session must not leak into this one.
	e.ready = make(chan vfo.Ready, 16)
	e.failures = make(chan vfo.Failure, 16)

	for n := audio.MinVFO; n <= audio.MaxVFO; n++ {
		e.workers[n] = vfo.New(n, e.cfg.BatchMs, e.ready, e.failures)
		e.states[n] = &vfoState{volume: e.states[n].volume, muted: e.states[n].muted}
		e.applyGainLocked(n)
	}

	e.runCtx, e.runCancel = context.WithCancel(context.Background())
	done := make(chan struct{})
	e.runDone = done
	go func() {
		defer close(done)
		e.run(e.runCtx, e.ready, e.failures)
	}()

	RegisterFlushFunc(e.Flush)
	e.enabled = true

	log.Printf("Audio engine initialized: %dHz, %d VFOs, batch %dms",
		e.cfg.SampleRate, audio.MaxVFO, e.cfg.BatchMs)

	return nil
}

// PlayAudioSamples routes an inbound batch to its VFO's worker.
// Non-blocking; unknown VFO numbers are dropped with a warning.
func (e *Engine) PlayAudioSamples(batch audio.SampleBatch) {
	e.mu.Lock()
	enabled := e.enabled
	if enabled {
		e.stats.Received++
	}
	e.mu.Unlock()

	if !enabled {
		return
	}

	if batch.VFO < audio.MinVFO || batch.VFO > audio.MaxVFO {
		log.Printf("Dropping batch for unknown VFO %d", batch.VFO)
		return
	}

	e.workers[batch.VFO].Submit(batch)
}

// run consumes ready batches and failure events and drives the
// backpressure watchdog. All scheduling decisions happen here.
func (e *Engine) run(ctx context.Context, ready <-chan vfo.Ready, failures <-chan vfo.Failure) {
	monitor := time.NewTicker(e.cfg.MonitorEvery)
	defer monitor.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case r := <-ready:
			e.schedule(r)

		case f := <-failures:
			log.Printf("VFO %d batch failed: %v", f.VFO, f.Err)

		case <-monitor.C:
			e.checkBackpressure()
		}
	}
}

// schedule implements continuous scheduling for one ready batch:
// de-interleave, clamp the cursor forward if the channel fell behind,
// schedule at the cursor, advance the cursor by the buffer duration.
func (e *Engine) schedule(r vfo.Ready) {
	// A clear after emission makes the batch stale
	if r.Gen != e.workers[r.VFO].Generation() {
		return
	}

	buf, err := audio.Deinterleave(r.Batch)
	if err != nil {
		e.mu.Lock()
		e.stats.Dropped++
		e.mu.Unlock()
		log.Printf("VFO %d buffer construction failed: %v", r.VFO, err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Re-check under the lock: Clear bumps the generation before the
	// flush takes e.mu, so a flush completing during de-interleave above
	// is visible here and the pre-flush batch is dropped.
	if r.Gen != e.workers[r.VFO].Generation() {
		return
	}

	st := e.states[r.VFO]
	now := e.clock.Now()

	// Fell behind (stall, suspension): clamp forward. The gap this
	// introduces is the price of bounded catch-up latency.
	if st.nextPlayTime < now {
		st.nextPlayTime = now
	}

	if err := e.sink.ScheduleAt(r.VFO, buf, st.nextPlayTime); err != nil {
		// Drop this batch only; the cursor stays where the last good
		// batch left it.
		e.stats.Dropped++
		log.Printf("VFO %d scheduling failed: %v", r.VFO, err)
		return
	}

	st.nextPlayTime += buf.Duration()
	e.stats.Scheduled++
}

// checkBackpressure flushes any VFO buffered further ahead than the
// ceiling, bounding latency after stalls or producer overrun.
func (e *Engine) checkBackpressure() {
	e.mu.Lock()
	now := e.clock.Now()
	var over []int
	for n := audio.MinVFO; n <= audio.MaxVFO; n++ {
		if e.states[n].nextPlayTime-now > e.cfg.MaxBufferAhead {
			over = append(over, n)
		}
	}
	e.mu.Unlock()

	for _, n := range over {
		log.Printf("VFO %d buffered ahead over %.1fs ceiling, flushing", n, e.cfg.MaxBufferAhead)
		e.Flush(n)
	}
}

// SetMasterVolume sets the master volume [0,1], applied multiplicatively
// to every unmuted VFO immediately.
func (e *Engine) SetMasterVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.master = clampUnit(v)
	for n := audio.MinVFO; n <= audio.MaxVFO; n++ {
		e.applyGainLocked(n)
	}
}

// SetVFOVolume sets one VFO's volume [0,1], effective immediately
func (e *Engine) SetVFOVolume(vfoNum int, v float64) {
	if vfoNum < audio.MinVFO || vfoNum > audio.MaxVFO {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.states[vfoNum].volume = clampUnit(v)
	e.applyGainLocked(vfoNum)
}

// SetVFOMute sets one VFO's mute flag. Muting zeroes the gain but keeps
// batches flowing so unmute is instantaneous; every transition also
// flushes the channel so unmuting never replays a stale backlog.
func (e *Engine) SetVFOMute(vfoNum int, muted bool) {
	if vfoNum < audio.MinVFO || vfoNum > audio.MaxVFO {
		return
	}

	e.mu.Lock()
	if e.states[vfoNum].muted == muted {
		e.mu.Unlock()
		return
	}
	e.states[vfoNum].muted = muted
	e.applyGainLocked(vfoNum)
	e.mu.Unlock()

	e.Flush(vfoNum)
}

// Flush clears the VFO's queued worker data, drops its scheduled audio,
// and resets its cursor to now. AllVFOs flushes every channel. This is
// the cancellation primitive: it never touches other channels.
func (e *Engine) Flush(vfoNum int) {
	e.mu.Lock()
	if !e.enabled {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	if vfoNum == AllVFOs {
		for n := audio.MinVFO; n <= audio.MaxVFO; n++ {
			e.flushOne(n)
		}
		return
	}
	if vfoNum < audio.MinVFO || vfoNum > audio.MaxVFO {
		return
	}
	e.flushOne(vfoNum)
}

func (e *Engine) flushOne(vfoNum int) {
	e.workers[vfoNum].Clear()

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	e.states[vfoNum].nextPlayTime = now
	e.sink.Flush(vfoNum, now)
	e.stats.Flushed++
}

// BufferedAhead returns how far ahead of the clock the VFO's schedule
// extends, in seconds. AllVFOs returns the maximum across channels.
func (e *Engine) BufferedAhead(vfoNum int) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.enabled {
		return 0
	}

	now := e.clock.Now()
	ahead := func(n int) float64 {
		d := e.states[n].nextPlayTime - now
		if d < 0 {
			return 0
		}
		return d
	}

	if vfoNum == AllVFOs {
		max := 0.0
		for n := audio.MinVFO; n <= audio.MaxVFO; n++ {
			if a := ahead(n); a > max {
				max = a
			}
		}
		return max
	}
	if vfoNum < audio.MinVFO || vfoNum > audio.MaxVFO {
		return 0
	}
	return ahead(vfoNum)
}

// Level returns the last-known RMS level for the VFO's most recent batch
func (e *Engine) Level(vfoNum int) float64 {
	e.mu.Lock()
	enabled := e.enabled
	e.mu.Unlock()

	if !enabled || vfoNum < audio.MinVFO || vfoNum > audio.MaxVFO {
		return 0
	}
	return e.workers[vfoNum].Level()
}

// State returns a diagnostics snapshot
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := State{
		Enabled:      e.enabled,
		ContextState: "stopped",
		MasterVolume: e.master,
		Stats:        e.stats,
	}
	if e.enabled {
		s.ContextState = "running"
		now := e.clock.Now()
		for n := audio.MinVFO; n <= audio.MaxVFO; n++ {
			s.Mutes[n] = e.states[n].muted
			s.Volumes[n] = e.states[n].volume
			s.Levels[n] = e.workers[n].Level()
			if a := e.states[n].nextPlayTime - now; a > s.BufferedAhead {
				s.BufferedAhead = a
			}
		}
	} else {
		for n := audio.MinVFO; n <= audio.MaxVFO; n++ {
			s.Mutes[n] = e.states[n].muted
			s.Volumes[n] = e.states[n].volume
		}
	}
	return s
}

// Stop is the full teardown: terminates workers, stops the scheduling
// loop, and releases the output device. Safe to call at any point.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.enabled {
		e.mu.Unlock()
		return
	}
	e.enabled = false
	done := e.runDone
	e.mu.Unlock()

	UnregisterFlushFunc()

	for n := audio.MinVFO; n <= audio.MaxVFO; n++ {
		e.workers[n].Terminate()
	}
	e.runCancel()
	<-done

	if e.ownsSink {
		if err := e.sink.Close(); err != nil {
			log.Printf("Error closing audio output: %v", err)
		}
	}

	log.Printf("Audio engine stopped")
}

// applyGainLocked pushes the effective gain (master x volume, 0 when
// muted) to the sink. Callers hold e.mu.
func (e *Engine) applyGainLocked(vfoNum int) {
	if e.sink == nil {
		return
	}
	st := e.states[vfoNum]
	gain := e.master * st.volume
	if st.muted {
		gain = 0
	}
	e.sink.SetGain(vfoNum, gain)
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
