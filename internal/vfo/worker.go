// ABOUTME: Per-VFO batch worker isolating sample accumulation from scheduling
// ABOUTME: Accumulates inbound PCM batches and emits ready batches FIFO
package vfo

import (
	"log"
	"math"
	"sync/atomic"
	"time"

	"github.com/GroundLink-Project/groundlink-go/internal/audio"
)

// Ready is a batch the worker has finished accumulating, pushed to the
// scheduler as it becomes ready. Gen identifies the clear-generation the
// batch belongs to; the scheduler discards batches from older generations.
type Ready struct {
	VFO   int
	Gen   uint32
	Batch audio.SampleBatch
	Level float64
}

// Failure reports a per-batch error from one worker. Failures never cross
// VFO boundaries.
type Failure struct {
	VFO int
	Err error
}

type submission struct {
	gen   uint32
	batch audio.SampleBatch
}

// Worker accumulates inbound sample batches for one VFO off the control
// goroutine and emits ready-to-schedule batches in FIFO order. At most one
// worker exists per VFO.
type Worker struct {
	vfoNum   int
	batchDur time.Duration

	inbox    chan submission
	ready    chan<- Ready
	failures chan<- Failure

	gen     atomic.Uint32
	level   atomic.Uint64 // float64 bits
	dropped atomic.Int64

	done chan struct{}
}

// New creates and starts a worker for one VFO. Ready batches and failures
// are pushed to the supplied channels.
func New(vfoNum, batchMs int, ready chan<- Ready, failures chan<- Failure) *Worker {
	if batchMs < 5 {
		batchMs = 5
	} else if batchMs > 500 {
		batchMs = 500
	}

	w := &Worker{
		vfoNum:   vfoNum,
		batchDur: time.Duration(batchMs) * time.Millisecond,
		inbox:    make(chan submission, 64),
		ready:    ready,
		failures: failures,
		done:     make(chan struct{}),
	}

	go w.run()
	return w
}

// Submit enqueues a batch. Never blocks; if the worker is stalled and its
// inbox is full the batch is dropped and counted.
func (w *Worker) Submit(batch audio.SampleBatch) {
	select {
	case w.inbox <- submission{gen: w.gen.Load(), batch: batch}:
	default:
		if n := w.dropped.Add(1); n%100 == 1 {
			log.Printf("VFO %d worker inbox full, dropped %d batches", w.vfoNum, n)
		}
	}
}

// Clear discards all queued and pending data. Batches submitted before the
// clear are never emitted, even if already sitting in the inbox.
func (w *Worker) Clear() {
	w.gen.Add(1)
}

// Generation returns the current clear-generation
func (w *Worker) Generation() uint32 {
	return w.gen.Load()
}

// Level returns the cached RMS level of the most recently emitted batch
func (w *Worker) Level() float64 {
	return math.Float64frombits(w.level.Load())
}

// Dropped returns the number of batches dropped on submission
func (w *Worker) Dropped() int64 {
	return w.dropped.Load()
}

// Terminate stops the worker. No further submissions are processed.
func (w *Worker) Terminate() {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
}

// run is the worker loop: accumulate submissions until a batch duration's
// worth of audio is pending, then emit. A ticker drains trickling input
// that never reaches the threshold on its own.
func (w *Worker) run() {
	ticker := time.NewTicker(w.batchDur)
	defer ticker.Stop()

	var pending audio.SampleBatch
	var pendingGen uint32

	for {
		select {
		case <-w.done:
			return

		case sub := <-w.inbox:
			if sub.gen != w.gen.Load() {
				continue // submitted before a clear
			}
			if err := sub.batch.Validate(); err != nil {
				w.fail(err)
				continue
			}
			if len(sub.batch.Samples) == 0 {
				continue
			}

			// Format or generation change: emit what we have first
			if len(pending.Samples) > 0 &&
				(pendingGen != sub.gen ||
					pending.SampleRate != sub.batch.SampleRate ||
					pending.Channels != sub.batch.Channels) {
				w.emit(pending, pendingGen)
				pending = audio.SampleBatch{}
			}

			if len(pending.Samples) == 0 {
				pending = audio.SampleBatch{
					VFO:        w.vfoNum,
					SampleRate: sub.batch.SampleRate,
					Channels:   sub.batch.Channels,
				}
				pendingGen = sub.gen
			}
			pending.Samples = append(pending.Samples, sub.batch.Samples...)

			if pending.Duration() >= w.batchDur.Seconds() {
				w.emit(pending, pendingGen)
				pending = audio.SampleBatch{}
			}

		case <-ticker.C:
			if len(pending.Samples) > 0 {
				w.emit(pending, pendingGen)
				pending = audio.SampleBatch{}
			}
		}
	}
}

// emit computes the batch level and pushes it to the scheduler, unless a
// clear happened after the batch was accumulated.
func (w *Worker) emit(batch audio.SampleBatch, gen uint32) {
	if gen != w.gen.Load() {
		return
	}

	w.level.Store(math.Float64bits(audio.RMS(batch.Samples)))

	select {
	case w.ready <- Ready{VFO: w.vfoNum, Gen: gen, Batch: batch, Level: w.Level()}:
	case <-w.done:
	}
}

// fail reports a malformed batch without stopping the worker
func (w *Worker) fail(err error) {
	select {
	case w.failures <- Failure{VFO: w.vfoNum, Err: err}:
	case <-w.done:
	default:
		log.Printf("VFO %d batch error (failure channel full): %v", w.vfoNum, err)
	}
}
