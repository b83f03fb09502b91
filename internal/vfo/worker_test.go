// ABOUTME: Tests for the per-VFO batch worker
// ABOUTME: Tests FIFO emission, clear semantics, levels, and failure events
package vfo

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/GroundLink-Project/groundlink-go/internal/audio"
)

func monoBatch(vfoNum int, samples ...float32) audio.SampleBatch {
	return audio.SampleBatch{VFO: vfoNum, SampleRate: 48000, Channels: 1, Samples: samples}
}

func rampSamples(start float32, n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = start + float32(i)*0.0001
	}
	return s
}

func TestWorkerEmitsFIFO(t *testing.T) {
	ready := make(chan Ready, 16)
	failures := make(chan Failure, 16)
	w := New(1, 5, ready, failures)
	defer w.Terminate()

	// 3 batches of 10ms each, each above the 5ms threshold
	var want []float32
	for i := 0; i < 3; i++ {
		samples := rampSamples(float32(i), 480)
		want = append(want, samples...)
		w.Submit(monoBatch(1, samples...))
	}

	var got []float32
	deadline := time.After(2 * time.Second)
	for len(got) < len(want) {
		select {
		case r := <-ready:
			if r.VFO != 1 {
				t.Fatalf("expected VFO 1, got %d", r.VFO)
			}
			got = append(got, r.Batch.Samples...)
		case <-deadline:
			t.Fatalf("timed out, got %d of %d samples", len(got), len(want))
		}
	}

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d out of order: expected %f, got %f", i, want[i], got[i])
		}
	}
}

func TestWorkerTickerDrainsPartialBatch(t *testing.T) {
	ready := make(chan Ready, 4)
	failures := make(chan Failure, 4)
	w := New(2, 100, ready, failures)
	defer w.Terminate()

	// 10ms of audio, well below the 100ms threshold
	w.Submit(monoBatch(2, rampSamples(0.1, 480)...))

	select {
	case r := <-ready:
		if len(r.Batch.Samples) != 480 {
			t.Errorf("expected 480 samples, got %d", len(r.Batch.Samples))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("partial batch never drained")
	}
}

func TestClearDiscardsInFlight(t *testing.T) {
	ready := make(chan Ready, 32)
	failures := make(chan Failure, 32)

	// Large threshold so nothing is emitted before the clear
	w := New(3, 500, ready, failures)
	defer w.Terminate()

	for i := 0; i < 10; i++ {
		w.Submit(monoBatch(3, rampSamples(0, 480)...)) // 10ms each
	}
	w.Clear()

	// Wait past at least one ticker interval
	select {
	case r := <-ready:
		t.Fatalf("stale batch emitted after clear: %d samples", len(r.Batch.Samples))
	case <-time.After(700 * time.Millisecond):
	}
}

func TestWorkerLevelCached(t *testing.T) {
	ready := make(chan Ready, 4)
	failures := make(chan Failure, 4)
	w := New(1, 5, ready, failures)
	defer w.Terminate()

	if w.Level() != 0 {
		t.Errorf("expected initial level 0, got %f", w.Level())
	}

	samples := make([]float32, 480)
	for i := range samples {
		samples[i] = 0.5
	}
	w.Submit(monoBatch(1, samples...))

	select {
	case r := <-ready:
		if math.Abs(r.Level-0.5) > 1e-6 {
			t.Errorf("expected ready level 0.5, got %f", r.Level)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no batch emitted")
	}

	if math.Abs(w.Level()-0.5) > 1e-6 {
		t.Errorf("expected cached level 0.5, got %f", w.Level())
	}
}

func TestWorkerReportsMalformedBatch(t *testing.T) {
	ready := make(chan Ready, 4)
	failures := make(chan Failure, 4)
	w := New(2, 5, ready, failures)
	defer w.Terminate()

	w.Submit(audio.SampleBatch{VFO: 2, SampleRate: 0, Channels: 1, Samples: []float32{0.1}})

	select {
	case f := <-failures:
		if f.VFO != 2 {
			t.Errorf("expected failure for VFO 2, got %d", f.VFO)
		}
		if !errors.Is(f.Err, audio.ErrBadRate) {
			t.Errorf("expected ErrBadRate, got %v", f.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no failure reported")
	}

	// Worker keeps running after a failure
	w.Submit(monoBatch(2, rampSamples(0, 480)...))
	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("worker stopped emitting after failure")
	}
}

func TestWorkerFormatChangeSplitsBatch(t *testing.T) {
	ready := make(chan Ready, 8)
	failures := make(chan Failure, 8)
	w := New(1, 500, ready, failures)
	defer w.Terminate()

	w.Submit(monoBatch(1, rampSamples(0, 480)...))
	w.Submit(audio.SampleBatch{VFO: 1, SampleRate: 24000, Channels: 1, Samples: rampSamples(0, 240)})

	// The rate change must flush the 48kHz audio as its own batch
	select {
	case r := <-ready:
		if r.Batch.SampleRate != 48000 {
			t.Errorf("expected 48kHz batch first, got %dHz", r.Batch.SampleRate)
		}
		if len(r.Batch.Samples) != 480 {
			t.Errorf("expected 480 samples, got %d", len(r.Batch.Samples))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("format change did not flush pending batch")
	}
}

func TestTerminateStopsEmission(t *testing.T) {
	ready := make(chan Ready, 4)
	failures := make(chan Failure, 4)
	w := New(4, 5, ready, failures)

	w.Terminate()
	w.Terminate() // safe to call twice

	w.Submit(monoBatch(4, rampSamples(0, 480)...))
	select {
	case <-ready:
		t.Fatal("terminated worker emitted a batch")
	case <-time.After(100 * time.Millisecond):
	}
}
