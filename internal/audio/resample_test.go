// ABOUTME: Tests for the linear resampler
// ABOUTME: Tests rate conversion ratios and pass-through behavior
package audio

import (
	"math"
	"testing"
)

func TestResampleSameRate(t *testing.T) {
	input := []float32{0.1, 0.2, 0.3}
	output := Resample(input, 48000, 48000)

	if len(output) != len(input) {
		t.Fatalf("expected pass-through, got %d samples", len(output))
	}
	for i := range input {
		if output[i] != input[i] {
			t.Errorf("sample %d changed: %f -> %f", i, input[i], output[i])
		}
	}
}

func TestResampleUpsample(t *testing.T) {
	input := make([]float32, 240) // 10ms at 24kHz
	output := Resample(input, 24000, 48000)

	if len(output) != 480 {
		t.Errorf("expected 480 output samples, got %d", len(output))
	}
}

func TestResampleDownsample(t *testing.T) {
	input := make([]float32, 480) // 10ms at 48kHz
	output := Resample(input, 48000, 24000)

	if len(output) != 240 {
		t.Errorf("expected 240 output samples, got %d", len(output))
	}
}

func TestResampleInterpolates(t *testing.T) {
	// Doubling the rate of a ramp should keep it a ramp
	input := []float32{0.0, 0.1, 0.2, 0.3}
	output := Resample(input, 8000, 16000)

	for i := 1; i < len(output); i++ {
		step := float64(output[i] - output[i-1])
		if step < -1e-6 {
			t.Errorf("ramp not monotonic at %d: %f -> %f", i, output[i-1], output[i])
		}
		if math.Abs(step) > 0.06 {
			t.Errorf("step too large at %d: %f", i, step)
		}
	}
}

func TestResampleEmpty(t *testing.T) {
	if out := Resample(nil, 48000, 24000); len(out) != 0 {
		t.Errorf("expected empty output, got %d samples", len(out))
	}
}
