// ABOUTME: Test tone generator for the station simulator
// ABOUTME: Generates a distinct sine tone per VFO
package server

import (
	"math"
	"sync"
)

// vfoFrequencies gives each simulated VFO a distinguishable pitch
var vfoFrequencies = []float64{0, 440.0, 550.0, 660.0, 880.0}

// ToneSource generates a continuous mono sine wave for one VFO
type ToneSource struct {
	mu          sync.Mutex
	frequency   float64
	sampleRate  int
	sampleIndex uint64
	amplitude   float64
}

// NewToneSource creates a tone source for the given VFO
func NewToneSource(vfoNum, sampleRate int) *ToneSource {
	freq := 440.0
	if vfoNum >= 1 && vfoNum < len(vfoFrequencies) {
		freq = vfoFrequencies[vfoNum]
	}

	return &ToneSource{
		frequency:  freq,
		sampleRate: sampleRate,
		amplitude:  0.5,
	}
}

// Fill writes the next block of samples, continuous across calls
func (s *ToneSource) Fill(samples []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range samples {
		t := float64(s.sampleIndex+uint64(i)) / float64(s.sampleRate)
		samples[i] = float32(math.Sin(2*math.Pi*s.frequency*t) * s.amplitude)
	}

	s.sampleIndex += uint64(len(samples))
}

// Frequency returns the tone frequency in Hz
func (s *ToneSource) Frequency() float64 {
	return s.frequency
}
