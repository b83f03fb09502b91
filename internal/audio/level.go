// ABOUTME: RMS audio level measurement for VFO level meters
// ABOUTME: Computes the root-mean-square of a sample block, clamped to [0,1]
package audio

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// RMS returns the root-mean-square level of the samples, clamped to [0,1].
// Samples outside [-1,1] contribute at full scale.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}

	buf := make([]float64, len(samples))
	for i, s := range samples {
		buf[i] = float64(s)
	}

	level := math.Sqrt(floats.Dot(buf, buf) / float64(len(buf)))
	if level > 1.0 {
		level = 1.0
	}
	return level
}
