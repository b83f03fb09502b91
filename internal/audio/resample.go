// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Converts a sample plane between rates using linear interpolation
package audio

// Resample converts a single sample plane from inputRate to outputRate
// using linear interpolation. Returns the input unchanged when the rates
// already match. Per-batch state is not carried across calls; batches are
// long enough (tens of ms) that boundary error is inaudible.
func Resample(input []float32, inputRate, outputRate int) []float32 {
	if inputRate == outputRate || len(input) == 0 {
		return input
	}

	ratio := float64(inputRate) / float64(outputRate)
	outputFrames := int(float64(len(input)) / ratio)
	if outputFrames == 0 {
		return nil
	}

	output := make([]float32, outputFrames)

	for i := 0; i < outputFrames; i++ {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)

		if idx >= len(input)-1 {
			output[i] = input[len(input)-1]
			continue
		}

		output[i] = float32(float64(input[idx])*(1.0-frac) + float64(input[idx+1])*frac)
	}

	return output
}
