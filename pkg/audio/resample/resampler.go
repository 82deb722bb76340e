// ABOUTME: Streaming linear resampler for mono 16-bit audio
// ABOUTME: Used by output backends and file sources to match device sample rates
package resample

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	ratio      float64
	position   float64
	last       int16
	hasLast    bool
}

// New creates a new resampler
func New(inputRate, outputRate int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		ratio:      float64(inputRate) / float64(outputRate),
	}
}

// InputRate returns the source sample rate
func (r *Resampler) InputRate() int { return r.inputRate }

// OutputRate returns the target sample rate
func (r *Resampler) OutputRate() int { return r.outputRate }

// Passthrough reports whether the rates match
func (r *Resampler) Passthrough() bool {
	return r.inputRate == r.outputRate
}

// Resample converts input to the output rate. The final input sample is held
// back as the left edge of the next call's first interpolation.
func (r *Resampler) Resample(input []int16) []int16 {
	if len(input) == 0 {
		return nil
	}
	if r.Passthrough() {
		out := make([]int16, len(input))
		copy(out, input)
		return out
	}

	// Stitch the carried sample in front of this chunk
	seq := input
	if r.hasLast {
		seq = make([]int16, 0, len(input)+1)
		seq = append(seq, r.last)
		seq = append(seq, input...)
	}

	out := make([]int16, 0, r.OutputSamplesNeeded(len(seq)))
	for {
		idx := int(r.position)
		if idx+1 >= len(seq) {
			break
		}

		frac := r.position - float64(idx)
		s1 := float64(seq[idx])
		s2 := float64(seq[idx+1])
		out = append(out, int16(s1*(1.0-frac)+s2*frac))

		r.position += r.ratio
	}

	// Rebase position onto the carried sample
	r.position -= float64(len(seq) - 1)
	if r.position < 0 {
		r.position = 0
	}
	r.last = seq[len(seq)-1]
	r.hasLast = true

	return out
}

// Reset clears carried state
func (r *Resampler) Reset() {
	r.position = 0
	r.last = 0
	r.hasLast = false
}

// OutputSamplesNeeded estimates how many output samples inputSamples produce
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	return int(float64(inputSamples)/r.ratio) + 1
}

// InputSamplesNeeded estimates how many input samples produce outputSamples
func (r *Resampler) InputSamplesNeeded(outputSamples int) int {
	return int(float64(outputSamples) * r.ratio)
}
