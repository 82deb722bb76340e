// ABOUTME: Sine wave synthesis
// ABOUTME: Generates the fixed-frequency self-test tone as mono 16-bit PCM
package audio

import (
	"math"
	"time"
)

const (
	// TestToneFrequency is the A4 note played by the self-test
	TestToneFrequency = 440.0

	// TestToneAmplitude is the self-test level relative to full scale
	TestToneAmplitude = 0.3

	// TestToneDuration is the length of the self-test tone
	TestToneDuration = time.Second
)

// SineTone synthesizes duration of a sine wave at freq Hz.
// amplitude is relative to full scale (0..1).
func SineTone(sampleRate int, freq, amplitude float64, duration time.Duration) []byte {
	sampleRate = NormalizeSampleRate(sampleRate)
	numSamples := int(int64(sampleRate) * duration.Milliseconds() / 1000)

	samples := make([]int16, numSamples)
	for i := range samples {
		t := float64(i) / float64(sampleRate)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * amplitude * math.MaxInt16)
	}

	return EncodeInt16LE(samples)
}

// TestTone returns the standard self-test tone at sampleRate
func TestTone(sampleRate int) []byte {
	return SineTone(sampleRate, TestToneFrequency, TestToneAmplitude, TestToneDuration)
}
