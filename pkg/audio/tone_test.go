// ABOUTME: Tests for sine synthesis
// ABOUTME: Verifies test tone length and amplitude
package audio

import (
	"math"
	"testing"
	"time"
)

func TestTestToneLength(t *testing.T) {
	for _, rate := range []int{8000, 24000, 44100, 48000} {
		pcm := TestTone(rate)
		if len(pcm) != OneSecond(rate) {
			t.Errorf("rate %d: expected %d bytes, got %d", rate, OneSecond(rate), len(pcm))
		}
	}
}

func TestTestToneAmplitude(t *testing.T) {
	samples := DecodeInt16LE(TestTone(DefaultSampleRate))

	var peak int16
	for _, s := range samples {
		if s > peak {
			peak = s
		}
	}

	amplitude := TestToneAmplitude
	expectedPeak := int16(amplitude * math.MaxInt16)
	if peak > expectedPeak || peak < expectedPeak-10 {
		t.Errorf("expected peak near %d, got %d", expectedPeak, peak)
	}

	// A sine wave's RMS is peak/sqrt(2)
	rms := RMS(TestTone(DefaultSampleRate))
	expectedRMS := float64(expectedPeak) / math.Sqrt2
	if math.Abs(rms-expectedRMS) > 50 {
		t.Errorf("expected rms near %f, got %f", expectedRMS, rms)
	}
}

func TestSineToneDefaultsRate(t *testing.T) {
	pcm := SineTone(0, 440, 0.5, 500*time.Millisecond)
	if len(pcm) != OneSecond(DefaultSampleRate)/2 {
		t.Errorf("expected half a second at default rate, got %d bytes", len(pcm))
	}
}
