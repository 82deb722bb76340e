// ABOUTME: Audio output interface definition
// ABOUTME: Common Device and Factory contracts for playback backends
package output

import (
	"errors"
	"fmt"
	"time"

	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
)

// ErrReleased is returned by Write once the device has been released
var ErrReleased = errors.New("output: device released")

// ErrWriteTimeout is returned by Write when the buffer stayed full for the
// device's WriteTimeout
var ErrWriteTimeout = errors.New("output: write timed out, device not draining")

// Device is a streaming PCM sink
type Device interface {
	// Write queues PCM for playback, blocking while the device buffer is full
	Write(p []byte) (int, error)

	Play() error
	Pause() error

	// Flush discards queued audio that has not been played yet
	Flush() error

	Stop() error
	Release() error

	// SetVolume sets the device gain (0..1)
	SetVolume(gain float64) error

	// PlaybackHead returns the number of frames played so far. It never decreases.
	PlaybackHead() int64
}

// DeviceConfig describes the device to build
type DeviceConfig struct {
	SampleRate int
	BufferSize int // bytes
	Usage      audio.Usage

	// WriteTimeout bounds each wait for buffer space. Zero waits forever.
	WriteTimeout time.Duration
}

// Factory builds devices for one backend
type Factory interface {
	Name() string

	// MinBufferSize returns the smallest workable buffer in bytes for sampleRate
	MinBufferSize(sampleRate int) int

	Open(config DeviceConfig) (Device, error)
}

// GainFunc returns an extra attenuation (0..1) for devices of the given usage.
// Backends multiply it with the device gain.
type GainFunc func(usage audio.Usage) float64

// NewFactory returns the backend registered under name
func NewFactory(name string, gain GainFunc) (Factory, error) {
	switch name {
	case "", "oto":
		return NewOto(gain), nil
	case "portaudio":
		return NewPortAudio(gain), nil
	case "null":
		return NewNull(gain), nil
	default:
		return nil, fmt.Errorf("unknown output backend: %s", name)
	}
}

// minBufferSize is 100ms of audio, the floor every backend shares
func minBufferSize(sampleRate int) int {
	return audio.OneSecond(audio.NormalizeSampleRate(sampleRate)) / 10
}

// clampGain limits gain to [0, 1]
func clampGain(gain float64) float64 {
	if gain < 0 {
		return 0
	}
	if gain > 1 {
		return 1
	}
	return gain
}

// applyGain scales 16-bit little-endian samples in place
func applyGain(p []byte, gain float64) {
	if gain >= 1 {
		return
	}

	for i := 0; i+1 < len(p); i += 2 {
		s := int16(uint16(p[i]) | uint16(p[i+1])<<8)
		scaled := audio.ClampInt16(float64(s) * gain)
		p[i] = byte(scaled)
		p[i+1] = byte(uint16(scaled) >> 8)
	}
}

// effectiveGain combines the device gain with the mixer attenuation
func effectiveGain(deviceGain float64, fn GainFunc, usage audio.Usage) float64 {
	if fn == nil {
		return deviceGain
	}
	return deviceGain * clampGain(fn(usage))
}
