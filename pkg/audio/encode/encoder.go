// ABOUTME: Encoder interface and PCM encoder
// ABOUTME: Selects a PCM or Opus encoder by codec name
package encode

import (
	"fmt"

	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
)

// Encoder encodes mono int16 samples to a wire payload
type Encoder interface {
	Encode(samples []int16) ([]byte, error)

	// FrameSize is the number of samples Encode expects, or 0 for any
	FrameSize() int

	// Close releases encoder resources
	Close() error
}

// New returns the encoder for codec at sampleRate
func New(codec string, sampleRate int) (Encoder, error) {
	switch codec {
	case "", "pcm":
		return NewPCM(), nil
	case "opus":
		return NewOpus(sampleRate)
	default:
		return nil, fmt.Errorf("unsupported codec: %s", codec)
	}
}

// PCMEncoder writes 16-bit little-endian PCM
type PCMEncoder struct{}

// NewPCM creates a PCM encoder
func NewPCM() *PCMEncoder {
	return &PCMEncoder{}
}

func (e *PCMEncoder) Encode(samples []int16) ([]byte, error) {
	return audio.EncodeInt16LE(samples), nil
}

func (e *PCMEncoder) FrameSize() int { return 0 }

func (e *PCMEncoder) Close() error { return nil }
