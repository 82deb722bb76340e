// ABOUTME: Opus audio encoder
// ABOUTME: Encodes 20ms mono frames to Opus packets
package encode

import (
	"fmt"

	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// maxPacket is the largest Opus packet we allocate for
const maxPacket = 4000

// OpusEncoder encodes mono Opus using the VoIP profile
type OpusEncoder struct {
	encoder   *opus.Encoder
	frameSize int
	buf       []byte
}

// NewOpus creates an Opus encoder. Opus only supports 8, 12, 16, 24 and 48kHz.
func NewOpus(sampleRate int) (*OpusEncoder, error) {
	sampleRate = audio.NormalizeSampleRate(sampleRate)

	encoder, err := opus.NewEncoder(sampleRate, audio.Channels, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	return &OpusEncoder{
		encoder:   encoder,
		frameSize: sampleRate / 50,
		buf:       make([]byte, maxPacket),
	}, nil
}

// Encode converts exactly one frame of samples to an Opus packet
func (e *OpusEncoder) Encode(samples []int16) ([]byte, error) {
	if len(samples) != e.frameSize {
		return nil, fmt.Errorf("opus frame must be %d samples, got %d", e.frameSize, len(samples))
	}

	n, err := e.encoder.Encode(samples, e.buf)
	if err != nil {
		return nil, fmt.Errorf("opus encode error: %w", err)
	}

	out := make([]byte, n)
	copy(out, e.buf[:n])
	return out, nil
}

func (e *OpusEncoder) FrameSize() int { return e.frameSize }

func (e *OpusEncoder) Close() error { return nil }
