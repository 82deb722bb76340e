// ABOUTME: Opus chunk decoder
// ABOUTME: Decodes mono Opus packets to int16 samples
package decode

import (
	"fmt"

	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// maxOpusFrame is 120ms at 48kHz, the largest frame Opus produces
const maxOpusFrame = 5760

// OpusDecoder decodes mono Opus packets
type OpusDecoder struct {
	decoder    *opus.Decoder
	sampleRate int
	pcm        []int16
}

// NewOpus creates an Opus decoder. Opus only supports 8, 12, 16, 24 and 48kHz.
func NewOpus(sampleRate int) (*OpusDecoder, error) {
	sampleRate = audio.NormalizeSampleRate(sampleRate)

	dec, err := opus.NewDecoder(sampleRate, audio.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &OpusDecoder{
		decoder:    dec,
		sampleRate: sampleRate,
		pcm:        make([]int16, maxOpusFrame),
	}, nil
}

// Decode converts one Opus packet to samples
func (d *OpusDecoder) Decode(data []byte) ([]int16, error) {
	n, err := d.decoder.Decode(data, d.pcm)
	if err != nil {
		return nil, fmt.Errorf("opus decode failed: %w", err)
	}

	out := make([]int16, n)
	copy(out, d.pcm[:n])
	return out, nil
}

// SampleRate returns the decoder output rate
func (d *OpusDecoder) SampleRate() int {
	return d.sampleRate
}

func (d *OpusDecoder) Close() error {
	return nil
}
