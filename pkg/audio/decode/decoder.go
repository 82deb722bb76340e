// ABOUTME: Chunk decoder interface and constructors
// ABOUTME: Selects a PCM or Opus decoder by codec name
package decode

import (
	"encoding/base64"
	"fmt"

	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
)

// Codec names accepted on the wire
const (
	CodecPCM  = "pcm"
	CodecOpus = "opus"
)

// Decoder decodes one encoded payload to mono int16 samples
type Decoder interface {
	Decode(data []byte) ([]int16, error)

	// Close releases decoder resources
	Close() error
}

// New returns the decoder for codec at sampleRate
func New(codec string, sampleRate int) (Decoder, error) {
	switch codec {
	case "", CodecPCM:
		return NewPCM(), nil
	case CodecOpus:
		return NewOpus(sampleRate)
	default:
		return nil, fmt.Errorf("unsupported codec: %s", codec)
	}
}

// PCMDecoder passes 16-bit little-endian PCM through
type PCMDecoder struct{}

// NewPCM creates a PCM decoder
func NewPCM() *PCMDecoder {
	return &PCMDecoder{}
}

// Decode converts PCM bytes to samples. A trailing odd byte is ignored.
func (d *PCMDecoder) Decode(data []byte) ([]int16, error) {
	return audio.DecodeInt16LE(data), nil
}

func (d *PCMDecoder) Close() error {
	return nil
}

// Base64PCM decodes a base64 PCM chunk as sent by JSON clients
func Base64PCM(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 audio: %w", err)
	}
	return data, nil
}
