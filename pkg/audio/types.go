// ABOUTME: Audio type definitions
// ABOUTME: Defines the PCM format, usage modes and sample conversion functions
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

const (
	// DefaultSampleRate is used whenever a caller supplies a non-positive rate
	DefaultSampleRate = 24000

	// Channels is fixed: the engine only plays mono audio
	Channels = 1

	// BitDepth is fixed: samples are signed 16-bit little-endian
	BitDepth = 16

	// BytesPerFrame is the size of one mono 16-bit frame
	BytesPerFrame = Channels * BitDepth / 8
)

// Format describes a PCM stream
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// NewFormat returns the mono 16-bit format at sampleRate, substituting
// DefaultSampleRate for non-positive rates
func NewFormat(sampleRate int) Format {
	return Format{
		SampleRate: NormalizeSampleRate(sampleRate),
		Channels:   Channels,
		BitDepth:   BitDepth,
	}
}

// NormalizeSampleRate returns sampleRate, or DefaultSampleRate if it is not positive
func NormalizeSampleRate(sampleRate int) int {
	if sampleRate <= 0 {
		return DefaultSampleRate
	}
	return sampleRate
}

// OneSecond returns the number of bytes in one second of audio at sampleRate
func OneSecond(sampleRate int) int {
	return sampleRate * BytesPerFrame
}

// Frames returns how many whole frames fit in n bytes
func Frames(n int) int {
	return n / BytesPerFrame
}

// Usage is the routing mode an output device is built for
type Usage int

const (
	// UsageMedia is standard media playback routing
	UsageMedia Usage = iota
	// UsageVoiceCommunication routes audio as a voice call
	UsageVoiceCommunication
)

func (u Usage) String() string {
	switch u {
	case UsageMedia:
		return "media"
	case UsageVoiceCommunication:
		return "voice"
	default:
		return fmt.Sprintf("usage(%d)", int(u))
	}
}

// ParseUsage parses "media" or "voice" (case-insensitive). An empty string is media.
func ParseUsage(s string) (Usage, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "media":
		return UsageMedia, nil
	case "voice", "voice_communication", "voicecommunication":
		return UsageVoiceCommunication, nil
	default:
		return UsageMedia, fmt.Errorf("unknown usage: %q", s)
	}
}

// DecodeInt16LE converts little-endian bytes to samples. A trailing odd byte is ignored.
func DecodeInt16LE(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

// EncodeInt16LE converts samples to little-endian bytes
func EncodeInt16LE(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// RMS returns the root mean square amplitude of a 16-bit little-endian buffer.
// Buffers with no complete sample return 0.
func RMS(pcm []byte) float64 {
	count := len(pcm) / 2
	if count == 0 {
		return 0
	}

	var sumSquares float64
	for i := 0; i < count; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
		sumSquares += s * s
	}

	return math.Sqrt(sumSquares / float64(count))
}

// ClampInt16 saturates v to the int16 range
func ClampInt16(v float64) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
