// ABOUTME: Audio file sources
// ABOUTME: Reads MP3, FLAC and raw PCM files as mono 16-bit samples
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
)

// Source provides mono 16-bit samples. Read returns io.EOF at the end of the stream.
type Source interface {
	Read(samples []int16) (int, error)
	SampleRate() int
	Close() error
}

// Open creates a source for path, chosen by extension. Raw PCM files
// (.pcm, .raw, .s16) and "-" (stdin) are read at rawRate.
func Open(path string, rawRate int) (Source, error) {
	if path == "-" {
		return NewRaw(io.NopCloser(os.Stdin), rawRate), nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".mp3":
		return NewMP3Source(path)
	case ".flac":
		return NewFLACSource(path)
	case ".pcm", ".raw", ".s16":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open PCM file: %w", err)
		}
		return NewRaw(f, rawRate), nil
	default:
		return nil, fmt.Errorf("unsupported audio format: %s (supported: .mp3, .flac, .pcm, .raw, .s16)", ext)
	}
}

// RawSource reads 16-bit little-endian mono PCM
type RawSource struct {
	r          io.ReadCloser
	sampleRate int
	buf        []byte
	carry      []byte
}

// NewRaw wraps r as a source at sampleRate
func NewRaw(r io.ReadCloser, sampleRate int) *RawSource {
	return &RawSource{
		r:          r,
		sampleRate: audio.NormalizeSampleRate(sampleRate),
	}
}

func (s *RawSource) Read(samples []int16) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}

	need := len(samples) * audio.BytesPerFrame
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	buf := s.buf[:need]

	copied := copy(buf, s.carry)
	s.carry = s.carry[:0]

	n, err := io.ReadAtLeast(s.r, buf[copied:], 1)
	n += copied
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}

	// Keep an odd byte for the next read
	whole := n - n%audio.BytesPerFrame
	if whole < n {
		s.carry = append(s.carry, buf[whole:n]...)
	}

	for i := 0; i < whole/2; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
	}

	if whole > 0 && err == io.EOF {
		return whole / 2, nil
	}
	return whole / 2, err
}

func (s *RawSource) SampleRate() int { return s.sampleRate }
func (s *RawSource) Close() error    { return s.r.Close() }

// MP3Source reads an MP3 file, downmixing the decoder's stereo output
type MP3Source struct {
	file    *os.File
	decoder *mp3.Decoder
	buf     []byte
}

// NewMP3Source opens an MP3 file
func NewMP3Source(path string) (*MP3Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	log.Printf("Loaded MP3: %s (sample rate: %d Hz)", filepath.Base(path), decoder.SampleRate())

	return &MP3Source{
		file:    f,
		decoder: decoder,
	}, nil
}

func (s *MP3Source) Read(samples []int16) (int, error) {
	// go-mp3 always decodes to 16-bit stereo
	need := len(samples) * 4
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	buf := s.buf[:need]

	n, err := io.ReadFull(s.decoder, buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}

	frames := n / 4
	for i := 0; i < frames; i++ {
		l := int16(binary.LittleEndian.Uint16(buf[i*4:]))
		r := int16(binary.LittleEndian.Uint16(buf[i*4+2:]))
		samples[i] = downmix(l, r)
	}

	if frames > 0 && err == io.EOF {
		return frames, nil
	}
	return frames, err
}

func (s *MP3Source) SampleRate() int { return s.decoder.SampleRate() }
func (s *MP3Source) Close() error    { return s.file.Close() }

// FLACSource reads a FLAC file frame by frame, downmixing to mono
type FLACSource struct {
	file     *os.File
	stream   *flac.Stream
	bitDepth int
	pending  []int16
}

// NewFLACSource opens a FLAC file
func NewFLACSource(path string) (*FLACSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	log.Printf("Loaded FLAC: %s (sample rate: %d Hz, channels: %d, bit depth: %d)",
		filepath.Base(path), info.SampleRate, info.NChannels, info.BitsPerSample)

	return &FLACSource{
		file:     f,
		stream:   stream,
		bitDepth: int(info.BitsPerSample),
	}, nil
}

func (s *FLACSource) Read(samples []int16) (int, error) {
	for len(s.pending) < len(samples) {
		frame, err := s.stream.ParseNext()
		if err != nil {
			if err == io.EOF && len(s.pending) > 0 {
				break
			}
			if err == io.EOF {
				return 0, io.EOF
			}
			return 0, fmt.Errorf("flac decode error: %w", err)
		}

		channels := len(frame.Subframes)
		for i := 0; i < int(frame.BlockSize); i++ {
			var sum int64
			for ch := 0; ch < channels; ch++ {
				sum += int64(toInt16(frame.Subframes[ch].Samples[i], s.bitDepth))
			}
			s.pending = append(s.pending, int16(sum/int64(channels)))
		}
	}

	n := copy(samples, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *FLACSource) SampleRate() int { return int(s.stream.Info.SampleRate) }
func (s *FLACSource) Close() error    { return s.file.Close() }

// downmix averages a stereo pair
func downmix(l, r int16) int16 {
	return int16((int32(l) + int32(r)) / 2)
}

// toInt16 scales a sample of the given bit depth to 16 bits
func toInt16(sample int32, bitDepth int) int16 {
	switch {
	case bitDepth > 16:
		return int16(sample >> (bitDepth - 16))
	case bitDepth < 16 && bitDepth > 0:
		return int16(sample << (16 - bitDepth))
	default:
		return int16(sample)
	}
}
