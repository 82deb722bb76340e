//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform audio output using a PortAudio callback stream
package output

import (
	"fmt"
	"sync"

	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
	"github.com/gordonklaus/portaudio"
)

// framesPerBuffer is the PortAudio callback size (10ms at 48kHz)
const framesPerBuffer = 480

// PortAudio builds devices on the default PortAudio output
type PortAudio struct {
	gain GainFunc
}

// NewPortAudio creates a PortAudio factory
func NewPortAudio(gain GainFunc) Factory {
	return &PortAudio{gain: gain}
}

func (f *PortAudio) Name() string { return "portaudio" }

func (f *PortAudio) MinBufferSize(sampleRate int) int {
	return max(minBufferSize(sampleRate), framesPerBuffer*audio.BytesPerFrame*4)
}

// Open initializes PortAudio and opens a stopped mono stream
func (f *PortAudio) Open(config DeviceConfig) (Device, error) {
	config.SampleRate = audio.NormalizeSampleRate(config.SampleRate)

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	d := &portAudioDevice{
		config:  config,
		ring:    newRingBuffer(max(config.BufferSize, f.MinBufferSize(config.SampleRate))),
		gainFn:  f.gain,
		gain:    1,
		scratch: make([]byte, framesPerBuffer*audio.BytesPerFrame),
	}
	d.ring.writeTimeout = config.WriteTimeout

	stream, err := portaudio.OpenDefaultStream(0, audio.Channels, float64(config.SampleRate), framesPerBuffer, d.callback)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	d.stream = stream
	return d, nil
}

type portAudioDevice struct {
	config  DeviceConfig
	ring    *ringBuffer
	stream  *portaudio.Stream
	gainFn  GainFunc
	scratch []byte

	mu       sync.Mutex
	gain     float64
	playing  bool
	released bool
}

// callback runs on the PortAudio thread
func (d *portAudioDevice) callback(out []int16) {
	need := len(out) * audio.BytesPerFrame
	if len(d.scratch) < need {
		d.scratch = make([]byte, need)
	}
	buf := d.scratch[:need]

	n := d.ring.Read(buf)

	d.mu.Lock()
	gain := d.gain
	d.mu.Unlock()

	applyGain(buf[:n], effectiveGain(gain, d.gainFn, d.config.Usage))

	for i := range out {
		out[i] = int16(uint16(buf[i*2]) | uint16(buf[i*2+1])<<8)
	}
}

func (d *portAudioDevice) Write(p []byte) (int, error) {
	return d.ring.Write(p)
}

func (d *portAudioDevice) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return ErrReleased
	}
	if d.playing {
		return nil
	}
	if err := d.stream.Start(); err != nil {
		return fmt.Errorf("failed to start stream: %w", err)
	}
	d.playing = true
	return nil
}

func (d *portAudioDevice) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.playing {
		return nil
	}
	d.playing = false
	return d.stream.Abort()
}

func (d *portAudioDevice) Flush() error {
	d.ring.Reset()
	return nil
}

func (d *portAudioDevice) Stop() error {
	if err := d.Pause(); err != nil {
		return err
	}
	return d.Flush()
}

// Release closes the stream and drops this device's PortAudio reference
func (d *portAudioDevice) Release() error {
	d.mu.Lock()
	if d.released {
		d.mu.Unlock()
		return nil
	}
	d.released = true
	playing := d.playing
	d.playing = false
	d.mu.Unlock()

	d.ring.Close()

	if playing {
		d.stream.Abort()
	}
	if err := d.stream.Close(); err != nil {
		portaudio.Terminate()
		return err
	}
	return portaudio.Terminate()
}

func (d *portAudioDevice) SetVolume(gain float64) error {
	d.mu.Lock()
	d.gain = clampGain(gain)
	d.mu.Unlock()
	return nil
}

func (d *portAudioDevice) PlaybackHead() int64 {
	return d.ring.Consumed() / audio.BytesPerFrame
}
