// ABOUTME: Null audio output implementation
// ABOUTME: Drains ring-buffered PCM at real-time rate without a sound card
package output

import (
	"sync"
	"time"

	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
)

// nullTick is how often the null device drains its ring
const nullTick = 20 * time.Millisecond

// Null builds devices that discard audio in real time
type Null struct {
	gain GainFunc
}

// NewNull creates a null factory
func NewNull(gain GainFunc) *Null {
	return &Null{gain: gain}
}

func (f *Null) Name() string { return "null" }

func (f *Null) MinBufferSize(sampleRate int) int {
	return minBufferSize(sampleRate)
}

func (f *Null) Open(config DeviceConfig) (Device, error) {
	config.SampleRate = audio.NormalizeSampleRate(config.SampleRate)

	d := &nullDevice{
		config: config,
		ring:   newRingBuffer(max(config.BufferSize, minBufferSize(config.SampleRate))),
		quit:   make(chan struct{}),
	}
	d.ring.writeTimeout = config.WriteTimeout

	go d.drain()

	return d, nil
}

type nullDevice struct {
	config DeviceConfig
	ring   *ringBuffer

	mu       sync.Mutex
	playing  bool
	released bool
	quit     chan struct{}
}

// drain consumes one tick's worth of audio per tick while playing
func (d *nullDevice) drain() {
	ticker := time.NewTicker(nullTick)
	defer ticker.Stop()

	chunk := make([]byte, audio.OneSecond(d.config.SampleRate)*int(nullTick/time.Millisecond)/1000)

	for {
		select {
		case <-d.quit:
			return
		case <-ticker.C:
			d.mu.Lock()
			playing := d.playing
			d.mu.Unlock()

			if playing {
				d.ring.Read(chunk)
			}
		}
	}
}

func (d *nullDevice) Write(p []byte) (int, error) {
	return d.ring.Write(p)
}

func (d *nullDevice) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return ErrReleased
	}
	d.playing = true
	return nil
}

func (d *nullDevice) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.playing = false
	return nil
}

func (d *nullDevice) Flush() error {
	d.ring.Reset()
	return nil
}

func (d *nullDevice) Stop() error {
	d.Pause()
	return d.Flush()
}

func (d *nullDevice) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return nil
	}
	d.released = true
	d.playing = false
	close(d.quit)
	d.ring.Close()
	return nil
}

func (d *nullDevice) SetVolume(gain float64) error { return nil }

func (d *nullDevice) PlaybackHead() int64 {
	return d.ring.Consumed() / audio.BytesPerFrame
}
