// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams ring-buffered PCM into a persistent oto player with software gain
package output

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio/resample"
	"github.com/ebitengine/oto/v3"
)

// oto only allows one context per process, so every device shares it
var (
	otoMu   sync.Mutex
	otoCtx  *oto.Context
	otoRate int
)

// sharedContext returns the process-wide context, creating it at sampleRate
// on first use. Later callers get the original rate back.
func sharedContext(sampleRate int) (*oto.Context, int, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		return otoCtx, otoRate, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: audio.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   50 * time.Millisecond,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create oto context: %w", err)
	}

	<-readyChan

	otoCtx = ctx
	otoRate = sampleRate

	log.Printf("Oto context initialized: %dHz mono", sampleRate)

	return otoCtx, otoRate, nil
}

// Oto builds devices on the shared oto context
type Oto struct {
	gain GainFunc
}

// NewOto creates an oto factory
func NewOto(gain GainFunc) *Oto {
	return &Oto{gain: gain}
}

func (f *Oto) Name() string { return "oto" }

func (f *Oto) MinBufferSize(sampleRate int) int {
	return minBufferSize(sampleRate)
}

// Open creates a paused device. Devices whose rate differs from the shared
// context are resampled on write.
func (f *Oto) Open(config DeviceConfig) (Device, error) {
	config.SampleRate = audio.NormalizeSampleRate(config.SampleRate)

	ctx, ctxRate, err := sharedContext(config.SampleRate)
	if err != nil {
		return nil, err
	}

	// Size the ring in context-rate bytes so it holds the requested duration
	ringSize := config.BufferSize
	if ctxRate != config.SampleRate {
		ringSize = int(int64(config.BufferSize) * int64(ctxRate) / int64(config.SampleRate))
	}

	d := &otoDevice{
		config:      config,
		contextRate: ctxRate,
		ring:        newRingBuffer(max(ringSize, minBufferSize(ctxRate))),
		gainFn:      f.gain,
		gain:        1,
	}
	d.ring.writeTimeout = config.WriteTimeout

	if ctxRate != config.SampleRate {
		log.Printf("Oto context runs at %dHz, resampling %dHz device", ctxRate, config.SampleRate)
		d.resampler = resample.New(config.SampleRate, ctxRate)
	}

	d.player = ctx.NewPlayer(d)
	// Keep oto's own read-ahead short so the playback head tracks what is audible
	d.player.SetBufferSize(minBufferSize(ctxRate))

	return d, nil
}

type otoDevice struct {
	config      DeviceConfig
	contextRate int
	ring        *ringBuffer
	player      *oto.Player
	resampler   *resample.Resampler
	gainFn      GainFunc

	mu       sync.Mutex
	gain     float64
	released bool
}

// Read feeds the oto player; it is called from oto's audio goroutine
func (d *otoDevice) Read(p []byte) (int, error) {
	n := d.ring.Read(p)

	d.mu.Lock()
	gain := d.gain
	d.mu.Unlock()

	applyGain(p[:n], effectiveGain(gain, d.gainFn, d.config.Usage))

	return len(p), nil
}

func (d *otoDevice) Write(p []byte) (int, error) {
	data := p
	if d.resampler != nil {
		data = audio.EncodeInt16LE(d.resampler.Resample(audio.DecodeInt16LE(p)))
	}

	if _, err := d.ring.Write(data); err != nil {
		return 0, err
	}

	return len(p), nil
}

func (d *otoDevice) Play() error {
	if d.isReleased() {
		return ErrReleased
	}
	d.player.Play()
	return d.player.Err()
}

func (d *otoDevice) Pause() error {
	if d.isReleased() {
		return ErrReleased
	}
	d.player.Pause()
	return nil
}

func (d *otoDevice) Flush() error {
	d.ring.Reset()
	if d.resampler != nil {
		d.resampler.Reset()
	}
	return nil
}

func (d *otoDevice) Stop() error {
	if err := d.Pause(); err != nil {
		return err
	}
	return d.Flush()
}

func (d *otoDevice) Release() error {
	d.mu.Lock()
	if d.released {
		d.mu.Unlock()
		return nil
	}
	d.released = true
	d.mu.Unlock()

	d.ring.Close()
	return d.player.Close()
}

func (d *otoDevice) SetVolume(gain float64) error {
	d.mu.Lock()
	d.gain = clampGain(gain)
	d.mu.Unlock()
	return nil
}

// PlaybackHead converts consumed context-rate bytes back to device-rate frames
func (d *otoDevice) PlaybackHead() int64 {
	frames := d.ring.Consumed() / audio.BytesPerFrame
	if d.contextRate == d.config.SampleRate {
		return frames
	}
	return frames * int64(d.config.SampleRate) / int64(d.contextRate)
}

func (d *otoDevice) isReleased() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.released
}
