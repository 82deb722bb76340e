// ABOUTME: Playback session lifecycle
// ABOUTME: Device construction, teardown, submission and volume/route handling
package pcmstream

import (
	"errors"
	"io"
	"log"
	"math"

	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio/output"
	"github.com/Resonate-Protocol/pcmstream/pkg/volume"
)

// configure starts a fresh session at sampleRate, cancelling any pending
// usage fallback before building the device.
func (p *Player) configure(sampleRate int) error {
	p.fallback.cancel()
	return p.rebuild(sampleRate)
}

// rebuild tears down any current device and builds a playing one at
// sampleRate. Volume and routing failures are logged; only device
// construction fails the call. A pending usage fallback keeps its deadline
// and watches the new device instead.
func (p *Player) rebuild(sampleRate int) error {
	p.sampleRate = audio.NormalizeSampleRate(sampleRate)
	p.teardown()
	p.prepareOutput()

	p.bufferSize = BufferSize(p.factory.MinBufferSize(p.sampleRate), p.sampleRate)

	dev, err := p.factory.Open(output.DeviceConfig{
		SampleRate:   p.sampleRate,
		BufferSize:   p.bufferSize,
		Usage:        p.usage,
		WriteTimeout: p.config.WriteTimeout,
	})
	if err != nil {
		p.state = StateUninitialized
		log.Printf("Device construction failed: %v", err)
		return &InitError{SampleRate: p.sampleRate, Err: err}
	}

	p.bestEffort("set device volume", dev.SetVolume(1.0))

	if err := dev.Play(); err != nil {
		p.bestEffort("release unplayable device", dev.Release())
		p.state = StateUninitialized
		log.Printf("Device failed to start: %v", err)
		return &InitError{SampleRate: p.sampleRate, Err: err}
	}

	p.device = dev
	p.state = StateActive
	p.stats.Configures++

	log.Printf("init sampleRate=%d bufferSize=%d usage=%s", p.sampleRate, p.bufferSize, p.usage)
	p.emit(Event{
		Kind:       EventConfigured,
		SampleRate: p.sampleRate,
		Usage:      p.usage,
		BufferSize: p.bufferSize,
	})

	if p.usage == audio.UsageVoiceCommunication {
		if p.fallback.pending() {
			p.fallback.retarget(dev)
		} else {
			p.armFallback()
		}
	}

	return nil
}

// BufferSize is the larger of the platform minimum and one second of audio, in bytes
func BufferSize(minimum, sampleRate int) int {
	return max(minimum, audio.OneSecond(audio.NormalizeSampleRate(sampleRate)))
}

// prepareOutput sets mode, focus and speaker route, then ducks volumes.
// Every step is best-effort.
func (p *Player) prepareOutput() {
	if p.platform == nil {
		return
	}

	p.bestEffort("set audio mode", p.platform.SetMode(volume.ModeFor(p.usage)))
	p.bestEffort("request audio focus", p.platform.RequestFocus())
	p.bestEffort("enable speaker route", p.platform.SetSpeakerRoute(true))
	p.bestEffort("duck volume", p.ledger.Duck())
}

// restoreVolumes writes the captured levels back, if any
func (p *Player) restoreVolumes() {
	if p.ledger == nil {
		return
	}
	p.bestEffort("restore volume", p.ledger.Restore())
}

// teardown cancels the stall check and stops and releases the device.
// Safe without a device. The usage fallback is left to the caller.
func (p *Player) teardown() {
	p.stall.cancel()
	p.hasCarry = false

	if p.device == nil {
		return
	}

	p.bestEffort("stop device", p.device.Stop())
	p.bestEffort("release device", p.device.Release())
	p.device = nil
	p.state = StateUninitialized
}

// ensureDevice builds a device at the last configured rate if there is none
func (p *Player) ensureDevice() error {
	if p.device != nil {
		return nil
	}

	if err := p.rebuild(p.sampleRate); err != nil {
		return &NoDeviceError{Err: err}
	}
	if p.device == nil {
		return &NoDeviceError{}
	}
	return nil
}

// submit writes pcm to the device and arms the stall watchdog
func (p *Player) submit(pcm []byte) error {
	if p.state == StateStopped {
		p.resume()
	}

	if p.hasCarry {
		pcm = append([]byte{p.carry}, pcm...)
		p.hasCarry = false
	}
	if len(pcm)%audio.BytesPerFrame != 0 {
		p.carry = pcm[len(pcm)-1]
		p.hasCarry = true
		pcm = pcm[:len(pcm)-1]
	}
	if len(pcm) == 0 {
		log.Printf("write bytes=0")
		return nil
	}

	rms := audio.RMS(pcm)
	log.Printf("write bytes=%d rms=%d", len(pcm), int(math.Round(rms)))

	n, err := p.device.Write(pcm)
	if err == nil && n < len(pcm) {
		err = io.ErrShortWrite
	}
	if err != nil {
		p.stats.WriteErrors++
		log.Printf("Device write failed: %v", err)
		p.emit(Event{Kind: EventWriteFailed, Bytes: len(pcm), Err: err})
		if errors.Is(err, output.ErrWriteTimeout) {
			// The device stopped draining; let the watchdog rebuild it
			p.armStall()
		}
		return &WriteError{Err: err}
	}

	p.stats.Chunks++
	p.stats.Bytes += int64(len(pcm))
	p.stats.LastRMS = rms
	p.emit(Event{Kind: EventChunkWritten, Bytes: len(pcm), RMS: rms})

	p.armStall()

	return nil
}

// resume restarts a stopped device, ducking volumes again
func (p *Player) resume() {
	log.Printf("Resuming stopped device")
	if p.platform != nil {
		p.bestEffort("duck volume", p.ledger.Duck())
	}
	p.bestEffort("resume device", p.device.Play())
	p.state = StateActive
}

// stop restores volumes and pauses and flushes the device, keeping it for reuse
func (p *Player) stop() {
	p.restoreVolumes()
	p.stall.cancel()
	p.fallback.cancel()
	p.hasCarry = false

	if p.device != nil {
		p.bestEffort("pause device", p.device.Pause())
		p.bestEffort("flush device", p.device.Flush())
		p.state = StateStopped
	}

	log.Printf("Playback stopped")
	p.emit(Event{Kind: EventStopped})
}

// release restores volumes and returns the session to uninitialized
func (p *Player) release() {
	p.restoreVolumes()
	p.fallback.cancel()
	p.teardown()
	p.state = StateUninitialized

	log.Printf("Player released")
	p.emit(Event{Kind: EventReleased})
}

// bestEffort logs and reports a failed non-essential call. Failure here is
// non-fatal; the error is returned only so callers can inspect it.
func (p *Player) bestEffort(op string, err error) error {
	if err == nil {
		return nil
	}

	p.stats.PlatformErrors++
	log.Printf("%s failed (non-fatal): %v", op, err)
	p.emit(Event{Kind: EventBestEffortFailure, Op: op, Err: err})

	return err
}

func (p *Player) emit(ev Event) {
	if p.config.OnEvent != nil {
		p.config.OnEvent(ev)
	}
}
