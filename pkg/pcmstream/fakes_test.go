// ABOUTME: Test doubles for the engine
// ABOUTME: Scriptable device factory, recording platform and a queue whose timers never cancel
package pcmstream

import (
	"errors"
	"time"

	"github.com/Resonate-Protocol/pcmstream/pkg/audio/output"
	"github.com/Resonate-Protocol/pcmstream/pkg/looper"
	"github.com/Resonate-Protocol/pcmstream/pkg/volume"
)

type fakeDevice struct {
	config   output.DeviceConfig
	head     int64
	writes   [][]byte
	writeErr error
	shortBy  int
	playErr  error
	plays    int
	pauses   int
	flushes  int
	stops    int
	releases int
	volume   float64
}

func (d *fakeDevice) Write(p []byte) (int, error) {
	if d.writeErr != nil {
		return 0, d.writeErr
	}
	d.writes = append(d.writes, append([]byte(nil), p...))
	return len(p) - d.shortBy, nil
}

func (d *fakeDevice) Play() error {
	d.plays++
	return d.playErr
}

func (d *fakeDevice) Pause() error   { d.pauses++; return nil }
func (d *fakeDevice) Flush() error   { d.flushes++; return nil }
func (d *fakeDevice) Stop() error    { d.stops++; return nil }
func (d *fakeDevice) Release() error { d.releases++; return nil }

func (d *fakeDevice) SetVolume(gain float64) error {
	d.volume = gain
	return nil
}

func (d *fakeDevice) PlaybackHead() int64 { return d.head }

func (d *fakeDevice) written() int {
	n := 0
	for _, w := range d.writes {
		n += len(w)
	}
	return n
}

type fakeFactory struct {
	minBuffer int
	openErr   error
	playErr   error
	writeErr  error
	opened    []*fakeDevice
}

func (f *fakeFactory) Name() string { return "fake" }

func (f *fakeFactory) MinBufferSize(sampleRate int) int { return f.minBuffer }

func (f *fakeFactory) Open(config output.DeviceConfig) (output.Device, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	d := &fakeDevice{config: config, playErr: f.playErr, writeErr: f.writeErr}
	f.opened = append(f.opened, d)
	return d, nil
}

func (f *fakeFactory) last() *fakeDevice {
	if len(f.opened) == 0 {
		return nil
	}
	return f.opened[len(f.opened)-1]
}

// recordingPlatform wraps a SoftwareMixer and can fail routing calls
type recordingPlatform struct {
	*volume.SoftwareMixer
	modes       []volume.Mode
	focus       int
	speaker     []bool
	failRouting bool
}

func newRecordingPlatform(media, voice int) *recordingPlatform {
	return &recordingPlatform{
		SoftwareMixer: volume.NewSoftwareMixer(volume.MixerConfig{
			MediaLevel: media,
			VoiceLevel: voice,
		}),
	}
}

var errRouting = errors.New("routing unavailable")

func (p *recordingPlatform) SetMode(mode volume.Mode) error {
	p.modes = append(p.modes, mode)
	if p.failRouting {
		return errRouting
	}
	return p.SoftwareMixer.SetMode(mode)
}

func (p *recordingPlatform) RequestFocus() error {
	p.focus++
	if p.failRouting {
		return errRouting
	}
	return nil
}

func (p *recordingPlatform) SetSpeakerRoute(on bool) error {
	p.speaker = append(p.speaker, on)
	if p.failRouting {
		return errRouting
	}
	return p.SoftwareMixer.SetSpeakerRoute(on)
}

func (p *recordingPlatform) levels() (int, int) {
	s := p.Snapshot()
	return s.MediaLevel, s.VoiceLevel
}

// leakyQueue is a Manual queue whose timers ignore Stop, so superseded
// callbacks still fire and only the token guard can discard them
type leakyQueue struct {
	*looper.Manual
}

type leakyTimer struct{}

func (leakyTimer) Stop() bool { return false }

func (q leakyQueue) AfterFunc(d time.Duration, fn func()) looper.Timer {
	q.Manual.AfterFunc(d, fn)
	return leakyTimer{}
}

var errNoHardware = errors.New("no audio hardware")
