// ABOUTME: In-process software mixer implementing Platform
// ABOUTME: Tracks channel levels, route, mode and focus and exposes attenuation
package volume

import (
	"fmt"
	"log"
	"sync"

	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
)

const (
	// DefaultMediaMax matches the common media stream step count
	DefaultMediaMax = 15

	// DefaultVoiceMax matches the common voice call stream step count
	DefaultVoiceMax = 5
)

// MixerConfig configures a SoftwareMixer
type MixerConfig struct {
	MediaMax   int
	VoiceMax   int
	MediaLevel int
	VoiceLevel int
}

// SoftwareMixer is a Platform kept entirely in memory.
// It is safe for concurrent use: output backends read Gain from their audio threads.
type SoftwareMixer struct {
	mu      sync.RWMutex
	max     map[Channel]int
	level   map[Channel]int
	speaker bool
	mode    Mode
	focus   int
}

// NewSoftwareMixer creates a mixer. Zero maxima select the defaults and zero
// levels start the channel at its maximum.
func NewSoftwareMixer(config MixerConfig) *SoftwareMixer {
	if config.MediaMax <= 0 {
		config.MediaMax = DefaultMediaMax
	}
	if config.VoiceMax <= 0 {
		config.VoiceMax = DefaultVoiceMax
	}
	if config.MediaLevel <= 0 || config.MediaLevel > config.MediaMax {
		config.MediaLevel = config.MediaMax
	}
	if config.VoiceLevel <= 0 || config.VoiceLevel > config.VoiceMax {
		config.VoiceLevel = config.VoiceMax
	}

	return &SoftwareMixer{
		max: map[Channel]int{
			ChannelMedia: config.MediaMax,
			ChannelVoice: config.VoiceMax,
		},
		level: map[Channel]int{
			ChannelMedia: config.MediaLevel,
			ChannelVoice: config.VoiceLevel,
		},
	}
}

func (m *SoftwareMixer) Level(ch Channel) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	level, ok := m.level[ch]
	if !ok {
		return 0, fmt.Errorf("unknown channel: %v", ch)
	}
	return level, nil
}

func (m *SoftwareMixer) MaxLevel(ch Channel) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	max, ok := m.max[ch]
	if !ok {
		return 0, fmt.Errorf("unknown channel: %v", ch)
	}
	return max, nil
}

// SetLevel clamps level to [0, max]
func (m *SoftwareMixer) SetLevel(ch Channel, level int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	max, ok := m.max[ch]
	if !ok {
		return fmt.Errorf("unknown channel: %v", ch)
	}
	if level < 0 {
		level = 0
	}
	if level > max {
		level = max
	}
	m.level[ch] = level
	return nil
}

func (m *SoftwareMixer) SetSpeakerRoute(on bool) error {
	m.mu.Lock()
	m.speaker = on
	m.mu.Unlock()
	log.Printf("Speaker route: %v", on)
	return nil
}

func (m *SoftwareMixer) SetMode(mode Mode) error {
	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()
	log.Printf("Audio mode: %s", mode)
	return nil
}

func (m *SoftwareMixer) RequestFocus() error {
	m.mu.Lock()
	m.focus++
	m.mu.Unlock()
	return nil
}

// Gain returns the attenuation for a device of the given usage (0..1)
func (m *SoftwareMixer) Gain(usage audio.Usage) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ch := ChannelFor(usage)
	max := m.max[ch]
	if max == 0 {
		return 1
	}
	return float64(m.level[ch]) / float64(max)
}

// Snapshot returns the current levels for display
func (m *SoftwareMixer) Snapshot() MixerState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MixerState{
		MediaLevel: m.level[ChannelMedia],
		MediaMax:   m.max[ChannelMedia],
		VoiceLevel: m.level[ChannelVoice],
		VoiceMax:   m.max[ChannelVoice],
		Speaker:    m.speaker,
		Mode:       m.mode,
	}
}

// MixerState is a point-in-time view of the mixer
type MixerState struct {
	MediaLevel int
	MediaMax   int
	VoiceLevel int
	VoiceMax   int
	Speaker    bool
	Mode       Mode
}
