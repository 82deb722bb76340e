// ABOUTME: Platform volume and routing interface
// ABOUTME: Defines output channels, audio modes, and the Platform contract
package volume

import (
	"fmt"

	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
)

// Channel is an independent output volume channel
type Channel int

const (
	ChannelMedia Channel = iota
	ChannelVoice
)

func (c Channel) String() string {
	switch c {
	case ChannelMedia:
		return "media"
	case ChannelVoice:
		return "voice"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// ChannelFor returns the channel a device built for usage plays through
func ChannelFor(usage audio.Usage) Channel {
	if usage == audio.UsageVoiceCommunication {
		return ChannelVoice
	}
	return ChannelMedia
}

// Mode is the platform audio mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeInCommunication
)

func (m Mode) String() string {
	if m == ModeInCommunication {
		return "in-communication"
	}
	return "normal"
}

// ModeFor returns the platform mode matching usage
func ModeFor(usage audio.Usage) Mode {
	if usage == audio.UsageVoiceCommunication {
		return ModeInCommunication
	}
	return ModeNormal
}

// Platform is the volume, routing and focus subsystem
type Platform interface {
	Level(ch Channel) (int, error)
	MaxLevel(ch Channel) (int, error)
	SetLevel(ch Channel, level int) error
	SetSpeakerRoute(on bool) error
	SetMode(mode Mode) error
	RequestFocus() error
}
