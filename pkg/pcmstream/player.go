// ABOUTME: Streaming PCM player public API
// ABOUTME: Init, WriteChunk, Stop, Release and PlayTestTone serialized on a control queue
package pcmstream

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio/output"
	"github.com/Resonate-Protocol/pcmstream/pkg/looper"
	"github.com/Resonate-Protocol/pcmstream/pkg/volume"
)

const (
	// DefaultStallDelay is how long after a write the playback head must have moved
	DefaultStallDelay = 1000 * time.Millisecond

	// DefaultFallbackDelay is how long voice routing gets to start playing
	DefaultFallbackDelay = 2000 * time.Millisecond

	// DefaultWriteTimeout is how long a write may wait for buffer space
	// while the playback head is not moving
	DefaultWriteTimeout = 2000 * time.Millisecond
)

// Config holds player configuration
type Config struct {
	// SampleRate is used by WriteChunk when no Init has happened yet (default: 24000)
	SampleRate int

	// Usage is the initial routing mode (default: media)
	Usage audio.Usage

	// Factory builds output devices (required)
	Factory output.Factory

	// Platform is the volume/routing subsystem. Nil disables ducking and routing.
	Platform volume.Platform

	// DuckFraction is the share of max volume used while playing (default: 0.7)
	DuckFraction float64

	// Queue serializes all work. Nil starts a private loop that Close stops.
	Queue looper.Queue

	// StallDelay overrides DefaultStallDelay
	StallDelay time.Duration

	// FallbackDelay overrides DefaultFallbackDelay
	FallbackDelay time.Duration

	// WriteTimeout bounds how long a write waits on a device that is not
	// draining (default: DefaultWriteTimeout)
	WriteTimeout time.Duration

	// OnEvent is called on the control queue for every engine event.
	// It must not call back into the Player.
	OnEvent func(Event)
}

// State is the session lifecycle state
type State int

const (
	StateUninitialized State = iota
	StateActive
	StateStopped

	// StateClosed is reported by Stats once Close has stopped the player
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	case StateClosed:
		return "closed"
	default:
		return "uninitialized"
	}
}

// Stats is a snapshot of the session and its counters
type Stats struct {
	State          State
	SampleRate     int
	Usage          audio.Usage
	BufferSize     int
	PlaybackHead   int64
	Chunks         int64
	Bytes          int64
	LastRMS        float64
	Configures     int64
	Stalls         int64
	Fallbacks      int64
	StallChecks    int64
	FallbackChecks int64
	WriteErrors    int64
	PlatformErrors int64
	VolumeCaptured bool
}

// Player streams PCM chunks to one output device at a time
type Player struct {
	config    Config
	queue     looper.Queue
	ownedLoop *looper.Loop
	factory   output.Factory
	platform  volume.Platform
	ledger    *volume.Ledger

	// Session state, only touched on the queue
	device     output.Device
	state      State
	sampleRate int
	usage      audio.Usage
	bufferSize int
	stall      *progressCheck
	fallback   *progressCheck
	stats      Stats

	// Odd trailing byte held for the next chunk
	carry    byte
	hasCarry bool

	closeOnce sync.Once
}

// NewPlayer creates a player with the given configuration
func NewPlayer(config Config) (*Player, error) {
	if config.Factory == nil {
		return nil, fmt.Errorf("output factory is required")
	}

	config.SampleRate = audio.NormalizeSampleRate(config.SampleRate)
	if config.StallDelay <= 0 {
		config.StallDelay = DefaultStallDelay
	}
	if config.FallbackDelay <= 0 {
		config.FallbackDelay = DefaultFallbackDelay
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}

	p := &Player{
		config:     config,
		queue:      config.Queue,
		factory:    config.Factory,
		platform:   config.Platform,
		sampleRate: config.SampleRate,
		usage:      config.Usage,
	}

	if p.queue == nil {
		p.ownedLoop = looper.New()
		p.queue = p.ownedLoop
	}

	if p.platform != nil {
		p.ledger = volume.NewLedger(p.platform, config.DuckFraction)
	}

	p.stall = newProgressCheck("stall", config.StallDelay, p.queue)
	p.fallback = newProgressCheck("usage fallback", config.FallbackDelay, p.queue)

	return p, nil
}

// run executes fn on the control queue and returns its error
func (p *Player) run(fn func() error) error {
	var err error
	if qerr := p.queue.Do(func() { err = fn() }); qerr != nil {
		return qerr
	}
	return err
}

// Init (re)builds the output device at sampleRate, ducking volumes for the session.
// Non-positive rates select the default. Only device construction failures are returned.
func (p *Player) Init(sampleRate int) error {
	return p.run(func() error {
		return p.configure(sampleRate)
	})
}

// WriteChunk submits 16-bit little-endian mono PCM, building a device first
// if none exists. It blocks while the device buffer is full.
func (p *Player) WriteChunk(pcm []byte) error {
	return p.run(func() error {
		if err := p.ensureDevice(); err != nil {
			return err
		}
		return p.submit(pcm)
	})
}

// PlayTestTone submits one second of a 440Hz sine at 30% amplitude
func (p *Player) PlayTestTone() error {
	return p.run(func() error {
		if err := p.ensureDevice(); err != nil {
			return err
		}

		if err := p.submit(audio.TestTone(p.sampleRate)); err != nil {
			if werr, ok := err.(*WriteError); ok {
				return &ToneError{Err: werr.Err}
			}
			return &ToneError{Err: err}
		}

		log.Printf("Test tone played")
		return nil
	})
}

// Stop restores volumes, then pauses and flushes the device without releasing it
func (p *Player) Stop() error {
	return p.run(func() error {
		p.stop()
		return nil
	})
}

// Release restores volumes and tears the device down. Safe to call repeatedly.
func (p *Player) Release() error {
	return p.run(func() error {
		p.release()
		return nil
	})
}

// SetUsage selects the routing mode applied by the next Init or recovery
func (p *Player) SetUsage(usage audio.Usage) error {
	return p.run(func() error {
		if p.usage != usage {
			log.Printf("Usage set to %s (applies on next init)", usage)
		}
		p.usage = usage
		return nil
	})
}

// Stats returns a snapshot of the session. After Close the snapshot is
// empty apart from State, which is StateClosed.
func (p *Player) Stats() Stats {
	var s Stats
	err := p.queue.Do(func() {
		s = p.stats
		s.State = p.state
		s.SampleRate = p.sampleRate
		s.Usage = p.usage
		s.BufferSize = p.bufferSize
		s.StallChecks = p.stall.checks
		s.FallbackChecks = p.fallback.checks
		if p.device != nil {
			s.PlaybackHead = p.device.PlaybackHead()
		}
		if p.ledger != nil {
			s.VolumeCaptured = p.ledger.Captured()
		}
	})
	if err != nil {
		return Stats{State: StateClosed}
	}
	return s
}

// Close releases the session and stops the private loop, if any
func (p *Player) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.Release()
		if p.ownedLoop != nil {
			p.ownedLoop.Close()
		}
	})
	return err
}
