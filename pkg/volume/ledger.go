// ABOUTME: Volume ducking ledger
// ABOUTME: Captures channel levels once per session and restores them afterwards
package volume

import (
	"errors"
	"fmt"
	"log"
	"math"
)

// DefaultDuckFraction is the share of the maximum level used while playing
const DefaultDuckFraction = 0.7

// Ledger remembers the pre-session level of each channel.
// Not safe for concurrent use; the engine drives it from its control queue.
type Ledger struct {
	platform Platform
	fraction float64
	previous map[Channel]int
}

// NewLedger creates a ledger ducking to fraction of each channel's maximum.
// Non-positive fractions select DefaultDuckFraction.
func NewLedger(platform Platform, fraction float64) *Ledger {
	if fraction <= 0 || fraction > 1 {
		fraction = DefaultDuckFraction
	}

	return &Ledger{
		platform: platform,
		fraction: fraction,
		previous: make(map[Channel]int),
	}
}

var channels = []Channel{ChannelMedia, ChannelVoice}

// Duck captures each channel's current level if it has not been captured yet
// this session, then sets both channels to the duck target.
// Failures are per channel and returned joined; the other channel still proceeds.
func (l *Ledger) Duck() error {
	var errs []error

	for _, ch := range channels {
		if err := l.duckChannel(ch); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (l *Ledger) duckChannel(ch Channel) error {
	if _, ok := l.previous[ch]; !ok {
		level, err := l.platform.Level(ch)
		if err != nil {
			return fmt.Errorf("read %s level: %w", ch, err)
		}
		l.previous[ch] = level
	}

	max, err := l.platform.MaxLevel(ch)
	if err != nil {
		return fmt.Errorf("read %s max level: %w", ch, err)
	}

	target := DuckTarget(max, l.fraction)
	if err := l.platform.SetLevel(ch, target); err != nil {
		return fmt.Errorf("set %s level: %w", ch, err)
	}

	log.Printf("Ducked %s volume to %d/%d", ch, target, max)
	return nil
}

// Restore writes captured levels back and clears the snapshot.
// Without a snapshot it does nothing.
func (l *Ledger) Restore() error {
	var errs []error

	for _, ch := range channels {
		level, ok := l.previous[ch]
		if !ok {
			continue
		}
		delete(l.previous, ch)

		if err := l.platform.SetLevel(ch, level); err != nil {
			errs = append(errs, fmt.Errorf("restore %s level: %w", ch, err))
			continue
		}
		log.Printf("Restored %s volume to %d", ch, level)
	}

	return errors.Join(errs...)
}

// Captured reports whether any channel level is currently held
func (l *Ledger) Captured() bool {
	return len(l.previous) > 0
}

// Previous returns the captured level for ch
func (l *Ledger) Previous(ch Channel) (int, bool) {
	level, ok := l.previous[ch]
	return level, ok
}

// DuckTarget is max*fraction rounded to nearest, never below 1
func DuckTarget(max int, fraction float64) int {
	target := int(math.Round(float64(max) * fraction))
	if target < 1 {
		return 1
	}
	return target
}
