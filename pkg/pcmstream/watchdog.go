// ABOUTME: Stall watchdog and usage fallback timer
// ABOUTME: Token-guarded single-shot checks of the device playback head
package pcmstream

import (
	"log"
	"time"

	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio/output"
	"github.com/Resonate-Protocol/pcmstream/pkg/looper"
)

// ticket is one armed check. Only the ticket whose token matches the
// check's current token may act.
type ticket struct {
	token     uint64
	device    output.Device
	headAtArm int64
}

// progressCheck fires once, delay after arming, and calls onStall if the
// playback head has not moved since. Arming again supersedes the previous ticket.
type progressCheck struct {
	name    string
	delay   time.Duration
	queue   looper.Queue
	token   uint64
	timer   looper.Timer
	current ticket
	checks  int64
}

func newProgressCheck(name string, delay time.Duration, queue looper.Queue) *progressCheck {
	return &progressCheck{
		name:  name,
		delay: delay,
		queue: queue,
	}
}

// arm invalidates any earlier ticket and schedules a check of dev
func (c *progressCheck) arm(dev output.Device, onStall func(ticket)) ticket {
	c.cancel()

	c.current = ticket{
		token:     c.token,
		device:    dev,
		headAtArm: dev.PlaybackHead(),
	}

	token := c.token
	c.timer = c.queue.AfterFunc(c.delay, func() {
		c.fire(token, onStall)
	})

	return c.current
}

// pending reports whether a ticket is armed and has not fired
func (c *progressCheck) pending() bool {
	return c.timer != nil
}

// retarget points the pending ticket at dev without moving its deadline
func (c *progressCheck) retarget(dev output.Device) {
	if !c.pending() {
		return
	}
	c.current.device = dev
	c.current.headAtArm = dev.PlaybackHead()
}

// cancel invalidates the current ticket and stops its timer
func (c *progressCheck) cancel() {
	c.token++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// fire runs on the queue when a ticket's delay elapses
func (c *progressCheck) fire(token uint64, onStall func(ticket)) {
	if token != c.token {
		return
	}
	c.timer = nil
	c.checks++

	t := c.current

	headNow := t.device.PlaybackHead()
	if headNow > t.headAtArm {
		log.Printf("Playback active, skip %s (head %d -> %d)", c.name, t.headAtArm, headNow)
		return
	}

	onStall(t)
}

// armStall schedules a stall check measured from now
func (p *Player) armStall() {
	if p.device == nil {
		return
	}
	p.stall.arm(p.device, p.onStall)
}

// armFallback schedules a usage fallback check; only voice routing arms it
func (p *Player) armFallback() {
	if p.device == nil || p.usage != audio.UsageVoiceCommunication {
		return
	}
	p.fallback.arm(p.device, p.onFallback)
}

// onStall rebuilds the device. Failures are swallowed; the next write retries.
// A pending usage fallback keeps its deadline across the rebuild.
func (p *Player) onStall(t ticket) {
	p.stats.Stalls++
	log.Printf("Playback stalled at head %d, reinit", t.headAtArm)
	p.emit(Event{Kind: EventStall, SampleRate: p.sampleRate, Usage: p.usage})

	if err := p.rebuild(p.sampleRate); err != nil {
		log.Printf("Stall recovery failed: %v", err)
	}
}

// onFallback permanently downgrades to media routing and rebuilds the device
func (p *Player) onFallback(t ticket) {
	if p.usage != audio.UsageVoiceCommunication {
		return
	}

	p.stats.Fallbacks++
	log.Printf("No playback on voice routing, fallback to media")
	p.usage = audio.UsageMedia
	p.emit(Event{Kind: EventUsageFallback, SampleRate: p.sampleRate, Usage: p.usage})

	if err := p.rebuild(p.sampleRate); err != nil {
		log.Printf("Usage fallback recovery failed: %v", err)
	}
}
