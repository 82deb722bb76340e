// ABOUTME: Virtual-clock control queue for tests
// ABOUTME: Fires delayed callbacks only when the clock is advanced
package looper

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Queue whose clock only moves when Advance is called.
// Do runs tasks inline on the caller's goroutine.
type Manual struct {
	mu     sync.Mutex
	now    time.Duration
	seq    uint64
	timers []*manualTimer
}

type manualTimer struct {
	m        *Manual
	deadline time.Duration
	seq      uint64
	fn       func()
	fired    bool
	stopped  bool
}

// NewManual creates a manual queue at virtual time zero
func NewManual() *Manual {
	return &Manual{}
}

// Do runs fn immediately
func (m *Manual) Do(fn func()) error {
	fn()
	return nil
}

// AfterFunc arms fn to fire once the virtual clock passes now+d
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTimer{
		m:        m,
		deadline: m.now + d,
		seq:      m.seq,
		fn:       fn,
	}
	m.timers = append(m.timers, t)

	return t
}

// Advance moves the clock forward by d, firing due callbacks in deadline
// order. Callbacks armed while advancing fire too if they fall inside the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		t := m.nextDue(target)
		if t == nil {
			break
		}
		t.fn()
	}

	m.mu.Lock()
	m.now = target
	m.mu.Unlock()
}

// nextDue pops the earliest live timer due at or before target
func (m *Manual) nextDue(target time.Duration) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.compact()
	if len(m.timers) == 0 {
		return nil
	}

	sort.Slice(m.timers, func(i, j int) bool {
		if m.timers[i].deadline == m.timers[j].deadline {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].deadline < m.timers[j].deadline
	})

	t := m.timers[0]
	if t.deadline > target {
		return nil
	}

	m.timers = m.timers[1:]
	t.fired = true
	if t.deadline > m.now {
		m.now = t.deadline
	}

	return t
}

// compact drops stopped timers; caller holds mu
func (m *Manual) compact() {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	m.timers = live
}

// Now returns the virtual time elapsed since creation
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns the number of armed callbacks
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.compact()
	return len(m.timers)
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}
