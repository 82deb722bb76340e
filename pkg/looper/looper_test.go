// ABOUTME: Tests for the control queues
// ABOUTME: Covers ordering, delayed callbacks, stop and close semantics
package looper

import (
	"sync"
	"testing"
	"time"
)

func TestLoopDoRunsInOrder(t *testing.T) {
	l := New()
	defer l.Close()

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		if err := l.Do(func() { got = append(got, i) }); err != nil {
			t.Fatalf("Do failed: %v", err)
		}
	}

	for i, v := range got {
		if v != i {
			t.Errorf("expected %d at position %d, got %d", i, i, v)
		}
	}
}

func TestLoopAfterFuncRunsOnLoop(t *testing.T) {
	l := New()
	defer l.Close()

	fired := make(chan struct{})
	l.AfterFunc(10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("callback did not fire")
	}
}

func TestLoopAfterFuncSerializedWithDo(t *testing.T) {
	l := New()
	defer l.Close()

	var mu sync.Mutex
	inTask := false
	overlap := false

	fired := make(chan struct{})
	l.AfterFunc(5*time.Millisecond, func() {
		mu.Lock()
		if inTask {
			overlap = true
		}
		mu.Unlock()
		close(fired)
	})

	l.Do(func() {
		mu.Lock()
		inTask = true
		mu.Unlock()
		time.Sleep(30 * time.Millisecond)
		mu.Lock()
		inTask = false
		mu.Unlock()
	})

	<-fired
	if overlap {
		t.Error("delayed callback ran concurrently with a task")
	}
}

func TestLoopTimerStop(t *testing.T) {
	l := New()
	defer l.Close()

	fired := make(chan struct{}, 1)
	timer := l.AfterFunc(20*time.Millisecond, func() { fired <- struct{}{} })

	if !timer.Stop() {
		t.Fatal("expected Stop to report a pending timer")
	}

	select {
	case <-fired:
		t.Fatal("stopped timer fired")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestLoopDoAfterClose(t *testing.T) {
	l := New()
	l.Close()

	if err := l.Do(func() {}); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	// Close is idempotent
	l.Close()
}

func TestManualAdvance(t *testing.T) {
	m := NewManual()

	var order []string
	m.AfterFunc(2*time.Second, func() { order = append(order, "b") })
	m.AfterFunc(time.Second, func() { order = append(order, "a") })

	m.Advance(999 * time.Millisecond)
	if len(order) != 0 {
		t.Fatalf("expected nothing to fire yet, got %v", order)
	}

	m.Advance(time.Millisecond)
	if len(order) != 1 || order[0] != "a" {
		t.Fatalf("expected [a], got %v", order)
	}

	m.Advance(time.Second)
	if len(order) != 2 || order[1] != "b" {
		t.Fatalf("expected [a b], got %v", order)
	}

	if m.Now() != 2*time.Second {
		t.Errorf("expected clock at 2s, got %v", m.Now())
	}
}

func TestManualStop(t *testing.T) {
	m := NewManual()

	fired := false
	timer := m.AfterFunc(time.Second, func() { fired = true })

	if m.Pending() != 1 {
		t.Fatalf("expected 1 pending timer, got %d", m.Pending())
	}

	if !timer.Stop() {
		t.Fatal("expected Stop to succeed")
	}
	if timer.Stop() {
		t.Error("second Stop should report false")
	}

	m.Advance(2 * time.Second)
	if fired {
		t.Error("stopped timer fired")
	}
	if m.Pending() != 0 {
		t.Errorf("expected 0 pending timers, got %d", m.Pending())
	}
}

func TestManualChainedCallbacks(t *testing.T) {
	m := NewManual()

	count := 0
	var rearm func()
	rearm = func() {
		count++
		m.AfterFunc(time.Second, rearm)
	}
	m.AfterFunc(time.Second, rearm)

	m.Advance(3 * time.Second)
	if count != 3 {
		t.Errorf("expected 3 firings, got %d", count)
	}
}

func TestManualStopAfterFire(t *testing.T) {
	m := NewManual()
	timer := m.AfterFunc(time.Millisecond, func() {})
	m.Advance(time.Millisecond)

	if timer.Stop() {
		t.Error("Stop after fire should report false")
	}
}
