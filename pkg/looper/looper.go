// ABOUTME: Goroutine-backed control queue
// ABOUTME: Runs posted tasks and delayed callbacks one at a time
package looper

import (
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by Do once the queue has been closed
var ErrClosed = errors.New("looper: queue closed")

// Queue serializes tasks onto a single control thread
type Queue interface {
	// Do runs fn on the queue and waits for it to return.
	// Must not be called from a task already running on the same queue.
	Do(fn func()) error

	// AfterFunc schedules fn to run on the queue after d
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a handle to a delayed callback
type Timer interface {
	// Stop prevents the callback from firing. It returns false if the
	// callback already fired or was already stopped.
	Stop() bool
}

// Loop is a Queue backed by one goroutine
type Loop struct {
	tasks     chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New starts a loop
func New() *Loop {
	l := &Loop{
		tasks: make(chan func()),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}

	go l.run()

	return l
}

func (l *Loop) run() {
	defer close(l.done)

	for {
		select {
		case fn := <-l.tasks:
			fn()
		case <-l.quit:
			return
		}
	}
}

// Do runs fn on the loop goroutine and blocks until it returns
func (l *Loop) Do(fn func()) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn()
	}

	select {
	case l.tasks <- task:
	case <-l.quit:
		return ErrClosed
	}

	<-finished
	return nil
}

// AfterFunc posts fn to the loop after d. Callbacks that come due after
// Close are dropped.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, func() {
		l.post(fn)
	})
}

func (l *Loop) post(fn func()) {
	select {
	case l.tasks <- fn:
	case <-l.quit:
	}
}

// Close stops the loop after the current task finishes
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.quit)
	})
	<-l.done
}
