// ABOUTME: Blocking byte ring shared by the output backends
// ABOUTME: Gives writers backpressure and counts bytes consumed by the audio thread
package output

import (
	"sync"
	"time"
)

// ringBuffer is a fixed-size byte FIFO.
// Write blocks while full; Read never blocks and pads with silence.
type ringBuffer struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	buf      []byte
	readPos  int
	count    int
	closed   bool
	consumed int64

	// writeTimeout bounds each wait for space; zero waits forever
	writeTimeout time.Duration
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 2 {
		capacity = 2
	}
	// Keep frames whole
	capacity &^= 1

	rb := &ringBuffer{buf: make([]byte, capacity)}
	rb.notFull = sync.NewCond(&rb.mu)
	return rb
}

// Write copies all of p into the ring, waiting for space as needed
func (rb *ringBuffer) Write(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	size := len(rb.buf)
	written := 0

	for written < len(p) {
		for rb.count == size && !rb.closed {
			if rb.writeTimeout <= 0 {
				rb.notFull.Wait()
				continue
			}
			if !rb.waitFor(rb.writeTimeout) && rb.count == size && !rb.closed {
				return written, ErrWriteTimeout
			}
		}
		if rb.closed {
			return written, ErrReleased
		}

		writePos := (rb.readPos + rb.count) % size
		n := min(size-rb.count, len(p)-written)
		first := min(n, size-writePos)

		copy(rb.buf[writePos:], p[written:written+first])
		copy(rb.buf, p[written+first:written+n])

		rb.count += n
		written += n
	}

	return written, nil
}

// waitFor waits on notFull for at most d and reports whether it was woken
// before the deadline. Called with mu held.
func (rb *ringBuffer) waitFor(d time.Duration) bool {
	expired := false
	t := time.AfterFunc(d, func() {
		rb.mu.Lock()
		expired = true
		rb.notFull.Broadcast()
		rb.mu.Unlock()
	})

	rb.notFull.Wait()
	t.Stop()

	return !expired
}

// Read fills p with queued audio followed by silence.
// It returns how many bytes came from the queue.
func (rb *ringBuffer) Read(p []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	size := len(rb.buf)
	n := min(rb.count, len(p))
	first := min(n, size-rb.readPos)

	copy(p, rb.buf[rb.readPos:rb.readPos+first])
	copy(p[first:], rb.buf[:n-first])
	clear(p[n:])

	rb.readPos = (rb.readPos + n) % size
	rb.count -= n
	rb.consumed += int64(n)

	if n > 0 {
		rb.notFull.Broadcast()
	}

	return n
}

// Reset drops queued audio. Consumed bytes are not rewound.
func (rb *ringBuffer) Reset() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.readPos = 0
	rb.count = 0
	rb.notFull.Broadcast()
}

// Close wakes blocked writers; later writes fail with ErrReleased
func (rb *ringBuffer) Close() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.closed = true
	rb.notFull.Broadcast()
}

// Consumed returns the total bytes handed to the audio thread
func (rb *ringBuffer) Consumed() int64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.consumed
}

// Buffered returns bytes waiting to be played
func (rb *ringBuffer) Buffered() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Cap returns the ring size in bytes
func (rb *ringBuffer) Cap() int {
	return len(rb.buf)
}
