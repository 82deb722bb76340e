// ABOUTME: Tests for the output ring buffer
// ABOUTME: Tests wraparound, silence padding, backpressure and close
package output

import (
	"bytes"
	"testing"
	"time"
)

func TestRingWriteRead(t *testing.T) {
	rb := newRingBuffer(8)

	if _, err := rb.Write([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	p := make([]byte, 6)
	n := rb.Read(p)
	if n != 4 {
		t.Fatalf("expected 4 real bytes, got %d", n)
	}
	if !bytes.Equal(p, []byte{1, 2, 3, 4, 0, 0}) {
		t.Errorf("expected data padded with silence, got %v", p)
	}
	if rb.Consumed() != 4 {
		t.Errorf("expected 4 consumed, got %d", rb.Consumed())
	}
}

func TestRingWraparound(t *testing.T) {
	rb := newRingBuffer(6)

	rb.Write([]byte{1, 2, 3, 4})
	rb.Read(make([]byte, 4))
	rb.Write([]byte{5, 6, 7, 8})

	p := make([]byte, 4)
	if n := rb.Read(p); n != 4 {
		t.Fatalf("expected 4 bytes, got %d", n)
	}
	if !bytes.Equal(p, []byte{5, 6, 7, 8}) {
		t.Errorf("expected wrapped data, got %v", p)
	}
}

func TestRingBackpressure(t *testing.T) {
	rb := newRingBuffer(4)

	done := make(chan struct{})
	go func() {
		rb.Write([]byte{1, 2, 3, 4, 5, 6})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("write should block while the ring is full")
	case <-time.After(30 * time.Millisecond):
	}

	rb.Read(make([]byte, 2))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write did not resume after space was freed")
	}

	if rb.Buffered() != 4 {
		t.Errorf("expected 4 buffered bytes, got %d", rb.Buffered())
	}
}

func TestRingCloseUnblocksWriter(t *testing.T) {
	rb := newRingBuffer(2)
	rb.Write([]byte{1, 2})

	errc := make(chan error, 1)
	go func() {
		_, err := rb.Write([]byte{3, 4})
		errc <- err
	}()

	time.Sleep(10 * time.Millisecond)
	rb.Close()

	select {
	case err := <-errc:
		if err != ErrReleased {
			t.Errorf("expected ErrReleased, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("close did not unblock writer")
	}
}

func TestRingResetKeepsConsumed(t *testing.T) {
	rb := newRingBuffer(8)
	rb.Write([]byte{1, 2, 3, 4})
	rb.Read(make([]byte, 2))
	rb.Reset()

	if rb.Buffered() != 0 {
		t.Errorf("expected empty ring, got %d", rb.Buffered())
	}
	if rb.Consumed() != 2 {
		t.Errorf("expected consumed to stay at 2, got %d", rb.Consumed())
	}

	p := make([]byte, 2)
	if n := rb.Read(p); n != 0 {
		t.Errorf("expected no data after reset, got %d", n)
	}
}

func TestRingCapacityIsFrameAligned(t *testing.T) {
	if c := newRingBuffer(7).Cap(); c != 6 {
		t.Errorf("expected capacity 6, got %d", c)
	}
	if c := newRingBuffer(0).Cap(); c != 2 {
		t.Errorf("expected minimum capacity 2, got %d", c)
	}
}

func TestRingWriteTimeout(t *testing.T) {
	rb := newRingBuffer(4)
	rb.writeTimeout = 20 * time.Millisecond
	rb.Write([]byte{1, 2, 3, 4})

	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := rb.Write([]byte{5, 6})
		done <- result{n, err}
	}()

	select {
	case r := <-done:
		if r.err != ErrWriteTimeout {
			t.Errorf("expected ErrWriteTimeout, got %v", r.err)
		}
		if r.n != 0 {
			t.Errorf("expected nothing written, got %d", r.n)
		}
	case <-time.After(time.Second):
		t.Fatal("write never timed out on a full ring")
	}

	if rb.Buffered() != 4 {
		t.Errorf("timed out write must not change the ring, got %d buffered", rb.Buffered())
	}
}

func TestRingWriteTimeoutWaitsWhileDraining(t *testing.T) {
	rb := newRingBuffer(4)
	rb.writeTimeout = 100 * time.Millisecond

	// Drain two bytes every 20ms; the writer keeps making progress
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				rb.Read(make([]byte, 2))
			}
		}
	}()

	n, err := rb.Write(make([]byte, 16))
	if err != nil {
		t.Fatalf("draining ring must not time out: %v", err)
	}
	if n != 16 {
		t.Errorf("expected 16 bytes written, got %d", n)
	}
}
