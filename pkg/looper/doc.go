// ABOUTME: Single-threaded control queue package
// ABOUTME: Provides the deferred-callback queue that serializes engine work
// Package looper provides a single-threaded task queue with delayed tasks.
//
// All work posted to a Queue runs one item at a time, in order, on the
// queue's own goroutine. Delayed callbacks land on the same queue, so they
// never run concurrently with an in-flight Do call.
//
// Two implementations are provided:
//   - Loop: a goroutine-backed queue driven by the wall clock
//   - Manual: a virtual-clock queue for deterministic tests
//
// Example:
//
//	q := looper.New()
//	defer q.Close()
//	q.AfterFunc(time.Second, func() { log.Printf("tick") })
//	q.Do(func() { log.Printf("runs on the queue") })
package looper
