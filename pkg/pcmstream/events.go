// ABOUTME: Engine event definitions
// ABOUTME: Events emitted to observers such as metrics and the status UI
package pcmstream

import (
	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
)

// EventKind identifies what happened
type EventKind int

const (
	EventConfigured EventKind = iota
	EventChunkWritten
	EventWriteFailed
	EventStall
	EventUsageFallback
	EventStopped
	EventReleased
	EventBestEffortFailure
)

func (k EventKind) String() string {
	switch k {
	case EventConfigured:
		return "configured"
	case EventChunkWritten:
		return "chunk_written"
	case EventWriteFailed:
		return "write_failed"
	case EventStall:
		return "stall"
	case EventUsageFallback:
		return "usage_fallback"
	case EventStopped:
		return "stopped"
	case EventReleased:
		return "released"
	case EventBestEffortFailure:
		return "best_effort_failure"
	default:
		return "unknown"
	}
}

// Event describes one engine occurrence. Only the fields relevant to Kind are set.
type Event struct {
	Kind       EventKind
	SampleRate int
	Usage      audio.Usage
	BufferSize int
	Bytes      int
	RMS        float64
	Op         string
	Err        error
}
