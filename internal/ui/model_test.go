// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests status updates, key actions, event history and rendering
package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
	"github.com/Resonate-Protocol/pcmstream/pkg/pcmstream"
	"github.com/Resonate-Protocol/pcmstream/pkg/volume"
	tea "github.com/charmbracelet/bubbletea"
)

func TestNewModel(t *testing.T) {
	model := NewModel("kitchen", 8927, nil)

	if model.name != "kitchen" || model.port != 8927 {
		t.Errorf("unexpected identity: %s:%d", model.name, model.port)
	}
	if model.showDebug {
		t.Error("expected debug pane hidden initially")
	}
	if model.stats.State != pcmstream.StateUninitialized {
		t.Errorf("expected uninitialized, got %s", model.stats.State)
	}
}

func TestKeyActions(t *testing.T) {
	tests := []struct {
		key      string
		expected Action
	}{
		{"t", ActionTone},
		{"s", ActionStop},
		{"r", ActionRelease},
		{"q", ActionQuit},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			actions := make(chan Action, 1)
			model := NewModel("test", 1, actions)

			model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(tt.key)})

			select {
			case got := <-actions:
				if got != tt.expected {
					t.Errorf("expected %s, got %s", tt.expected, got)
				}
			default:
				t.Errorf("expected action %s", tt.expected)
			}
		})
	}
}

func TestQuitReturnsQuitCmd(t *testing.T) {
	model := NewModel("test", 1, nil)

	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if !updated.(Model).quitting {
		t.Error("expected quitting state")
	}
	if !strings.Contains(updated.View(), "Shutting down") {
		t.Error("expected shutdown view")
	}
}

func TestActionsNeverBlock(t *testing.T) {
	actions := make(chan Action)
	model := NewModel("test", 1, actions)

	done := make(chan struct{})
	go func() {
		model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("t")})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("key handling blocked on a full action channel")
	}
}

func TestDebugToggle(t *testing.T) {
	model := NewModel("test", 1, nil)

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	if !updated.(Model).showDebug {
		t.Error("expected debug pane shown")
	}

	updated, _ = updated.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	if updated.(Model).showDebug {
		t.Error("expected debug pane hidden")
	}
}

func TestApplyStatus(t *testing.T) {
	model := NewModel("test", 1, nil)

	updated, _ := model.Update(StatusMsg{
		Stats: pcmstream.Stats{
			State:      pcmstream.StateActive,
			SampleRate: 16000,
			Usage:      audio.UsageVoiceCommunication,
			BufferSize: 32000,
			Chunks:     12,
			Stalls:     1,
		},
		Mixer:    volume.MixerState{MediaLevel: 11, MediaMax: 15, VoiceLevel: 4, VoiceMax: 5},
		Sessions: 2,
	})

	view := updated.View()
	for _, want := range []string{"active", "16000Hz", "voice", "1000ms", "11/15", "4/5", "1 stalls"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
}

func TestEventHistoryIsBounded(t *testing.T) {
	model := NewModel("test", 1, nil)

	var updated tea.Model = model
	for i := 0; i < maxEvents+5; i++ {
		updated, _ = updated.Update(EventMsg{Event: pcmstream.Event{Kind: pcmstream.EventStall}, At: time.Now()})
	}

	if got := len(updated.(Model).events); got != maxEvents {
		t.Errorf("expected %d events kept, got %d", maxEvents, got)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		ev       pcmstream.Event
		contains string
	}{
		{pcmstream.Event{Kind: pcmstream.EventConfigured, SampleRate: 8000, Usage: audio.UsageMedia}, "configured 8000Hz media"},
		{pcmstream.Event{Kind: pcmstream.EventChunkWritten, Bytes: 960, RMS: 12}, "chunk 960 bytes"},
		{pcmstream.Event{Kind: pcmstream.EventBestEffortFailure, Op: "set audio mode", Err: errors.New("denied")}, "set audio mode failed: denied"},
		{pcmstream.Event{Kind: pcmstream.EventUsageFallback}, "usage_fallback"},
	}

	for _, tt := range tests {
		if got := describe(tt.ev); !strings.Contains(got, tt.contains) {
			t.Errorf("expected %q in %q", tt.contains, got)
		}
	}
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		value, max, width int
		expected          string
	}{
		{0, 10, 4, "[----]"},
		{5, 10, 4, "[##--]"},
		{10, 10, 4, "[####]"},
		{20, 10, 4, "[####]"},
		{1, 0, 2, "[--]"},
	}

	for _, tt := range tests {
		if got := renderBar(tt.value, tt.max, tt.width); got != tt.expected {
			t.Errorf("renderBar(%d, %d, %d): expected %s, got %s", tt.value, tt.max, tt.width, tt.expected, got)
		}
	}
}
