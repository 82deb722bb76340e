// ABOUTME: Bubbletea model for the daemon status TUI
// ABOUTME: Renders engine stats and mixer levels and turns keys into actions
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Resonate-Protocol/pcmstream/pkg/pcmstream"
	"github.com/Resonate-Protocol/pcmstream/pkg/volume"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Action is a user request from the TUI
type Action int

const (
	ActionTone Action = iota
	ActionStop
	ActionRelease
	ActionQuit
)

func (a Action) String() string {
	switch a {
	case ActionTone:
		return "tone"
	case ActionStop:
		return "stop"
	case ActionRelease:
		return "release"
	case ActionQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// maxEvents is how many recent engine events the debug pane keeps
const maxEvents = 8

// StatusMsg updates TUI state
type StatusMsg struct {
	Stats    pcmstream.Stats
	Mixer    volume.MixerState
	Sessions int
}

// EventMsg appends an engine event to the debug pane
type EventMsg struct {
	Event pcmstream.Event
	At    time.Time
}

type tickMsg time.Time

// Model represents the TUI state
type Model struct {
	name      string
	port      int
	startTime time.Time

	stats    pcmstream.Stats
	mixer    volume.MixerState
	sessions int
	events   []string

	showDebug bool
	quitting  bool

	actions chan<- Action

	width  int
	height int
}

// NewModel creates a model that reports key presses on actions. actions may be nil.
func NewModel(name string, port int, actions chan<- Action) Model {
	return Model{
		name:      name,
		port:      port,
		startTime: time.Now(),
		actions:   actions,
	}
}

func (m Model) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		return m, tickEvery()
	case StatusMsg:
		m.applyStatus(msg)
	case EventMsg:
		m.appendEvent(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		m.send(ActionQuit)
		return m, tea.Quit
	case "t":
		m.send(ActionTone)
	case "s":
		m.send(ActionStop)
	case "r":
		m.send(ActionRelease)
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// send delivers an action without blocking the UI
func (m Model) send(a Action) {
	if m.actions == nil {
		return
	}
	select {
	case m.actions <- a:
	default:
	}
}

func (m *Model) applyStatus(msg StatusMsg) {
	m.stats = msg.Stats
	m.mixer = msg.Mixer
	m.sessions = msg.Sessions
}

func (m *Model) appendEvent(msg EventMsg) {
	line := fmt.Sprintf("%s %s", msg.At.Format("15:04:05"), describe(msg.Event))
	m.events = append(m.events, line)
	if len(m.events) > maxEvents {
		m.events = m.events[len(m.events)-maxEvents:]
	}
}

// describe renders an event as one line
func describe(ev pcmstream.Event) string {
	switch ev.Kind {
	case pcmstream.EventConfigured:
		return fmt.Sprintf("configured %dHz %s buffer=%d", ev.SampleRate, ev.Usage, ev.BufferSize)
	case pcmstream.EventChunkWritten:
		return fmt.Sprintf("chunk %d bytes rms=%.0f", ev.Bytes, ev.RMS)
	case pcmstream.EventBestEffortFailure:
		return fmt.Sprintf("%s failed: %v", ev.Op, ev.Err)
	case pcmstream.EventWriteFailed:
		return fmt.Sprintf("write failed: %v", ev.Err)
	default:
		return ev.Kind.String()
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	alertStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("220"))

	faintStyle = lipgloss.NewStyle().Faint(true)
)

func (m Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("pcmstream"))
	b.WriteString("\n\n")

	field(&b, "Daemon: ", m.name)
	field(&b, "Port: ", fmt.Sprintf("%d", m.port))
	field(&b, "Uptime: ", time.Since(m.startTime).Round(time.Second).String())
	field(&b, "Clients: ", fmt.Sprintf("%d", m.sessions))
	b.WriteString("\n")

	field(&b, "State: ", m.stats.State.String())
	if m.stats.State != pcmstream.StateUninitialized {
		field(&b, "Format: ", fmt.Sprintf("%dHz mono 16-bit, %s", m.stats.SampleRate, m.stats.Usage))
		field(&b, "Buffer: ", fmt.Sprintf("%d bytes (%dms)", m.stats.BufferSize, bufferMillis(m.stats)))
		field(&b, "Played: ", fmt.Sprintf("%d frames", m.stats.PlaybackHead))
	}
	field(&b, "Written: ", fmt.Sprintf("%d chunks, %d bytes", m.stats.Chunks, m.stats.Bytes))
	field(&b, "Level: ", fmt.Sprintf("%s %.0f", renderBar(int(m.stats.LastRMS), 32768, 20), m.stats.LastRMS))
	b.WriteString("\n")

	field(&b, "Media: ", fmt.Sprintf("%s %d/%d", renderBar(m.mixer.MediaLevel, m.mixer.MediaMax, 15), m.mixer.MediaLevel, m.mixer.MediaMax))
	field(&b, "Voice: ", fmt.Sprintf("%s %d/%d", renderBar(m.mixer.VoiceLevel, m.mixer.VoiceMax, 15), m.mixer.VoiceLevel, m.mixer.VoiceMax))
	if m.stats.VolumeCaptured {
		b.WriteString(faintStyle.Render("  (ducked for playback)"))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	recoveries := fmt.Sprintf("%d stalls, %d fallbacks", m.stats.Stalls, m.stats.Fallbacks)
	b.WriteString(headerStyle.Render("Recoveries: "))
	if m.stats.Stalls+m.stats.Fallbacks > 0 {
		b.WriteString(alertStyle.Render(recoveries))
	} else {
		b.WriteString(valueStyle.Render(recoveries))
	}
	b.WriteString("\n")

	if m.showDebug {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("Events"))
		b.WriteString("\n")
		if len(m.events) == 0 {
			b.WriteString(valueStyle.Render("  (none)"))
			b.WriteString("\n")
		}
		for _, line := range m.events {
			b.WriteString(valueStyle.Render("  " + line))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(faintStyle.Render("t:Tone  s:Stop  r:Release  d:Debug  q:Quit"))

	return b.String()
}

func field(b *strings.Builder, label, value string) {
	b.WriteString(headerStyle.Render(label))
	b.WriteString(valueStyle.Render(value))
	b.WriteString("\n")
}

func bufferMillis(s pcmstream.Stats) int {
	if s.SampleRate <= 0 {
		return 0
	}
	return s.BufferSize * 1000 / (s.SampleRate * 2)
}

// renderBar draws value/max as a bar of width cells
func renderBar(value, max, width int) string {
	if max <= 0 {
		return "[" + strings.Repeat("-", width) + "]"
	}
	filled := value * width / max
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}
