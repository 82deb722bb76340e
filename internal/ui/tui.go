// ABOUTME: TUI program wrapper
// ABOUTME: Runs the bubbletea program and forwards status and events into it
package ui

import (
	"time"

	"github.com/Resonate-Protocol/pcmstream/pkg/pcmstream"
	tea "github.com/charmbracelet/bubbletea"
)

// TUI runs the daemon status display
type TUI struct {
	program *tea.Program
	actions chan Action
}

// New creates a TUI for the daemon name and port
func New(name string, port int) *TUI {
	actions := make(chan Action, 10)
	return &TUI{
		program: tea.NewProgram(NewModel(name, port, actions), tea.WithAltScreen()),
		actions: actions,
	}
}

// Actions returns key-press actions
func (t *TUI) Actions() <-chan Action {
	return t.actions
}

// Run blocks until the user quits or Stop is called
func (t *TUI) Run() error {
	_, err := t.program.Run()
	return err
}

// Update sends a status snapshot to the display
func (t *TUI) Update(status StatusMsg) {
	t.program.Send(status)
}

// Event records an engine event. It never blocks the caller.
func (t *TUI) Event(ev pcmstream.Event) {
	go t.program.Send(EventMsg{Event: ev, At: time.Now()})
}

// Stop ends the program
func (t *TUI) Stop() {
	t.program.Quit()
}
