// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program for the dashboard UI
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Command is a control request from the UI to the audio engine
type Command struct {
	ToggleMuteVFO int     // 1..4, 0 = none
	MasterDelta   float64 // +/- master volume step
	FlushAll      bool
	Quit          bool
}

// Controls holds channels for UI-to-app communication
type Controls struct {
	Commands chan Command
}

// NewControls creates a control channel set
func NewControls() *Controls {
	return &Controls{
		Commands: make(chan Command, 10),
	}
}

// Run starts the TUI
func Run(controls *Controls) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(controls), tea.WithAltScreen())
	return p, nil
}
