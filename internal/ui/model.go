// ABOUTME: Bubbletea model for the ground-station audio dashboard
// ABOUTME: Renders per-VFO level meters, mute state, and tracking status
package ui

import (
	"fmt"
	"strings"

	"github.com/GroundLink-Project/groundlink-go/internal/audio"
	tea "github.com/charmbracelet/bubbletea"
)

// StatusMsg is a periodic snapshot pushed by the app
type StatusMsg struct {
	Connected   bool
	StationName string

	Satellite    string
	AzimuthDeg   float64
	ElevationDeg float64
	Tracking     bool

	MasterVolume  float64
	Mutes         [audio.MaxVFO + 1]bool
	Volumes       [audio.MaxVFO + 1]float64
	Levels        [audio.MaxVFO + 1]float64
	BufferedAhead float64

	Received  int64
	Scheduled int64
	Dropped   int64
	Flushed   int64
}

// Model represents the TUI state
type Model struct {
	status    StatusMsg
	showDebug bool
	controls  *Controls

	width  int
	height int
}

// NewModel creates a new TUI model
func NewModel(controls *Controls) Model {
	m := Model{controls: controls}
	m.status.MasterVolume = 1.0
	for n := audio.MinVFO; n <= audio.MaxVFO; n++ {
		m.status.Volumes[n] = 1.0
	}
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.status = msg
	}

	return m, nil
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.send(Command{Quit: true})
		return m, tea.Quit
	case "1", "2", "3", "4":
		vfoNum := int(msg.String()[0] - '0')
		m.send(Command{ToggleMuteVFO: vfoNum})
	case "+", "=", "up":
		m.send(Command{MasterDelta: 0.05})
	case "-", "down":
		m.send(Command{MasterDelta: -0.05})
	case "f":
		m.send(Command{FlushAll: true})
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// send forwards a command without blocking the update loop
func (m Model) send(cmd Command) {
	if m.controls == nil {
		return
	}
	select {
	case m.controls.Commands <- cmd:
	default:
	}
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderVFOs()
	s += m.renderStats()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

// renderHeader renders connection and tracking status
func (m Model) renderHeader() string {
	connStatus := "Disconnected"
	if m.status.Connected {
		connStatus = fmt.Sprintf("Connected to %s", m.status.StationName)
	}

	trackText := "Idle"
	if m.status.Tracking {
		trackText = fmt.Sprintf("%s  az %5.1f°  el %4.1f°",
			m.status.Satellite, m.status.AzimuthDeg, m.status.ElevationDeg)
	}

	return fmt.Sprintf(`┌─ GroundLink ─────────────────────────────────────────┐
│ Status:   %-42s │
│ Tracking: %-42s │
├──────────────────────────────────────────────────────┤
`, truncate(connStatus, 42), truncate(trackText, 42))
}

// renderVFOs renders one meter row per VFO
func (m Model) renderVFOs() string {
	s := ""
	for n := audio.MinVFO; n <= audio.MaxVFO; n++ {
		muteIcon := " "
		if m.status.Mutes[n] {
			muteIcon = "M"
		}

		meter := renderBar(m.status.Levels[n], 20)
		s += fmt.Sprintf("│ VFO %d [%s] %s vol %3.0f%%%-12s │\n",
			n, meter, muteIcon, m.status.Volumes[n]*100, "")
	}

	s += fmt.Sprintf("│ Master volume: %3.0f%%  Buffered: %4.0fms%-12s │\n",
		m.status.MasterVolume*100, m.status.BufferedAhead*1000, "")

	return s
}

// renderStats renders playback statistics
func (m Model) renderStats() string {
	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Stats: RX %-7d Sched %-7d Drop %-5d Flush %-4d│
`, m.status.Received, m.status.Scheduled, m.status.Dropped, m.status.Flushed)
}

// renderDebug renders debug information
func (m Model) renderDebug() string {
	return fmt.Sprintf("│ DEBUG: buffered ahead %.3fs%-25s │\n", m.status.BufferedAhead, "")
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `│ 1-4:Mute VFO  +/-:Volume  f:Flush  d:Debug  q:Quit  │
└──────────────────────────────────────────────────────┘
`
}

// renderBar renders a level meter of the given width
func renderBar(level float64, width int) string {
	if level < 0 {
		level = 0
	} else if level > 1 {
		level = 1
	}

	filled := int(level * float64(width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// truncate shortens a string to maxLen
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
