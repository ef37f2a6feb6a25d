// Package console is a read-only debug monitor: live meter bars, gate
// envelope, BPM and a scrolling MIDI event log. It never mutates engine
// state; the lighting-render UI itself stays an external collaborator
// (spec §1), this is purely for watching the engine while it runs.
package console

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxLogLines = 12

// Snapshot is one rendered frame's worth of read-only engine state.
type Snapshot struct {
	DecibelNormalized float64
	BandNormalized    []float64
	GateEnvelope      float64
	BPM               float64
}

// SnapshotFunc is polled once per redraw tick.
type SnapshotFunc func() Snapshot

// EventMsg appends one line to the scrolling MIDI event log. Send it to the
// running *tea.Program from the engine's MIDI listener.
type EventMsg struct{ Line string }

type tickMsg struct{}

func tick(fps int) tea.Cmd {
	if fps <= 0 {
		fps = 20
	}
	interval := time.Second / time.Duration(fps)
	return tea.Tick(interval, func(time.Time) tea.Msg { return tickMsg{} })
}

// Model is the bubbletea model for the monitor.
type Model struct {
	snapshot SnapshotFunc
	fps      int

	width, height int
	latest        Snapshot
	log           []string
}

// NewModel constructs a console Model polling snapshot at fps redraws per
// second.
func NewModel(snapshot SnapshotFunc, fps int) *Model {
	return &Model{snapshot: snapshot, fps: fps}
}

func (m *Model) Init() tea.Cmd {
	return tick(m.fps)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		return m, nil

	case tickMsg:
		if m.snapshot != nil {
			m.latest = m.snapshot()
		}
		return m, tick(m.fps)

	case EventMsg:
		m.log = append(m.log, msg.Line)
		if len(m.log) > maxLogLines {
			m.log = m.log[len(m.log)-maxLogLines:]
		}
		return m, nil
	}
	return m, nil
}

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	logStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	headStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("7")).Bold(true)
)

func bar(normalized float64, width int) string {
	if width < 1 {
		width = 20
	}
	filled := int(normalized*float64(width) + 0.5)
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return barStyle.Render(strings.Repeat("#", filled)) + strings.Repeat(".", width-filled)
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(headStyle.Render("corelume monitor") + "\n\n")

	b.WriteString(labelStyle.Render("level ") + bar(m.latest.DecibelNormalized, 30) +
		fmt.Sprintf(" %.2f\n", m.latest.DecibelNormalized))

	for i, v := range m.latest.BandNormalized {
		b.WriteString(labelStyle.Render(fmt.Sprintf("band%2d", i)) + " " + bar(v, 30) + "\n")
	}

	b.WriteString(labelStyle.Render("gate  ") + bar(m.latest.GateEnvelope, 30) +
		fmt.Sprintf(" %.2f\n", m.latest.GateEnvelope))

	b.WriteString(fmt.Sprintf("\n%s %.1f\n\n", labelStyle.Render("bpm"), m.latest.BPM))

	b.WriteString(headStyle.Render("midi") + "\n")
	for _, line := range m.log {
		b.WriteString(logStyle.Render(line) + "\n")
	}

	b.WriteString("\n" + labelStyle.Render("q to quit"))
	return b.String()
}

// NewProgram wraps Model in a *tea.Program, matching the donor's
// tea.NewProgram(tm, tea.WithAltScreen()) shape.
func NewProgram(snapshot SnapshotFunc, fps int) *tea.Program {
	return tea.NewProgram(NewModel(snapshot, fps), tea.WithAltScreen())
}
