package console

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestUpdateTickRefreshesSnapshot(t *testing.T) {
	calls := 0
	m := NewModel(func() Snapshot {
		calls++
		return Snapshot{DecibelNormalized: 0.5, BPM: 120}
	}, 20)

	_, cmd := m.Update(tickMsg{})
	assert.Equal(t, 1, calls)
	assert.NotNil(t, cmd)
	assert.Equal(t, 0.5, m.latest.DecibelNormalized)
	assert.Equal(t, 120.0, m.latest.BPM)
}

func TestUpdateQuitsOnQKey(t *testing.T) {
	m := NewModel(nil, 20)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.NotNil(t, cmd)
}

func TestEventMsgAppendsAndTrimsLog(t *testing.T) {
	m := NewModel(nil, 20)
	for i := 0; i < maxLogLines+5; i++ {
		_, _ = m.Update(EventMsg{Line: "line"})
	}
	assert.Len(t, m.log, maxLogLines)
}

func TestViewRendersWithoutPanic(t *testing.T) {
	m := NewModel(func() Snapshot {
		return Snapshot{DecibelNormalized: 0.3, BandNormalized: []float64{0.1, 0.9}, GateEnvelope: 0.2, BPM: 128}
	}, 20)
	_, _ = m.Update(tickMsg{})
	out := m.View()
	assert.Contains(t, out, "corelume monitor")
	assert.Contains(t, out, "128.0")
}

func TestWindowSizeMsgUpdatesDimensions(t *testing.T) {
	m := NewModel(nil, 20)
	_, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.Equal(t, 80, m.width)
	assert.Equal(t, 24, m.height)
}
