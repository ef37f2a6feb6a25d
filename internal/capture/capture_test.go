package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPriorityOrder(t *testing.T) {
	assert.Equal(t, formatCandidate{channels: 2, sampleRate: 48000}, formatPriority[0])
	assert.Equal(t, formatCandidate{channels: 1, sampleRate: 44100}, formatPriority[3])
}

func TestInt16SliceToBytesLittleEndian(t *testing.T) {
	out := int16SliceToBytes([]int16{1, -1})
	assert.Equal(t, []byte{1, 0, 0xff, 0xff}, out)
}

func TestSelectDisabledIsNoop(t *testing.T) {
	c := New()
	err := c.Select(Device{Name: "x"}, false)
	assert.NoError(t, err)
	assert.False(t, c.Connected())
}

func TestSelectUnavailablePlaceholderIsNoop(t *testing.T) {
	c := New()
	err := c.Select(Device{Name: "Unavailable", Unavailable: true}, true)
	assert.NoError(t, err)
	assert.False(t, c.Connected())
}

func TestOnDisconnectPublishesFalse(t *testing.T) {
	c := New()
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	c.OnDisconnect()
	assert.False(t, c.Connected())
}

func TestStopAndResumeToggleFlag(t *testing.T) {
	c := New()
	c.Resume()
	c.mu.Lock()
	stopped := c.stopped
	c.mu.Unlock()
	assert.False(t, stopped)

	c.Stop()
	c.mu.Lock()
	stopped = c.stopped
	c.mu.Unlock()
	assert.True(t, stopped)
}

func TestCloseIsIdempotentAndNeverPanics(t *testing.T) {
	c := New()
	assert.NotPanics(t, func() {
		c.Close()
		c.Close()
	})
}
