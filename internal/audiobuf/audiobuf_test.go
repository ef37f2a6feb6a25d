package audiobuf

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingMeter struct {
	calls int
	last  []float64
}

func (r *recordingMeter) OnAudioFrame(samples []float64, sampleRate int) {
	r.calls++
	r.last = samples
}

func int16Bytes(v int16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(v))
	return b
}

func TestFillFromInterleavedSilence(t *testing.T) {
	b := New(512)
	raw := make([]byte, 512*2)
	b.FillFromInterleaved(raw, 0, 2, 48000)
	assert.Equal(t, 0.0, b.RMS())
}

func TestFillFromInterleavedFullScale(t *testing.T) {
	b := New(4)
	raw := make([]byte, 0, 8)
	for i := 0; i < 4; i++ {
		raw = append(raw, int16Bytes(32767)...)
	}
	b.FillFromInterleaved(raw, 0, 2, 44100)
	assert.InDelta(t, 1.0, b.RMS(), 0.001)
}

func TestAttachNotifiesOnFill(t *testing.T) {
	b := New(8)
	m := &recordingMeter{}
	b.Attach(m)
	raw := make([]byte, 8*2)
	b.FillFromInterleaved(raw, 0, 2, 48000)
	assert.Equal(t, 1, m.calls)
	assert.Len(t, m.last, 8)
}

func TestDetachStopsDelivery(t *testing.T) {
	b := New(8)
	m := &recordingMeter{}
	// Attach before the fill; detach should stop delivery.
	b.Attach(m)
	b.Detach(m)
	raw := make([]byte, 8*2)
	b.FillFromInterleaved(raw, 0, 2, 48000)
	assert.Equal(t, 0, m.calls)
}

func TestComputeMixAverages(t *testing.T) {
	b := New(2)
	left := []float64{1.0, -1.0}
	right := []float64{-1.0, 1.0}
	b.ComputeMix(left, right, 48000)
	assert.Equal(t, []float64{0, 0}, b.Snapshot())
}

func TestSampleRateMismatchLogsNotAborts(t *testing.T) {
	b := New(4)
	raw := make([]byte, 4*2)
	b.FillFromInterleaved(raw, 0, 2, 44100)
	assert.NotPanics(t, func() {
		b.FillFromInterleaved(raw, 0, 2, 48000)
	})
}
