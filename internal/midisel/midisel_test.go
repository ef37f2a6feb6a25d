package midisel

import (
	"testing"

	"github.com/corelume/engine/internal/midi"
	"github.com/stretchr/testify/assert"
)

func TestSelectorResolvesByNameAndIndex(t *testing.T) {
	s := NewSelector("Launchpad", 1)
	a := &midi.Source{Name: "Launchpad", Index: 1}
	b := &midi.Source{Name: "Other", Index: 0}

	s.Resolve([]*midi.Source{b, a})
	assert.False(t, s.MissingDevice)
	assert.Same(t, a, s.Source())
}

func TestSelectorRetainsBoundReferenceAcrossReResolve(t *testing.T) {
	s := NewSelector("Launchpad", 1)
	a := &midi.Source{Name: "Launchpad", Index: 1}
	s.Resolve([]*midi.Source{a})
	assert.Same(t, a, s.Source())

	// Same object still present, even if something else also matches by name.
	other := &midi.Source{Name: "Launchpad", Index: 1}
	s.Resolve([]*midi.Source{a, other})
	assert.Same(t, a, s.Source())
}

func TestSelectorSetsMissingDeviceWhenGone(t *testing.T) {
	s := NewSelector("Launchpad", 1)
	a := &midi.Source{Name: "Launchpad", Index: 1}
	s.Resolve([]*midi.Source{a})
	assert.False(t, s.MissingDevice)

	s.Resolve([]*midi.Source{{Name: "Other", Index: 0}})
	assert.True(t, s.MissingDevice)
	assert.Equal(t, "Launchpad", s.Name)
	assert.Equal(t, 1, s.Index)
}

func TestSelectorReResolvesOnceDeviceReturns(t *testing.T) {
	s := NewSelector("Launchpad", 1)
	s.Resolve(nil)
	assert.True(t, s.MissingDevice)

	a := &midi.Source{Name: "Launchpad", Index: 1}
	s.Resolve([]*midi.Source{a})
	assert.False(t, s.MissingDevice)
	assert.Same(t, a, s.Source())
}

func TestFilterChannelGating(t *testing.T) {
	f := NewFilter()
	f.Channel = OnChannel(3)
	msg := midi.CCMessage(nil, 3, 7, 64)
	assert.True(t, f.Filter(msg))
	msg.Channel = 4
	assert.False(t, f.Filter(msg))
}

func TestFilterDisabledRejectsEverything(t *testing.T) {
	f := NewFilter()
	f.Enabled = false
	assert.False(t, f.Filter(midi.CCMessage(nil, 0, 7, 64)))
}

func TestFilterNoteRange(t *testing.T) {
	f := NewFilter()
	f.MinNote, f.NoteSpan = 60, 12
	assert.True(t, f.Filter(midi.NoteOn(nil, 0, 60, 100)))
	assert.True(t, f.Filter(midi.NoteOn(nil, 0, 71, 100)))
	assert.False(t, f.Filter(midi.NoteOn(nil, 0, 72, 100)))
	assert.False(t, f.Filter(midi.NoteOn(nil, 0, 59, 100)))
}

func TestFilterVelocityRejectionSuppressesMatchingNoteOff(t *testing.T) {
	f := NewFilter()
	f.MinVelocity, f.VelocitySpan = 64, 64 // [64,128]

	on := midi.NoteOn(nil, 0, 60, 10) // rejected by velocity
	assert.False(t, f.Filter(on))

	off := midi.NoteOff(nil, 0, 60)
	assert.False(t, f.Filter(off), "note-off for a rejected note-on must be suppressed")
}

func TestFilterAdmittedNoteOnAlwaysAdmitsNoteOff(t *testing.T) {
	f := NewFilter()
	f.MinVelocity, f.VelocitySpan = 64, 64

	on := midi.NoteOn(nil, 0, 60, 100)
	assert.True(t, f.Filter(on))

	off := midi.NoteOff(nil, 0, 60)
	assert.True(t, f.Filter(off))
}

func TestFilterVelocityRangeIsInclusiveOfUpperBound(t *testing.T) {
	// Spec §8 scenario 4, literal: minVelocity=90, velocityRange=10,
	// velocity=100 must be admitted (100 == 90+10, the inclusive top edge).
	f := NewFilter()
	f.MinVelocity, f.VelocitySpan = 90, 10

	on := midi.NoteOn(nil, 0, 60, 100)
	assert.True(t, f.Filter(on))

	off := midi.NoteOff(nil, 0, 60)
	assert.True(t, f.Filter(off))
}

func TestFilterVelocityRangeRejectsAboveUpperBound(t *testing.T) {
	f := NewFilter()
	f.MinVelocity, f.VelocitySpan = 90, 10

	assert.False(t, f.Filter(midi.NoteOn(nil, 0, 60, 101)))
}

func TestFilterFIFOPerPitchDeficitCounter(t *testing.T) {
	f := NewFilter()
	f.MinVelocity, f.VelocitySpan = 64, 64

	// Two rejected note-ons on the same pitch (e.g. retriggered softly twice).
	assert.False(t, f.Filter(midi.NoteOn(nil, 0, 60, 10)))
	assert.False(t, f.Filter(midi.NoteOn(nil, 0, 60, 20)))

	// First note-off consumes one deficit, still suppressed.
	assert.False(t, f.Filter(midi.NoteOff(nil, 0, 60)))
	// Second note-off consumes the other, also suppressed.
	assert.False(t, f.Filter(midi.NoteOff(nil, 0, 60)))
	// A third, unrelated note-off with no deficit left is admitted.
	assert.True(t, f.Filter(midi.NoteOff(nil, 0, 60)))
}
