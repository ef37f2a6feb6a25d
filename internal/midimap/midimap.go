// Package midimap implements note and CC mapping targets: boolean,
// discrete, and normalized-continuous parameters driven by MIDI messages,
// plus coalescing of rapid CC updates into single undoable actions (spec
// component K, entity MidiMapping).
package midimap

import (
	"math/rand"

	"github.com/corelume/engine/internal/midi"
)

// BooleanTarget is a settable on/off parameter.
type BooleanTarget interface {
	Set(bool)
}

// DiscreteTarget is a settable bounded integer parameter, inclusive range
// [0, Max()].
type DiscreteTarget interface {
	Value() int
	SetValue(int)
	Max() int
}

// ContinuousTarget is a settable normalized-[0,1] parameter.
type ContinuousTarget interface {
	SetNormalized(float64)
}

// BooleanMode selects how a note drives a BooleanTarget (spec §4.K).
type BooleanMode int

const (
	ModeToggle BooleanMode = iota
	ModeMomentary
	ModeOn
	ModeOff
)

// DiscreteMode selects how a note drives a DiscreteTarget (spec §4.K).
type DiscreteMode int

const (
	ModeIncrement DiscreteMode = iota
	ModeDecrement
	ModeFixed
	ModeRandom
)

// TargetKind tags which of the three NoteMapping target shapes is active.
type TargetKind int

const (
	TargetBoolean TargetKind = iota
	TargetDiscrete
	TargetContinuous
)

// NoteMapping binds one (channel, pitch) pair to a single target, per spec
// §4.K "Note mapping".
type NoteMapping struct {
	Channel uint8
	Pitch   uint8
	Kind    TargetKind

	Boolean     BooleanTarget
	BooleanMode BooleanMode

	Discrete     DiscreteTarget
	DiscreteMode DiscreteMode
	FixedValue   int

	Continuous       ContinuousTarget
	ContinuousMode   BooleanMode
	OnValue, OffValue float64
}

// Matches implements midi.Mapping: a NoteMapping fires on note-on and
// note-off for its (channel, pitch).
func (n *NoteMapping) Matches(msg midi.Message) bool {
	if msg.Kind != midi.KindNoteOn && msg.Kind != midi.KindNoteOff {
		return false
	}
	return msg.Channel == n.Channel && msg.Pitch == n.Pitch
}

// Apply implements midi.Mapping (spec §4.K "Note mapping").
func (n *NoteMapping) Apply(msg midi.Message) {
	isOn := msg.Kind == midi.KindNoteOn

	switch n.Kind {
	case TargetBoolean:
		n.applyBoolean(isOn)
	case TargetDiscrete:
		if isOn {
			n.applyDiscrete()
		}
	case TargetContinuous:
		n.applyContinuous(isOn)
	}
}

func (n *NoteMapping) applyBoolean(isOn bool) {
	if n.Boolean == nil {
		return
	}
	switch n.BooleanMode {
	case ModeToggle:
		if isOn {
			// Toggle has no persisted prior value of its own; callers wire
			// BooleanTarget.Set so reading current state is the target's job.
			if r, ok := n.Boolean.(interface{ Get() bool }); ok {
				n.Boolean.Set(!r.Get())
			}
		}
	case ModeMomentary:
		n.Boolean.Set(isOn)
	case ModeOn:
		if isOn {
			n.Boolean.Set(true)
		}
	case ModeOff:
		if isOn {
			n.Boolean.Set(false)
		}
	}
}

func (n *NoteMapping) applyDiscrete() {
	if n.Discrete == nil {
		return
	}
	switch n.DiscreteMode {
	case ModeIncrement:
		v := n.Discrete.Value() + 1
		if v > n.Discrete.Max() {
			v = n.Discrete.Max()
		}
		n.Discrete.SetValue(v)
	case ModeDecrement:
		v := n.Discrete.Value() - 1
		if v < 0 {
			v = 0
		}
		n.Discrete.SetValue(v)
	case ModeFixed:
		n.Discrete.SetValue(clampInt(n.FixedValue, 0, n.Discrete.Max()))
	case ModeRandom:
		n.Discrete.SetValue(rand.Intn(n.Discrete.Max() + 1))
	}
}

func (n *NoteMapping) applyContinuous(isOn bool) {
	if n.Continuous == nil {
		return
	}
	switch n.ContinuousMode {
	case ModeToggle:
		// Driven identically to boolean TOGGLE (spec §4.K): note-on flips a
		// persisted on/off value, note-off is ignored. Mirrors applyBoolean's
		// Get()-probe pattern since ContinuousTarget itself has no getter.
		if isOn {
			if r, ok := n.Continuous.(interface{ Get() float64 }); ok {
				if r.Get() == n.OnValue {
					n.Continuous.SetNormalized(n.OffValue)
				} else {
					n.Continuous.SetNormalized(n.OnValue)
				}
			}
		}
	case ModeMomentary:
		if isOn {
			n.Continuous.SetNormalized(n.OnValue)
		} else {
			n.Continuous.SetNormalized(n.OffValue)
		}
	case ModeOn:
		if isOn {
			n.Continuous.SetNormalized(n.OnValue)
		}
	case ModeOff:
		if isOn {
			n.Continuous.SetNormalized(n.OffValue)
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
