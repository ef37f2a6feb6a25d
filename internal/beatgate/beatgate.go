// Package beatgate implements the threshold/floor hysteresis beat trigger
// over a band-range normalized meter, plus tap-tempo feedback (spec
// component E).
package beatgate

import "sync"

// TempoTap receives trigger notifications for tap-tempo averaging.
// internal/engine wires this to whatever tempo clock is active; BandGate has
// no opinion about what consumes taps.
type TempoTap interface {
	Tap()
}

// BandGate is a rising-edge trigger with floor hysteresis over a
// band-range's normalized average, plus a decaying envelope output.
type BandGate struct {
	MinHz     float64
	MaxHz     float64
	Threshold float64 // [0,1]
	Floor     float64 // fraction of Threshold, [0,1]
	DecayMs   float64

	TapTempoEnabled bool
	tempo           TempoTap

	mu              sync.Mutex
	waitingForFloor bool
	envelope        float64
	tapCount        int
	lastTrigger     bool
}

// New constructs a BandGate over [minHz,maxHz] with the given threshold,
// floor fraction and decay time.
func New(minHz, maxHz, threshold, floor, decayMs float64) *BandGate {
	return &BandGate{MinHz: minHz, MaxHz: maxHz, Threshold: threshold, Floor: floor, DecayMs: decayMs}
}

// SetTempoTap wires a tempo-tap sink; taps stop being forwarded once
// TapTempoEnabled flips false (spec §4.E: after 4 taps, tap tempo disables
// itself).
func (g *BandGate) SetTempoTap(t TempoTap) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tempo = t
}

// Update advances the state machine for one control tick given the current
// band-range normalized average (already clamped to [0,1] — see DESIGN.md
// Open Question #2: the floor comparison reads the post-clamp value) and the
// tick's delta time in ms. It returns whether a TRIGGER pulse fired this
// tick.
func (g *BandGate) Update(normalizedAvg float64, deltaMs float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.DecayMs > 0 {
		g.envelope -= deltaMs / g.DecayMs
	}
	if g.envelope < 0 {
		g.envelope = 0
	}

	triggered := false
	if !g.waitingForFloor {
		if normalizedAvg >= g.Threshold && g.Threshold > 0 {
			triggered = true
			g.envelope = 1
			g.waitingForFloor = true
			g.onTriggerLocked()
		}
	} else {
		if normalizedAvg < g.Threshold*g.Floor {
			g.waitingForFloor = false
		}
	}

	g.lastTrigger = triggered
	return triggered
}

func (g *BandGate) onTriggerLocked() {
	if !g.TapTempoEnabled || g.tempo == nil {
		return
	}
	g.tempo.Tap()
	g.tapCount++
	if g.tapCount >= 4 {
		g.TapTempoEnabled = false
		g.tapCount = 0
	}
}

// Envelope returns the current decay envelope, in [0,1].
func (g *BandGate) Envelope() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.envelope
}

// WaitingForFloor reports whether the gate is armed (false) or waiting for
// the signal to fall back below threshold*floor (true).
func (g *BandGate) WaitingForFloor() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.waitingForFloor
}

// LastTrigger reports whether the most recent Update call produced a
// TRIGGER pulse.
func (g *BandGate) LastTrigger() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastTrigger
}
