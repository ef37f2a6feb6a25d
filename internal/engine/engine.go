// Package engine is the tick glue: it owns no singletons, only the
// explicit, caller-constructed registries for one audio/MIDI engine
// instance, and drives them in the dependency order spec §5 requires:
// AudioBuffer (implicit, already filled by the capture/playback thread) ->
// DecibelMeter -> GraphicMeter -> BandMeter/BandGate -> SoundObject ->
// listeners, with the MIDI queue drained in the same tick.
package engine

import (
	"time"

	"github.com/corelume/engine/internal/beatgate"
	"github.com/corelume/engine/internal/meter"
	"github.com/corelume/engine/internal/midi"
	"github.com/corelume/engine/internal/soundobject"
)

// GateBinding pairs a BandGate with the BandMeter whose range its threshold
// test reads from (spec §4.E/§4.D share a frequency range but are distinct
// components, so the wiring between them is explicit, not implicit).
type GateBinding struct {
	Gate   *beatgate.BandGate
	Source *meter.BandMeter
}

// Engine is one instance of the control-tick pipeline. Multiple Engines may
// coexist in one process (spec Open Question: no process-wide registries).
type Engine struct {
	decibelMeters []*meter.DecibelMeter
	bandMeters    []*meter.BandMeter
	gates         []GateBinding
	soundObjects  []*soundobject.SoundObject

	midi *midi.Engine

	listeners []func()

	lastTick time.Time
	started  bool
}

// New constructs an empty Engine wired to the given MIDI engine (which may
// be nil if this instance has no MIDI plane).
func New(midiEngine *midi.Engine) *Engine {
	return &Engine{midi: midiEngine}
}

func (e *Engine) AddDecibelMeter(m *meter.DecibelMeter) { e.decibelMeters = append(e.decibelMeters, m) }
func (e *Engine) AddBandMeter(m *meter.BandMeter)       { e.bandMeters = append(e.bandMeters, m) }
func (e *Engine) AddGate(b GateBinding)                 { e.gates = append(e.gates, b) }
func (e *Engine) AddSoundObject(s *soundobject.SoundObject) {
	e.soundObjects = append(e.soundObjects, s)
}

// AddListener registers a post-tick observer notified once every stage has
// run (spec §5 "meters update in dependency order ... -> listeners").
func (e *Engine) AddListener(fn func()) { e.listeners = append(e.listeners, fn) }

// MIDI returns the wired MIDI engine, or nil.
func (e *Engine) MIDI() *midi.Engine { return e.midi }

// Tick runs one control tick at wall-clock time now. The first call
// establishes the tick baseline and contributes a zero-length delta.
func (e *Engine) Tick(now time.Time) {
	var deltaMs float64
	if e.started {
		deltaMs = float64(now.Sub(e.lastTick).Microseconds()) / 1000.0
	}
	e.lastTick = now
	e.started = true

	for _, m := range e.decibelMeters {
		m.Tick()
	}
	// GraphicMeter has no per-tick step: it recomputes in OnAudioFrame, on
	// the audio thread, and BandMeter.Tick reads its latest snapshot below.
	for _, m := range e.bandMeters {
		m.Tick(deltaMs)
	}
	for _, g := range e.gates {
		if g.Source == nil || g.Gate == nil {
			continue
		}
		g.Gate.Update(g.Source.RangeNormalized(), deltaMs)
	}
	for _, s := range e.soundObjects {
		s.Tick(deltaMs)
	}

	if e.midi != nil {
		e.midi.Tick()
	}

	for _, l := range e.listeners {
		l()
	}
}
