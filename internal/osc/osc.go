// Package osc bridges OSC-originated updates to the MIDI engine and the
// sound-object subsystem (spec §6 "OSC-originated updates"): /note, /cc,
// /pitchbend synthesize internal MIDI messages tagged Source=OSC; separate
// paths drive per-object meter input, beat, bpm, and AED/XYZ position.
package osc

import (
	"fmt"
	"log"
	"math"

	"github.com/corelume/engine/internal/midi"
	"github.com/hypebeast/go-osc/osc"
)

// PositionTarget is the subset of *soundobject.SoundObject the bridge needs
// to drive position updates without importing that package back (both
// packages are leaves; avoiding the import keeps registries swappable in
// tests).
type PositionTarget interface {
	SetPolar(azimuth, elevation, distance float64)
	SetCartesian(x, y, z float64)
}

// InputTarget is the subset needed to drive a per-object meter update.
type InputTarget interface {
	SetInput(v float64)
}

// TempoSink receives /bpm and /beat updates. Shares its shape with
// midi.TempoSink so the same tempo clock can be wired to both.
type TempoSink interface {
	SetPeriod(nanos int64)
	TriggerBeat()
}

// Bridge owns an OSC server/dispatcher and the explicit, caller-supplied
// registries it routes into; no package-level state, so multiple Bridges
// (and engines) can coexist in one process.
type Bridge struct {
	server     *osc.Server
	dispatcher *osc.StandardDispatcher

	engine *midi.Engine
	source *midi.Source

	meters    map[int]InputTarget
	positions map[int]PositionTarget
	tempo     TempoSink

	log *log.Logger
}

// New constructs a Bridge listening on addr (e.g. ":9000"), routing
// synthesized MIDI into engine tagged as an OSC virtual source.
func New(addr string, engine *midi.Engine, logger *log.Logger) *Bridge {
	if logger == nil {
		logger = log.Default()
	}
	d := osc.NewStandardDispatcher()
	b := &Bridge{
		server:     &osc.Server{Addr: addr, Dispatcher: d},
		dispatcher: d,
		engine:     engine,
		source:     &midi.Source{Name: "osc", Kind: midi.SourceVirtualOSC, AllowsRouting: true},
		meters:     make(map[int]InputTarget),
		positions:  make(map[int]PositionTarget),
		log:        logger,
	}
	b.registerHandlers()
	return b
}

// RegisterMeter binds object index k's meter path to target (spec §6
// "meter update for source k = float").
func (b *Bridge) RegisterMeter(k int, target InputTarget) { b.meters[k] = target }

// RegisterPosition binds object index n's position paths to target (spec §6
// "position of object n in AED or XYZ").
func (b *Bridge) RegisterPosition(n int, target PositionTarget) { b.positions[n] = target }

// SetTempoSink wires the /beat and /bpm paths to a tempo clock.
func (b *Bridge) SetTempoSink(t TempoSink) { b.tempo = t }

// ListenAndServe runs the OSC server; blocks until it errors or is closed.
// Intended to be launched in its own goroutine, matching the donor's OSC
// server startup shape.
func (b *Bridge) ListenAndServe() error {
	return b.server.ListenAndServe()
}

func (b *Bridge) registerHandlers() {
	b.dispatcher.AddMsgHandler("/note", b.handleNote)
	b.dispatcher.AddMsgHandler("/cc", b.handleCC)
	b.dispatcher.AddMsgHandler("/pitchbend", b.handlePitchBend)
	b.dispatcher.AddMsgHandler("/bpm", b.handleBPM)
	b.dispatcher.AddMsgHandler("/beat", b.handleBeat)

	for n := 0; n < maxRegisteredObjects; n++ {
		idx := n
		b.dispatcher.AddMsgHandler(fmt.Sprintf("/object/%d/meter", idx), func(msg *osc.Message) { b.handleMeter(idx, msg) })
		b.dispatcher.AddMsgHandler(fmt.Sprintf("/object/%d/aed", idx), func(msg *osc.Message) { b.handleAED(idx, msg) })
		b.dispatcher.AddMsgHandler(fmt.Sprintf("/object/%d/xyz", idx), func(msg *osc.Message) { b.handleXYZ(idx, msg) })
	}
}

// maxRegisteredObjects bounds how many per-object OSC paths get registered
// up front; callers with more objects than this should extend the bridge.
const maxRegisteredObjects = 64

func (b *Bridge) handleNote(msg *osc.Message) {
	pitch, velocity, channel, err := int32Args3(msg)
	if err != nil {
		b.log.Printf("[osc] /note: %v", err)
		return
	}
	if velocity == 0 {
		b.engine.Enqueue(midi.NoteOff(b.source, uint8(channel), uint8(pitch)))
	} else {
		b.engine.Enqueue(midi.NoteOn(b.source, uint8(channel), uint8(pitch), uint8(velocity)))
	}
}

func (b *Bridge) handleCC(msg *osc.Message) {
	value, cc, channel, err := int32Args3(msg)
	if err != nil {
		b.log.Printf("[osc] /cc: %v", err)
		return
	}
	b.engine.Enqueue(midi.CCMessage(b.source, uint8(channel), uint8(cc), uint8(value)))
}

func (b *Bridge) handlePitchBend(msg *osc.Message) {
	if len(msg.Arguments) < 2 {
		b.log.Printf("[osc] /pitchbend: expected (msb, channel)")
		return
	}
	msb, err := asInt32(msg.Arguments[0])
	if err != nil {
		b.log.Printf("[osc] /pitchbend msb: %v", err)
		return
	}
	channel, err := asInt32(msg.Arguments[1])
	if err != nil {
		b.log.Printf("[osc] /pitchbend channel: %v", err)
		return
	}
	bend := int16(msb)*128 - 8192 // coarse-only 14-bit equivalent, centered at 0
	b.engine.Enqueue(midi.Message{Kind: midi.KindPitchBend, Source: b.source, Channel: uint8(channel), PitchBendValue: bend})
}

func (b *Bridge) handleBPM(msg *osc.Message) {
	if b.tempo == nil || len(msg.Arguments) < 1 {
		return
	}
	bpm, err := asFloat64(msg.Arguments[0])
	if err != nil {
		b.log.Printf("[osc] /bpm: %v", err)
		return
	}
	if bpm <= 0 {
		b.log.Printf("[osc] /bpm: non-positive value %v ignored", bpm)
		return
	}
	periodNanos := int64(60.0 / bpm * 1e9)
	b.tempo.SetPeriod(periodNanos)
}

func (b *Bridge) handleBeat(msg *osc.Message) {
	if b.tempo != nil {
		b.tempo.TriggerBeat()
	}
}

func (b *Bridge) handleMeter(k int, msg *osc.Message) {
	target, ok := b.meters[k]
	if !ok || len(msg.Arguments) < 1 {
		return
	}
	v, err := asFloat64(msg.Arguments[0])
	if err != nil {
		b.log.Printf("[osc] /object/%d/meter: %v", k, err)
		return
	}
	target.SetInput(v)
}

func (b *Bridge) handleAED(n int, msg *osc.Message) {
	target, ok := b.positions[n]
	if !ok || len(msg.Arguments) < 3 {
		return
	}
	azCCW, el, dist, err := float64Args3(msg)
	if err != nil {
		b.log.Printf("[osc] /object/%d/aed: %v", n, err)
		return
	}
	az, el := NormalizeAED(azCCW, el)
	target.SetPolar(az, el, dist)
}

func (b *Bridge) handleXYZ(n int, msg *osc.Message) {
	target, ok := b.positions[n]
	if !ok || len(msg.Arguments) < 3 {
		return
	}
	x, y, z, err := float64Args3(msg)
	if err != nil {
		b.log.Printf("[osc] /object/%d/xyz: %v", n, err)
		return
	}
	target.SetCartesian(x, y, z)
}

// NormalizeAED converts an incoming ADM-OSC azimuth/elevation pair
// (counter-clockwise azimuth, unbounded elevation) to this system's
// internal convention: clockwise azimuth, elevation reflected into
// [-90, 90] through the pole with a 180-degree azimuth rotation, per spec
// §6 "Azimuth convention".
func NormalizeAED(azimuthCCW, elevation float64) (azimuth, elevationNorm float64) {
	az := -azimuthCCW
	el := elevation

	for el > 90 || el < -90 {
		if el > 90 {
			el = 180 - el
		} else {
			el = -180 - el
		}
		az += 180
	}

	az = math.Mod(az, 360)
	if az > 180 {
		az -= 360
	} else if az < -180 {
		az += 360
	}
	return az, el
}
