package midi

import (
	"fmt"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// pollInterval is the hotplug cadence; device changes are always found by
// polling, never by a driver connect/disconnect callback.
const pollInterval = 5 * time.Second

const clockPPQ = 24 // MIDI beat clock pulses per quarter note

// InTerminal is a live input device: its Source identity plus the stop
// function for its listener goroutine.
type InTerminal struct {
	Source *Source

	port drivers.In
	stop func()

	mu          sync.Mutex
	pulseCount  int
	lastPulseAt time.Time
	beatIndex   int64
}

// OutTerminal is a live output device wrapped for Panic fan-out.
type OutTerminal struct {
	Source *Source
	port   drivers.Out
}

// readyLatch runs registered thunks exactly once, the first engine tick
// after enumeration's first pass completes (spec §4.I "Readiness contract").
type readyLatch struct {
	mu      sync.Mutex
	done    bool
	reached bool
	thunks  []func()
}

func newReadyLatch() *readyLatch { return &readyLatch{} }

func (r *readyLatch) markEnumerationComplete() {
	r.mu.Lock()
	r.reached = true
	r.mu.Unlock()
}

func (r *readyLatch) whenReady(thunk func()) {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		thunk()
		return
	}
	r.thunks = append(r.thunks, thunk)
	r.mu.Unlock()
}

func (r *readyLatch) drainIfFirstPass(e *Engine) {
	r.mu.Lock()
	if r.done || !r.reached {
		r.mu.Unlock()
		return
	}
	r.done = true
	thunks := r.thunks
	r.thunks = nil
	r.mu.Unlock()
	for _, t := range thunks {
		t()
	}
}

// Start performs first-pass enumeration of all input and output ports,
// opens a listener thread per input, and launches the hotplug poll loop.
// Call once after New.
func (e *Engine) Start() error {
	if err := e.enumerate(); err != nil {
		return fmt.Errorf("midi: initial enumeration: %w", err)
	}
	e.ready.markEnumerationComplete()
	go e.hotplugLoop()
	return nil
}

// Sources returns the current set of live input terminal sources. Callers
// (internal/midisel.Selector.Resolve) re-resolve against this slice whenever
// the hotplug set may have changed.
func (e *Engine) Sources() []*Source {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Source, 0, len(e.ins))
	for _, t := range e.ins {
		out = append(out, t.Source)
	}
	return out
}

func (e *Engine) enumerate() error {
	ins := midi.InPorts()
	for _, in := range ins {
		if err := e.openInput(in); err != nil {
			e.log.Printf("[midi] open input %q failed: %v", in.String(), err)
		}
	}

	outs := midi.OutPorts()
	e.mu.Lock()
	for _, out := range outs {
		name := out.String()
		if _, ok := e.outs[name]; ok {
			continue
		}
		e.outs[name] = &OutTerminal{
			Source: &Source{Name: name, Index: out.Number(), Kind: SourceHardware},
			port:   out,
		}
	}
	e.mu.Unlock()
	return nil
}

func (e *Engine) openInput(in drivers.In) error {
	name := in.String()

	e.mu.Lock()
	if _, already := e.ins[name]; already {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	src := &Source{Name: name, Index: in.Number(), Kind: SourceHardware, AllowsRouting: true}
	term := &InTerminal{Source: src, port: in}

	stop, err := midi.ListenTo(in, func(msg midi.Message, timestampms int32) {
		e.translateAndEnqueue(term, msg)
	}, midi.UseSysEx())
	if err != nil {
		return fmt.Errorf("listen on %q: %w", name, err)
	}
	term.stop = stop

	e.mu.Lock()
	e.ins[name] = term
	e.mu.Unlock()
	return nil
}

func (e *Engine) closeInput(name string) {
	e.mu.Lock()
	term, ok := e.ins[name]
	if ok {
		delete(e.ins, name)
	}
	e.mu.Unlock()
	if ok && term.stop != nil {
		term.stop()
	}
}

// hotplugLoop diffs the platform's port list against known terminals every
// pollInterval, opening new inputs and dropping vanished ones. Most
// platforms the rtmididrv backend targets have no native connect/disconnect
// event, so polling is the portable baseline (spec §4.I).
func (e *Engine) hotplugLoop() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for range ticker.C {
		e.pollOnce()
	}
}

func (e *Engine) pollOnce() {
	seen := make(map[string]bool)
	for _, in := range midi.InPorts() {
		name := in.String()
		seen[name] = true
		if err := e.openInput(in); err != nil {
			e.log.Printf("[midi] hotplug open %q failed: %v", name, err)
		}
	}

	e.mu.Lock()
	var stale []string
	for name := range e.ins {
		if !seen[name] {
			stale = append(stale, name)
		}
	}
	e.mu.Unlock()
	for _, name := range stale {
		e.closeInput(name)
	}
}

// translateAndEnqueue converts a raw gomidi message to the internal Message
// variant and pushes it onto the engine queue (spec §4.I, §3).
func (e *Engine) translateAndEnqueue(term *InTerminal, msg midi.Message) {
	src := term.Source

	if ch, key, vel, ok := msg.GetNoteOn(); ok {
		if vel == 0 {
			e.Enqueue(NoteOff(src, ch, key))
		} else {
			e.Enqueue(NoteOn(src, ch, key, vel))
		}
		return
	}
	if ch, key, ok := msg.GetNoteOff(); ok {
		e.Enqueue(NoteOff(src, ch, key))
		return
	}
	if ch, cc, val, ok := msg.GetControlChange(); ok {
		e.Enqueue(CCMessage(src, ch, cc, val))
		return
	}
	if ch, prog, ok := msg.GetProgramChange(); ok {
		e.Enqueue(Message{Kind: KindProgramChange, Source: src, Channel: ch, Value: prog})
		return
	}
	if ch, rel, abs, ok := msg.GetPitchBend(); ok {
		_ = abs
		e.Enqueue(Message{Kind: KindPitchBend, Source: src, Channel: ch, PitchBendValue: int16(rel)})
		return
	}
	if ch, key, press, ok := msg.GetAfterTouch(); ok {
		e.Enqueue(Message{Kind: KindAftertouch, Source: src, Channel: ch, Pitch: key, Value: press})
		return
	}
	if data, ok := msg.GetSysEx(); ok {
		cp := make([]byte, len(data))
		copy(cp, data)
		e.Enqueue(Message{Kind: KindSysex, Source: src, Sysex: cp})
		return
	}

	switch {
	case msg.Is(midi.TimingClockMsg):
		e.onClockPulse(term)
	case msg.Is(midi.StartMsg):
		term.mu.Lock()
		term.pulseCount = 0
		term.beatIndex = 0
		term.mu.Unlock()
	case msg.Is(midi.StopMsg):
		e.Enqueue(BeatMessage(src, -1, 0))
	case msg.Is(midi.SPPMsg):
		e.onSongPositionPointer(term, msg)
	}
}

// onSongPositionPointer realigns the clock counters to a transport seek
// without emitting a Beat (spec §4.I: "SONG_POSITION updates the counter
// without emitting"). Song Position Pointer carries a 14-bit count of MIDI
// beats (1 MIDI beat = 6 clocks = one sixteenth note) since the start of
// the song, packed as two 7-bit bytes following the F2 status byte.
func (e *Engine) onSongPositionPointer(term *InTerminal, msg midi.Message) {
	raw := msg.Bytes()
	if len(raw) < 3 {
		return
	}
	pos := uint16(raw[1]&0x7f) | uint16(raw[2]&0x7f)<<7
	beatIndex, pulseCount := songPositionToClockState(pos)

	term.mu.Lock()
	term.beatIndex = beatIndex
	term.pulseCount = pulseCount
	term.lastPulseAt = time.Time{}
	term.mu.Unlock()
}

// songPositionToClockState converts a Song Position Pointer's 14-bit MIDI
// beat count into the equivalent (quarter-note index, pulses into the
// current quarter) pair at clockPPQ pulses per quarter note.
func songPositionToClockState(pos uint16) (beatIndex int64, pulseCount int) {
	totalClocks := int64(pos) * 6
	return totalClocks / clockPPQ, int(totalClocks % clockPPQ)
}

// onClockPulse aggregates 24-PPQ clock pulses into a Beat message at every
// quarter-note boundary (spec §4.I "MIDI clock aggregation").
func (e *Engine) onClockPulse(term *InTerminal) {
	term.mu.Lock()
	now := time.Now()
	var periodNanos int64
	if !term.lastPulseAt.IsZero() {
		periodNanos = now.Sub(term.lastPulseAt).Nanoseconds() * clockPPQ
	}
	term.lastPulseAt = now
	term.pulseCount++
	fireBeat := term.pulseCount >= clockPPQ
	if fireBeat {
		term.pulseCount = 0
		term.beatIndex++
	}
	idx := term.beatIndex
	src := term.Source
	term.mu.Unlock()

	if fireBeat {
		e.Enqueue(BeatMessage(src, idx, periodNanos))
	}
}

// Panic sends All Notes Off (CC 123) and All Sound Off (CC 120) on all 16
// channels of every open output terminal.
func (e *Engine) Panic() {
	e.mu.Lock()
	outs := make([]*OutTerminal, 0, len(e.outs))
	for _, o := range e.outs {
		outs = append(outs, o)
	}
	e.mu.Unlock()

	for _, o := range outs {
		for ch := uint8(0); ch < 16; ch++ {
			_ = o.port.Send([]byte{0xB0 | ch, 123, 0}) // all notes off
			_ = o.port.Send([]byte{0xB0 | ch, 120, 0}) // all sound off
		}
	}
}

// Close stops every input listener and closes every open port.
func (e *Engine) Close() {
	e.mu.Lock()
	ins := make([]*InTerminal, 0, len(e.ins))
	for _, t := range e.ins {
		ins = append(ins, t)
	}
	outs := make([]*OutTerminal, 0, len(e.outs))
	for _, o := range e.outs {
		outs = append(outs, o)
	}
	e.ins = make(map[string]*InTerminal)
	e.outs = make(map[string]*OutTerminal)
	e.mu.Unlock()

	for _, t := range ins {
		if t.stop != nil {
			t.stop()
		}
	}
	for _, o := range outs {
		o.port.Close()
	}
}

// Send transmits raw MIDI bytes through the named output terminal.
func (e *Engine) Send(outName string, raw []byte) error {
	e.mu.Lock()
	out, ok := e.outs[outName]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("midi: output terminal %q not open", outName)
	}
	return out.port.Send(raw)
}
