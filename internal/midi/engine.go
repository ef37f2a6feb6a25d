package midi

import (
	"log"
	"sync"
)

// Mapping is the subset of internal/midimap.Mapping the engine needs to
// apply mappings without importing that package (avoids an import cycle,
// since midimap depends on midi.Message).
type Mapping interface {
	Matches(Message) bool
	Apply(Message)
}

// RoutingSelector decides whether a channel bus should see messages from a
// given Source. Implemented by internal/midisel.Selector.
type RoutingSelector interface {
	MatchesSource(*Source) bool
}

// RoutingFilter decides whether a channel bus should see a given Message.
// Implemented by internal/midisel.Filter.
type RoutingFilter interface {
	Filter(Message) bool
}

// ChannelBus is one routed subscriber on the engine (spec §4.I step 5).
type ChannelBus struct {
	Selector RoutingSelector
	Filter   RoutingFilter
	Handler  func(Message)
}

// TempoSink receives beat-driven tempo updates when syncEnabled and the
// active tempo clock source is MIDI (spec §4.I step 3).
type TempoSink interface {
	SetPeriod(nanos int64)
	TriggerBeat()
}

// Engine is the single-threaded-tick MIDI plane: enumeration, hotplug,
// per-device input queue drain, filter/mapping application and listener
// fan-out (spec component I).
type Engine struct {
	mu sync.Mutex

	queue *queue

	mappings []Mapping
	listeners []func(Message)
	buses     []ChannelBus

	captureMode bool
	captureSink func(Message)

	syncEnabled       bool
	tempoSourceIsMIDI bool
	tempo             TempoSink

	ready *readyLatch

	ins  map[string]*InTerminal
	outs map[string]*OutTerminal

	log *log.Logger
}

// New constructs an Engine with an empty terminal set; enumeration and
// hotplug are started separately (see Start, in hotplug.go).
func New(logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		queue: newQueue(),
		ready: newReadyLatch(),
		ins:   make(map[string]*InTerminal),
		outs:  make(map[string]*OutTerminal),
		log:   logger,
	}
}

// AddMapping registers a mapping to be matched on every drained message.
func (e *Engine) AddMapping(m Mapping) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mappings = append(e.mappings, m)
}

// RemoveMapping unregisters a previously added mapping.
func (e *Engine) RemoveMapping(m Mapping) {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.mappings[:0]
	for _, existing := range e.mappings {
		if existing != m {
			next = append(next, existing)
		}
	}
	e.mappings = next
}

// AddListener registers a global listener notified of every drained
// message, after mapping application (spec §4.I step 4).
func (e *Engine) AddListener(fn func(Message)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// AddChannelBus registers a routed subscriber (spec §4.I step 5).
func (e *Engine) AddChannelBus(bus ChannelBus) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buses = append(e.buses, bus)
}

// SetMappingCapture toggles mapping-capture mode: while true, messages from
// control-enabled sources are recorded via sink instead of applied (spec
// §4.I step 1).
func (e *Engine) SetMappingCapture(enabled bool, sink func(Message)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.captureMode = enabled
	e.captureSink = sink
}

// SetTempoSink wires the active tempo clock; SetSyncEnabled/SetTempoSourceIsMIDI
// gate whether Beat messages drive it (spec §4.I step 3).
func (e *Engine) SetTempoSink(t TempoSink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tempo = t
}

func (e *Engine) SetSyncEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.syncEnabled = enabled
}

func (e *Engine) SetTempoSourceIsMIDI(isMIDI bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tempoSourceIsMIDI = isMIDI
}

// Enqueue is called by producer threads (per-device input threads, the OSC
// bridge, a virtual keyboard) to push a translated message onto the engine
// queue. Never blocks, never calls back into the engine (spec §5).
func (e *Engine) Enqueue(m Message) {
	e.queue.Push(m)
}

// Tick drains the queue (if non-empty) and processes every message in FIFO
// order, per spec §4.I. Must be called from the engine thread, once per
// control tick. Per-mapping panics/errors are isolated so the tick never
// aborts (spec §7); Go doesn't have general panic-to-error MIDI-message
// processing here since Apply implementations are expected to be pure
// value transforms, but we still recover defensively around each mapping.
func (e *Engine) Tick() {
	if !e.queue.HasMessage() {
		e.ready.drainIfFirstPass(e)
		return
	}
	drained := e.queue.Drain()
	for _, msg := range drained {
		e.process(msg)
	}
	e.ready.drainIfFirstPass(e)
}

func (e *Engine) process(msg Message) {
	e.mu.Lock()
	captureMode := e.captureMode
	captureSink := e.captureSink
	mappings := e.mappings
	listeners := e.listeners
	buses := e.buses
	syncEnabled := e.syncEnabled
	tempoSourceIsMIDI := e.tempoSourceIsMIDI
	tempo := e.tempo
	e.mu.Unlock()

	if msg.Source != nil && msg.Source.ControlEnabled && captureMode {
		if captureSink != nil {
			captureSink(msg)
		}
	} else {
		for _, m := range mappings {
			e.applyMappingSafely(m, msg)
		}
	}

	if msg.Kind == KindBeat && syncEnabled && tempoSourceIsMIDI && tempo != nil {
		if msg.BeatNanos > 0 {
			tempo.SetPeriod(msg.BeatNanos)
		}
		tempo.TriggerBeat()
	}

	for _, l := range listeners {
		l(msg)
	}

	if msg.Source != nil && msg.Source.AllowsRouting {
		for _, bus := range buses {
			if bus.Selector == nil || !bus.Selector.MatchesSource(msg.Source) {
				continue
			}
			if bus.Filter != nil && !bus.Filter.Filter(msg) {
				continue
			}
			if bus.Handler != nil {
				bus.Handler(msg)
			}
		}
	}
}

func (e *Engine) applyMappingSafely(m Mapping, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Printf("[midi] mapping panic recovered, message=%s: %v", msg.Kind, r)
		}
	}()
	if m.Matches(msg) {
		m.Apply(msg)
	}
}

// WhenReady registers a thunk to run on the engine thread, in FIFO
// registration order, during the first Tick after first-pass enumeration
// finishes. Once that Tick has run the queued thunks, later thunks run
// immediately on the calling thread. A thunk registered after enumeration
// finishes but before that first Tick is queued and runs on that Tick.
func (e *Engine) WhenReady(thunk func()) {
	e.ready.whenReady(thunk)
}
