package midi

import (
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueuePushDrainFIFO(t *testing.T) {
	q := newQueue()
	assert.False(t, q.HasMessage())

	q.Push(NoteOn(nil, 0, 60, 100))
	q.Push(NoteOn(nil, 0, 64, 100))
	assert.True(t, q.HasMessage())

	drained := q.Drain()
	assert.Len(t, drained, 2)
	assert.Equal(t, uint8(60), drained[0].Pitch)
	assert.Equal(t, uint8(64), drained[1].Pitch)
	assert.False(t, q.HasMessage())
}

func TestQueueDrainEmptyIsNoop(t *testing.T) {
	q := newQueue()
	assert.Empty(t, q.Drain())
}

type fakeMapping struct {
	matchKind Kind
	applied   []Message
}

func (f *fakeMapping) Matches(m Message) bool { return m.Kind == f.matchKind }
func (f *fakeMapping) Apply(m Message)        { f.applied = append(f.applied, m) }

func TestTickAppliesMatchingMappingsOnly(t *testing.T) {
	e := New(log.Default())
	cc := &fakeMapping{matchKind: KindControlChange}
	note := &fakeMapping{matchKind: KindNoteOn}
	e.AddMapping(cc)
	e.AddMapping(note)

	e.Enqueue(NoteOn(nil, 0, 60, 100))
	e.Enqueue(CCMessage(nil, 0, 7, 64))
	e.Tick()

	assert.Len(t, cc.applied, 1)
	assert.Len(t, note.applied, 1)
	assert.Equal(t, KindControlChange, cc.applied[0].Kind)
	assert.Equal(t, KindNoteOn, note.applied[0].Kind)
}

func TestTickCaptureModeRecordsInsteadOfApplying(t *testing.T) {
	e := New(log.Default())
	m := &fakeMapping{matchKind: KindNoteOn}
	e.AddMapping(m)

	var captured []Message
	src := &Source{Name: "keyboard", ControlEnabled: true}
	e.SetMappingCapture(true, func(msg Message) { captured = append(captured, msg) })

	e.Enqueue(NoteOn(src, 0, 60, 100))
	e.Tick()

	assert.Empty(t, m.applied)
	assert.Len(t, captured, 1)
}

func TestTickNotifiesListenersForEveryMessage(t *testing.T) {
	e := New(log.Default())
	var seen int
	e.AddListener(func(Message) { seen++ })
	e.Enqueue(NoteOn(nil, 0, 60, 100))
	e.Enqueue(NoteOff(nil, 0, 60))
	e.Tick()
	assert.Equal(t, 2, seen)
}

type fakeSelector struct{ name string }

func (f fakeSelector) MatchesSource(s *Source) bool { return s != nil && s.Name == f.name }

type allowAllFilter struct{}

func (allowAllFilter) Filter(Message) bool { return true }

func TestTickRoutesToChannelBusWhenSourceAllowsRouting(t *testing.T) {
	e := New(log.Default())
	var routed []Message
	e.AddChannelBus(ChannelBus{
		Selector: fakeSelector{name: "Launchpad"},
		Filter:   allowAllFilter{},
		Handler:  func(m Message) { routed = append(routed, m) },
	})

	routableSrc := &Source{Name: "Launchpad", AllowsRouting: true}
	unroutableSrc := &Source{Name: "Launchpad", AllowsRouting: false}
	otherSrc := &Source{Name: "Other", AllowsRouting: true}

	e.Enqueue(NoteOn(routableSrc, 0, 1, 1))
	e.Enqueue(NoteOn(unroutableSrc, 0, 2, 1))
	e.Enqueue(NoteOn(otherSrc, 0, 3, 1))
	e.Tick()

	assert.Len(t, routed, 1)
	assert.Equal(t, uint8(1), routed[0].Pitch)
}

type fakeTempo struct {
	periods []int64
	beats   int
}

func (f *fakeTempo) SetPeriod(n int64) { f.periods = append(f.periods, n) }
func (f *fakeTempo) TriggerBeat()      { f.beats++ }

func TestTickDrivesTempoOnlyWhenSyncEnabledAndSourceIsMIDI(t *testing.T) {
	e := New(log.Default())
	tempo := &fakeTempo{}
	e.SetTempoSink(tempo)

	e.Enqueue(BeatMessage(nil, 1, 500_000_000))
	e.Tick()
	assert.Equal(t, 0, tempo.beats, "sync disabled, beat should not drive tempo")

	e.SetSyncEnabled(true)
	e.SetTempoSourceIsMIDI(true)
	e.Enqueue(BeatMessage(nil, 2, 500_000_000))
	e.Tick()
	assert.Equal(t, 1, tempo.beats)
	assert.Equal(t, []int64{500_000_000}, tempo.periods)
}

func TestWhenReadyRunsAfterEnumerationReachedOnNextTick(t *testing.T) {
	e := New(log.Default())
	var fired bool
	e.WhenReady(func() { fired = true })
	e.Tick() // enumeration not marked complete yet
	assert.False(t, fired)

	e.ready.markEnumerationComplete()
	e.Tick()
	assert.True(t, fired)
}

func TestWhenReadyRunsImmediatelyIfAlreadyReady(t *testing.T) {
	e := New(log.Default())
	e.ready.markEnumerationComplete()
	e.Tick()

	var fired bool
	e.WhenReady(func() { fired = true })
	assert.True(t, fired)
}

func TestMappingPanicIsRecoveredAndOtherMappingsStillRun(t *testing.T) {
	e := New(log.Default())
	panicking := &panicMapping{}
	ok := &fakeMapping{matchKind: KindNoteOn}
	e.AddMapping(panicking)
	e.AddMapping(ok)

	e.Enqueue(NoteOn(nil, 0, 60, 100))
	assert.NotPanics(t, func() { e.Tick() })
	assert.Len(t, ok.applied, 1)
}

type panicMapping struct{}

func (panicMapping) Matches(Message) bool { panic("boom") }
func (panicMapping) Apply(Message)        {}

func TestSongPositionToClockStateAtStart(t *testing.T) {
	beatIndex, pulseCount := songPositionToClockState(0)
	assert.Equal(t, int64(0), beatIndex)
	assert.Equal(t, 0, pulseCount)
}

func TestSongPositionToClockStateMidQuarter(t *testing.T) {
	// pos=2 MIDI beats = 12 clocks, half a quarter note at 24 PPQ.
	beatIndex, pulseCount := songPositionToClockState(2)
	assert.Equal(t, int64(0), beatIndex)
	assert.Equal(t, 12, pulseCount)
}

func TestSongPositionToClockStateOnQuarterBoundary(t *testing.T) {
	// pos=4 MIDI beats = 24 clocks = exactly one quarter note in.
	beatIndex, pulseCount := songPositionToClockState(4)
	assert.Equal(t, int64(1), beatIndex)
	assert.Equal(t, 0, pulseCount)
}

func TestSongPositionToClockStateSeveralBars(t *testing.T) {
	// pos=100 MIDI beats = 600 clocks = 25 quarter notes exactly.
	beatIndex, pulseCount := songPositionToClockState(100)
	assert.Equal(t, int64(25), beatIndex)
	assert.Equal(t, 0, pulseCount)
}
