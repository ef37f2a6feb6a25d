// Package midi implements the MIDI plane: device discovery and hotplug
// tracking, lock-free-style enqueue from producer threads, and deterministic
// per-tick drain, filtering and mapping application on the engine thread
// (spec component I, entity MidiMessage).
package midi

// Kind tags the MidiMessage variant (spec §3 entity MidiMessage).
type Kind int

const (
	KindNoteOn Kind = iota
	KindNoteOff
	KindControlChange
	KindProgramChange
	KindPitchBend
	KindAftertouch
	KindSysex
	KindBeat
	KindPanic
)

func (k Kind) String() string {
	switch k {
	case KindNoteOn:
		return "NoteOn"
	case KindNoteOff:
		return "NoteOff"
	case KindControlChange:
		return "ControlChange"
	case KindProgramChange:
		return "ProgramChange"
	case KindPitchBend:
		return "PitchBend"
	case KindAftertouch:
		return "Aftertouch"
	case KindSysex:
		return "Sysex"
	case KindBeat:
		return "Beat"
	case KindPanic:
		return "Panic"
	default:
		return "Unknown"
	}
}

// SourceKind distinguishes where a Source terminal comes from.
type SourceKind int

const (
	SourceUnknown SourceKind = iota
	SourceHardware
	SourceVirtualOSC
	SourceVirtualKeyboard
)

// Source identifies the originating terminal of a MidiMessage. A nil
// *Source means UNKNOWN, per spec §3.
type Source struct {
	Name           string
	Index          int
	Kind           SourceKind
	ControlEnabled bool // when true and the engine is in mapping-capture mode, messages are recorded instead of applied
	AllowsRouting  bool // when true, channel buses get a chance to filter this source's messages
}

// Message is the tagged variant of {NoteOn, NoteOff, ControlChange,
// ProgramChange, PitchBend, Aftertouch, Sysex, Beat, Panic}, per spec §3.
// Only the fields relevant to Kind are meaningful.
type Message struct {
	Kind   Kind
	Source *Source

	Channel  uint8 // [0,15]
	Pitch    uint8 // [0,127], NoteOn/NoteOff
	Velocity uint8 // [0,127], NoteOn/NoteOff

	CC    uint8 // [0,127]
	Value uint8 // [0,127], CC or ProgramChange value

	PitchBendValue int16 // 14-bit signed, centered at 0

	Sysex []byte

	BeatIndex  int64
	BeatNanos  int64
}

// NoteOn constructs a NoteOn message.
func NoteOn(src *Source, channel, pitch, velocity uint8) Message {
	return Message{Kind: KindNoteOn, Source: src, Channel: channel, Pitch: pitch, Velocity: velocity}
}

// NoteOff constructs a NoteOff message.
func NoteOff(src *Source, channel, pitch uint8) Message {
	return Message{Kind: KindNoteOff, Source: src, Channel: channel, Pitch: pitch}
}

// CCMessage constructs a ControlChange message.
func CCMessage(src *Source, channel, cc, value uint8) Message {
	return Message{Kind: KindControlChange, Source: src, Channel: channel, CC: cc, Value: value}
}

// BeatMessage constructs a Beat message carrying an ordinal index and the
// beat period in nanoseconds (0 when unknown).
func BeatMessage(src *Source, index int64, nanos int64) Message {
	return Message{Kind: KindBeat, Source: src, BeatIndex: index, BeatNanos: nanos}
}
