// Package midisel implements stable-naming source/destination selectors and
// per-subscriber channel/pitch/velocity filters (spec component J, entity
// MidiSelector).
package midisel

import "github.com/corelume/engine/internal/midi"

// Terminal is a (name, index) pair identifying a MIDI terminal. Selector
// resolves against *midi.Source values, not against Terminal.
type Terminal struct {
	Name  string
	Index int
}

// Selector persists {name, index, terminalRef} and re-resolves against the
// current terminal set whenever it changes, per spec §4.J.
type Selector struct {
	Name  string
	Index int

	resolved      *midi.Source
	MissingDevice bool
}

// NewSelector constructs an unresolved selector identified by stable name.
func NewSelector(name string, index int) *Selector {
	return &Selector{Name: name, Index: index}
}

// Resolve re-binds the selector against the current set of live sources. If
// the previously-bound source is still present, it is retained as-is. Else
// the selector scans by (name, index); on a match it binds and clears
// missingDevice. If nothing matches, missingDevice is set and the saved
// identity (Name, Index) is preserved for a future re-resolution attempt
// (spec §4.J).
func (s *Selector) Resolve(live []*midi.Source) {
	if s.resolved != nil {
		for _, src := range live {
			if src == s.resolved {
				s.MissingDevice = false
				return
			}
		}
	}

	for _, src := range live {
		if src.Name == s.Name && src.Index == s.Index {
			s.resolved = src
			s.MissingDevice = false
			return
		}
	}

	s.MissingDevice = true
}

// Source returns the currently-bound source, or nil if unresolved.
func (s *Selector) Source() *midi.Source { return s.resolved }

// MatchesSource implements midi.RoutingSelector: a resolved selector matches
// exactly its bound terminal; an unresolved one matches nothing.
func (s *Selector) MatchesSource(src *midi.Source) bool {
	return s.resolved != nil && src == s.resolved
}

// ChannelMode selects OMNI (all channels) or one specific channel.
type ChannelMode struct {
	Omni    bool
	Channel uint8
}

// Omni constructs a channel-agnostic mode.
func Omni() ChannelMode { return ChannelMode{Omni: true} }

// OnChannel constructs a mode restricted to one channel.
func OnChannel(ch uint8) ChannelMode { return ChannelMode{Channel: ch} }

func (c ChannelMode) matches(ch uint8) bool { return c.Omni || c.Channel == ch }

// Filter gates messages by enabled/channel/note-range/velocity-range, and
// tracks FIFO-per-pitch note-off admission so a note-off always passes iff
// its note-on was admitted (spec §4.J).
type Filter struct {
	Enabled  bool
	Channel  ChannelMode
	MinNote  uint8
	NoteSpan uint8 // [MinNote, MinNote+NoteSpan)

	MinVelocity  uint8
	VelocitySpan uint8 // [MinVelocity, MinVelocity+VelocitySpan], inclusive upper
	// bound per spec §8 scenario 4 (minVelocity=90, velocityRange=10,
	// velocity=100 is admitted: 100 <= 90+10).

	// admissionDeficit[pitch] counts note-ons rejected by velocity, so the
	// matching note-off (which carries no velocity) is suppressed too.
	// Saturates at 127 per pitch (spec §7 "Saturation/overflow").
	admissionDeficit map[uint8]uint8
}

// NewFilter constructs an enabled, full-range filter across all channels,
// the whole note range, and the whole velocity range.
func NewFilter() *Filter {
	return &Filter{
		Enabled:          true,
		Channel:          Omni(),
		MinNote:          0,
		NoteSpan:         128,
		MinVelocity:      0,
		VelocitySpan:     128,
		admissionDeficit: make(map[uint8]uint8),
	}
}

func (f *Filter) noteInRange(pitch uint8) bool {
	return pitch >= f.MinNote && int(pitch) < int(f.MinNote)+int(f.NoteSpan)
}

func (f *Filter) velocityInRange(vel uint8) bool {
	return vel >= f.MinVelocity && int(vel) <= int(f.MinVelocity)+int(f.VelocitySpan)
}

// Filter implements midi.RoutingFilter. Non note-on/off messages pass
// whenever the filter is enabled and the channel matches; note-on/off also
// consult the note and (for note-on) velocity ranges, with the FIFO-per-pitch
// admission-deficit bookkeeping spec §4.J requires.
func (f *Filter) Filter(msg midi.Message) bool {
	if !f.Enabled {
		return false
	}
	if f.admissionDeficit == nil {
		f.admissionDeficit = make(map[uint8]uint8)
	}

	switch msg.Kind {
	case midi.KindNoteOn:
		if !f.Channel.matches(msg.Channel) || !f.noteInRange(msg.Pitch) {
			return false
		}
		if !f.velocityInRange(msg.Velocity) {
			if f.admissionDeficit[msg.Pitch] < 127 {
				f.admissionDeficit[msg.Pitch]++
			}
			return false
		}
		return true

	case midi.KindNoteOff:
		if !f.Channel.matches(msg.Channel) || !f.noteInRange(msg.Pitch) {
			return false
		}
		if n := f.admissionDeficit[msg.Pitch]; n > 0 {
			if n == 1 {
				delete(f.admissionDeficit, msg.Pitch)
			} else {
				f.admissionDeficit[msg.Pitch] = n - 1
			}
			return false
		}
		return true

	default:
		return f.Channel.matches(msg.Channel)
	}
}
