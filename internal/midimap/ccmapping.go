package midimap

import "github.com/corelume/engine/internal/midi"

// CCMapping binds one (channel, cc) pair to a target, normalizing the
// incoming [0,127] value through a (min,max) range in the target's
// normalized space (spec §4.K "CC mapping").
type CCMapping struct {
	Channel uint8
	CC      uint8

	MinNorm, MaxNorm float64 // if MinNorm > MaxNorm, the mapping inverts

	Kind       TargetKind
	Boolean    BooleanTarget
	Discrete   DiscreteTarget
	Continuous ContinuousTarget

	coalescer *Coalescer
}

// SetCoalescer wires an optional coalescing window (spec §4.K "Command
// coalescing"). Nil is a valid value: updates then apply immediately with
// no undoable-action grouping.
func (c *CCMapping) SetCoalescer(co *Coalescer) { c.coalescer = co }

// Matches implements midi.Mapping.
func (c *CCMapping) Matches(msg midi.Message) bool {
	return msg.Kind == midi.KindControlChange && msg.Channel == c.Channel && msg.CC == c.CC
}

// Apply implements midi.Mapping (spec §4.K "CC mapping").
func (c *CCMapping) Apply(msg midi.Message) {
	n := float64(msg.Value) / 127.0
	out := lerp(c.MinNorm, c.MaxNorm, n)

	switch c.Kind {
	case TargetBoolean:
		if c.Boolean != nil {
			lo, hi := c.MinNorm, c.MaxNorm
			if lo > hi {
				lo, hi = hi, lo
			}
			c.Boolean.Set(n >= lo && n <= hi)
		}
	case TargetDiscrete:
		if c.Discrete != nil {
			// index = clamp(min + (max-min+1)*n, max), spec §4.K "CC mapping".
			lo, hi := c.MinNorm, c.MaxNorm
			idx := int(lo + (hi-lo+1)*n)
			clampHi := int(hi)
			if clampHi > c.Discrete.Max() {
				clampHi = c.Discrete.Max()
			}
			c.Discrete.SetValue(clampInt(idx, int(lo), clampHi))
		}
	case TargetContinuous:
		if c.Continuous != nil {
			c.Continuous.SetNormalized(clamp01(out))
		}
	}

	if c.coalescer != nil {
		c.coalescer.Notify()
	}
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
