package soundobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCartesianReferencePoints(t *testing.T) {
	cases := []struct {
		name                 string
		az, el, dist         float64
		x, y, z              float64
	}{
		{"front", 0, 0, 1, 0.5, 0.5, 1.0},
		{"right", 90, 0, 1, 1.0, 0.5, 0.5},
		{"up", 0, 90, 1, 0.5, 1.0, 0.5},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := New()
			s.Azimuth, s.Elevation, s.Distance = c.az, c.el, c.dist
			s.Tick(1)
			x, y, z := s.Cartesian()
			assert.InDelta(t, c.x, x, 1e-9)
			assert.InDelta(t, c.y, y, 1e-9)
			assert.InDelta(t, c.z, z, 1e-9)
		})
	}
}

func TestCartesianStableAcrossUnchangedTicks(t *testing.T) {
	s := New()
	s.Azimuth = 90
	s.Tick(1)
	x1, _, _ := s.Cartesian()
	assert.InDelta(t, 1.0, x1, 1e-9)

	// A second tick with unchanged polar fields leaves the cartesian
	// position as it was.
	s.Tick(1)
	x2, _, _ := s.Cartesian()
	assert.Equal(t, x1, x2)
}

type fakeMeter struct{ v float64 }

func (f fakeMeter) Normalized() float64 { return f.v }

func TestAudioSourceCopiesMeterNormalized(t *testing.T) {
	s := New()
	s.SourceMode = SourceAudio
	s.MeterSource = fakeMeter{v: 0.6}
	s.Floor, s.Ceiling = 0, 1
	s.AttackMs = 0
	s.Tick(10)
	assert.InDelta(t, 0.6, s.Current(), 1e-9)
}

func TestFloorCeilingMapping(t *testing.T) {
	s := New()
	s.SourceMode = SourceOSC
	s.SetInput(0.5)
	s.Floor, s.Ceiling = 0.25, 0.75
	s.AttackMs = 0
	s.Tick(10)
	assert.InDelta(t, 0.5, s.Current(), 1e-9) // (0.5-0.25)/0.5 = 0.5
}

func TestSlewZeroTimeSnaps(t *testing.T) {
	s := New()
	s.SourceMode = SourceOSC
	s.SetInput(1.0)
	s.AttackMs = 0
	s.Tick(1)
	assert.Equal(t, 1.0, s.Current())
}

func TestSetCartesianInvertsRecomputeCartesian(t *testing.T) {
	s := New()
	s.Azimuth, s.Elevation, s.Distance = 33, 12, 0.8
	s.Tick(1)
	x, y, z := s.Cartesian()

	s2 := New()
	s2.SetCartesian(x, y, z)
	s2.Tick(1)
	x2, y2, z2 := s2.Cartesian()

	assert.InDelta(t, x, x2, 1e-9)
	assert.InDelta(t, y, y2, 1e-9)
	assert.InDelta(t, z, z2, 1e-9)
}

func TestSetPolarOverwritesPosition(t *testing.T) {
	s := New()
	s.SetPolar(90, 0, 1)
	s.Tick(1)
	x, _, _ := s.Cartesian()
	assert.InDelta(t, 1.0, x, 1e-9)
}

func TestSlewGradualAttack(t *testing.T) {
	s := New()
	s.SourceMode = SourceOSC
	s.SetInput(1.0)
	s.AttackMs = 100
	s.Tick(10)
	assert.InDelta(t, 0.1, s.Current(), 1e-9)
}
