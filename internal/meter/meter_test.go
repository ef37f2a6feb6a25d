package meter

import (
	"math"
	"testing"

	"github.com/corelume/engine/internal/fourier"
	"github.com/stretchr/testify/assert"
)

func TestFollowStaysBetweenRawAndPrev(t *testing.T) {
	for _, c := range []struct{ raw, prev, coef float64 }{
		{0.2, 0.8, 0.5},
		{0.9, 0.1, 0.3},
		{0, 1, 1},
		{1, 0, 0},
	} {
		y := follow(c.raw, c.prev, c.coef, c.coef)
		lo, hi := math.Min(c.raw, c.prev), math.Max(c.raw, c.prev)
		assert.GreaterOrEqual(t, y, lo-1e-9)
		assert.LessOrEqual(t, y, hi+1e-9)
	}
}

func TestNormalizeReferenceValues(t *testing.T) {
	assert.InDelta(t, 1.0, normalize(dbFromAmplitude(1.0, 0), 48), 1e-9)
	amp := math.Pow(10, -48.0/20.0)
	assert.InDelta(t, 0.0, normalize(dbFromAmplitude(amp, 0), 48), 1e-9)
}

func TestDecibelMeterSilenceConvergesToZero(t *testing.T) {
	d := NewDecibelMeter(0, 48, 10, 200)
	samples := make([]float64, 512)
	for i := 0; i < 20; i++ {
		d.OnAudioFrame(samples, 48000)
	}
	d.Tick()
	assert.InDelta(t, 0.0, d.Normalized(), 1e-6)
}

func TestDecibelMeterStopResets(t *testing.T) {
	d := NewDecibelMeter(0, 48, 10, 200)
	full := make([]float64, 512)
	for i := range full {
		full[i] = 1.0
	}
	d.OnAudioFrame(full, 48000)
	d.Tick()
	assert.Greater(t, d.Normalized(), 0.0)
	d.Stop()
	assert.Equal(t, 0.0, d.Normalized())
}

func TestBandMeterHighestBandRisesWithSlope(t *testing.T) {
	n := 4096
	sampleRate := 44100
	numBands := 16

	makeMeter := func(slope float64) *BandMeter {
		tr, _ := fourier.New(n, sampleRate)
		gm := NewGraphicMeter(tr, numBands)
		samples := make([]float64, n)
		for i := range samples {
			samples[i] = math.Sin(2 * math.Pi * 440 * float64(i) / float64(sampleRate))
		}
		gm.OnAudioFrame(samples, sampleRate)
		bm := NewBandMeter(gm, 0, 48, 1, 1, slope, 100, 8000)
		bm.Tick(1000) // long period so attack/release coefficients are near 0 (fully tracks raw)
		return bm
	}

	flat := makeMeter(0)
	sloped := makeMeter(4.5)

	flatBands := flat.Bands()
	slopedBands := sloped.Bands()

	lastIdx := numBands - 1
	assert.Greater(t, slopedBands[lastIdx].Normalized, flatBands[lastIdx].Normalized)
}
