package meter

import (
	"math"
	"sync"

	"github.com/corelume/engine/internal/fourier"
)

// GraphicMeter owns a fourier.Transform and recomputes a fixed-band spectrum
// from each audio frame, feeding the per-band smoothing done by BandMeter
// (spec component D).
type GraphicMeter struct {
	transform *fourier.Transform
	numBands  int

	mu       sync.Mutex
	rawBands []float64
}

// NewGraphicMeter constructs a GraphicMeter with numBands octave bands over
// the given Transform.
func NewGraphicMeter(transform *fourier.Transform, numBands int) *GraphicMeter {
	return &GraphicMeter{transform: transform, numBands: numBands, rawBands: make([]float64, numBands)}
}

// OnAudioFrame implements audiobuf.Meter: it runs the FFT and snapshots the
// raw (unsmoothed) octave-band amplitudes for BandMeter to consume.
func (g *GraphicMeter) OnAudioFrame(samples []float64, sampleRate int) {
	if err := g.transform.Compute(samples); err != nil {
		return
	}
	bands := g.transform.Bands(g.numBands)

	g.mu.Lock()
	copy(g.rawBands, bands)
	g.mu.Unlock()
}

// RawBands returns a copy of the last-computed (unsmoothed) octave-band
// amplitudes.
func (g *GraphicMeter) RawBands() []float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]float64, len(g.rawBands))
	copy(out, g.rawBands)
	return out
}

// Transform exposes the underlying FFT, e.g. for band-range bin math.
func (g *GraphicMeter) Transform() *fourier.Transform { return g.transform }

// NumBands returns the configured octave-band count.
func (g *GraphicMeter) NumBands() int { return g.numBands }

// Band is a single smoothed per-band output.
type Band struct {
	Raw        float64
	Env        float64
	DB         float64
	Normalized float64
}

// BandMeter consumes a GraphicMeter's raw-band snapshots and applies
// attack/release smoothing, gain, dB/octave slope compensation and dB
// normalization per band, plus a band-range average (spec §4.D).
type BandMeter struct {
	Source    *GraphicMeter
	GainDB    float64
	RangeDB   float64
	AttackMs  float64
	ReleaseMs float64
	SlopeDBPerOctave float64

	MinHz float64
	MaxHz float64

	mu          sync.Mutex
	bands       []Band
	rangeRawEnv float64
	rangeNorm   float64
}

// NewBandMeter constructs a BandMeter over source with the given per-band
// settings and a [minHz,maxHz] band-range window.
func NewBandMeter(source *GraphicMeter, gainDB, rangeDB, attackMs, releaseMs, slopeDBPerOctave, minHz, maxHz float64) *BandMeter {
	return &BandMeter{
		Source:           source,
		GainDB:           gainDB,
		RangeDB:          rangeDB,
		AttackMs:         attackMs,
		ReleaseMs:        releaseMs,
		SlopeDBPerOctave: slopeDBPerOctave,
		MinHz:            minHz,
		MaxHz:            maxHz,
		bands:            make([]Band, source.NumBands()),
	}
}

// Tick recomputes every band's envelope and the band-range average; must be
// called once per control tick in the order AudioBuffer -> DecibelMeter ->
// GraphicMeter(implicit, already ran on the audio thread) -> BandMeter.
func (bm *BandMeter) Tick(periodMs float64) {
	raw := bm.Source.RawBands()
	octaveRatio := bm.Source.Transform().OctaveRatio(len(raw))
	attackCoef := coefficient(periodMs, bm.AttackMs)
	releaseCoef := coefficient(periodMs, bm.ReleaseMs)

	bm.mu.Lock()
	defer bm.mu.Unlock()

	for k, rawVal := range raw {
		prevEnv := bm.bands[k].Env
		env := follow(rawVal, prevEnv, attackCoef, releaseCoef)
		db := dbFromAmplitude(env, bm.GainDB) + float64(k)*bm.SlopeDBPerOctave*octaveRatio
		bm.bands[k] = Band{
			Raw:        rawVal,
			Env:        env,
			DB:         db,
			Normalized: normalize(db, bm.RangeDB),
		}
	}

	bm.tickRangeLocked(raw, attackCoef, releaseCoef)
}

func (bm *BandMeter) tickRangeLocked(raw []float64, attackCoef, releaseCoef float64) {
	transform := bm.Source.Transform()
	n := transform.BufferSize()
	sampleRate := transform.SampleRate()

	low := int(math.Round(bm.MinHz * float64(n) / float64(sampleRate)))
	high := int(math.Round(bm.MaxHz * float64(n) / float64(sampleRate)))
	amps := transform.Amplitudes()
	if high > len(amps) {
		high = len(amps)
	}
	if low < 0 {
		low = 0
	}
	avgRaw := 0.0
	if low < high {
		sum := 0.0
		for i := low; i < high; i++ {
			sum += amps[i]
		}
		avgRaw = sum / float64(high-low)
	}

	bm.rangeRawEnv = follow(avgRaw, bm.rangeRawEnv, attackCoef, releaseCoef)

	averageOctave := math.Log2((bm.MinHz + bm.MaxHz) / 2 / fourier.BaseHz())
	db := dbFromAmplitude(bm.rangeRawEnv, bm.GainDB) + bm.SlopeDBPerOctave*averageOctave
	bm.rangeNorm = normalize(db, bm.RangeDB)
}

// RangeNormalized returns the smoothed, dB-converted, normalized band-range
// average from the most recent Tick.
func (bm *BandMeter) RangeNormalized() float64 {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	return bm.rangeNorm
}

// Bands returns a copy of every band's latest smoothed state.
func (bm *BandMeter) Bands() []Band {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	out := make([]Band, len(bm.bands))
	copy(out, bm.bands)
	return out
}
