package meter

import (
	"math"
	"sync"
)

// DecibelMeter is a wideband RMS envelope follower with attack/release,
// peak hold/decay and dB normalization, subscribed to one audiobuf.Buffer
// (spec component C).
type DecibelMeter struct {
	GainDB    float64
	RangeDB   float64
	AttackMs  float64
	ReleaseMs float64

	mu           sync.Mutex
	rmsEnv       float64
	rmsPeak      float64
	peakHeldMs   float64
	dbEnv        float64
	normalized   float64
	lastRaw      float64
}

// NewDecibelMeter constructs a DecibelMeter with the given gain/range/
// attack/release settings.
func NewDecibelMeter(gainDB, rangeDB, attackMs, releaseMs float64) *DecibelMeter {
	return &DecibelMeter{GainDB: gainDB, RangeDB: rangeDB, AttackMs: attackMs, ReleaseMs: releaseMs}
}

// OnAudioFrame implements audiobuf.Meter. It runs on the audio capture/
// playback thread: coefficients are derived from the audio period (samples
// per buffer), never the control-tick period, per spec §4.C NOTE.
func (d *DecibelMeter) OnAudioFrame(samples []float64, sampleRate int) {
	raw := rmsOf(samples)
	periodMs := float64(len(samples)) * 1000.0 / float64(sampleRate)
	attackCoef := coefficient(periodMs, d.AttackMs)
	releaseCoef := coefficient(periodMs, d.ReleaseMs)

	d.mu.Lock()
	defer d.mu.Unlock()

	d.lastRaw = raw
	d.rmsEnv = follow(raw, d.rmsEnv, attackCoef, releaseCoef)

	if raw > d.rmsPeak {
		d.rmsPeak = raw
		d.peakHeldMs = 0
	} else {
		d.peakHeldMs += periodMs
		if d.peakHeldMs > PeakHoldMS {
			d.rmsPeak = follow(raw, d.rmsPeak, attackCoef, releaseCoef)
		}
	}
}

// Tick recomputes dbEnv and the normalized output once per control tick, per
// spec §4.C. Must be called from the engine thread.
func (d *DecibelMeter) Tick() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dbEnv = dbFromAmplitude(d.rmsEnv, d.GainDB)
	d.normalized = normalize(d.dbEnv, d.RangeDB)
}

// Normalized returns the last-computed engine-thread-only output.
func (d *DecibelMeter) Normalized() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.normalized
}

// Peak returns the held peak RMS (pre-dB, in [0,1] linear amplitude).
func (d *DecibelMeter) Peak() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rmsPeak
}

// Stop resets envelopes to zero, per spec §4.C "Stopping resets envelopes".
func (d *DecibelMeter) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rmsEnv = 0
	d.rmsPeak = 0
	d.peakHeldMs = 0
	d.dbEnv = 0
	d.normalized = 0
}

func rmsOf(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, s := range samples {
		sumSquares += s * s
	}
	return math.Sqrt(sumSquares / float64(len(samples)))
}
