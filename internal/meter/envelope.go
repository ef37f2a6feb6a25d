// Package meter implements the envelope-follower cascade consumed by the
// engine tick: DecibelMeter (spec 4.C) and GraphicMeter/BandMeter (spec 4.D).
package meter

import "math"

// PeakHoldMS is the fixed peak-hold window before peak decay kicks in,
// per spec §4.C.
const PeakHoldMS = 250.0

// coefficient computes exp(-durationMs / tauMs), the single-pole IIR
// smoothing factor from GLOSSARY "Attack / Release coefficient".
// DecibelMeter passes the *audio* period (samples-per-buffer converted to
// ms); BandMeter.Tick passes the control-tick period it is given.
func coefficient(periodMs, tauMs float64) float64 {
	if tauMs <= 0 {
		return 0
	}
	return math.Exp(-periodMs / tauMs)
}

// follow applies one step of attack/release envelope smoothing:
// y' = x + coef*(y - x), coef = attackCoef if x >= y else releaseCoef.
// The result always lies between min(x,y) and max(x,y) (spec §8 invariant).
func follow(raw, prev, attackCoef, releaseCoef float64) float64 {
	coef := releaseCoef
	if raw >= prev {
		coef = attackCoef
	}
	return raw + coef*(prev-raw)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// normalize converts a dB value to the engine's [0,1] output space:
// clamp(1 + db/rangeDB, 0, 1).
func normalize(db, rangeDB float64) float64 {
	return clamp01(1 + db/rangeDB)
}

func dbFromAmplitude(amplitude, gainDB float64) float64 {
	if amplitude <= 0 {
		return math.Inf(-1)
	}
	return 20*math.Log10(amplitude) + gainDB
}
