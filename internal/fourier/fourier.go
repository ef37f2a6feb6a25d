// Package fourier implements the windowed radix-2 FFT and octave-band
// averaging used to drive the graphic meter (spec component B).
package fourier

import (
	"fmt"
	"math"
)

const baseHz = 65.41 // C2, per GLOSSARY "Octave band"

// Transform holds the precomputed tables for a fixed buffer size/sample rate
// pair. Construction fails loudly if bufferSize is not a power of two, per
// spec §7 "contract violations".
type Transform struct {
	bufferSize int
	sampleRate int
	log2N      int

	bitRev  []int
	sinTab  []float64 // sinTab[l] = sin(-pi/2^l)
	cosTab  []float64 // cosTab[l] = cos(-pi/2^l)
	window  []float64

	real []float64
	imag []float64
	amp  []float64
}

// New constructs a Transform for bufferSize samples at sampleRate Hz.
// bufferSize must be a power of two.
func New(bufferSize, sampleRate int) (*Transform, error) {
	if bufferSize <= 0 || bufferSize&(bufferSize-1) != 0 {
		return nil, fmt.Errorf("fourier: bufferSize %d is not a power of two", bufferSize)
	}

	t := &Transform{
		bufferSize: bufferSize,
		sampleRate: sampleRate,
		log2N:      int(math.Round(math.Log2(float64(bufferSize)))),
		real:       make([]float64, bufferSize),
		imag:       make([]float64, bufferSize),
		amp:        make([]float64, bufferSize/2+1),
	}

	t.bitRev = make([]int, bufferSize)
	bits := t.log2N
	for i := 0; i < bufferSize; i++ {
		rev := 0
		v := i
		for b := 0; b < bits; b++ {
			rev = (rev << 1) | (v & 1)
			v >>= 1
		}
		t.bitRev[i] = rev
	}

	t.sinTab = make([]float64, t.log2N)
	t.cosTab = make([]float64, t.log2N)
	for l := 0; l < t.log2N; l++ {
		angle := -math.Pi / math.Pow(2, float64(l))
		t.sinTab[l] = math.Sin(angle)
		t.cosTab[l] = math.Cos(angle)
	}

	t.window = make([]float64, bufferSize)
	for i := 0; i < bufferSize; i++ {
		if bufferSize == 1 {
			t.window[i] = 1
			continue
		}
		t.window[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(bufferSize-1))
	}

	return t, nil
}

// Amplitudes returns the magnitude spectrum from the most recent Compute
// call, bins [0, N/2] inclusive.
func (t *Transform) Amplitudes() []float64 { return t.amp }

// Compute runs the windowed FFT over samples, which must have exactly
// bufferSize entries.
func (t *Transform) Compute(samples []float64) error {
	if len(samples) != t.bufferSize {
		return fmt.Errorf("fourier: expected %d samples, got %d", t.bufferSize, len(samples))
	}

	n := t.bufferSize
	for i := 0; i < n; i++ {
		src := t.bitRev[i]
		t.real[i] = samples[src] * t.window[src]
		t.imag[i] = 0
	}

	for stage := 0; stage < t.log2N; stage++ {
		span := 1 << stage
		groupSize := span * 2
		wr, wi := t.cosTab[stage], t.sinTab[stage]

		for group := 0; group < n; group += groupSize {
			curR, curI := 1.0, 0.0
			for k := 0; k < span; k++ {
				i0 := group + k
				i1 := i0 + span

				tr := curR*t.real[i1] - curI*t.imag[i1]
				ti := curR*t.imag[i1] + curI*t.real[i1]

				t.real[i1] = t.real[i0] - tr
				t.imag[i1] = t.imag[i0] - ti
				t.real[i0] += tr
				t.imag[i0] += ti

				nr := curR*wr - curI*wi
				ni := curR*wi + curI*wr
				curR, curI = nr, ni
			}
		}
	}

	for i := 0; i <= n/2; i++ {
		t.amp[i] = math.Hypot(t.real[i], t.imag[i])
	}
	return nil
}

// BandOffsets returns numBands+1 entries: the lower-bin offset of each of the
// numBands octave bands plus a trailing upper bound, each capped at N/2, per
// spec §4.B: bandOffset[k] = round(N/sampleRate *
// baseHz * 2^(k*octaveRatio)).
func (t *Transform) BandOffsets(numBands int) []int {
	nyquistRatio := (float64(t.sampleRate) / 2) / baseHz
	bandRange := math.Log2(nyquistRatio)
	octaveRatio := bandRange / float64(numBands-1)

	offsets := make([]int, numBands+1)
	for k := 0; k <= numBands; k++ {
		exp := float64(k) * octaveRatio
		bin := int(math.Round(float64(t.bufferSize) / float64(t.sampleRate) * baseHz * math.Pow(2, exp)))
		if bin > t.bufferSize/2 {
			bin = t.bufferSize / 2
		}
		offsets[k] = bin
	}
	return offsets
}

// Bands averages amplitude bins into numBands octave bands using BandOffsets.
func (t *Transform) Bands(numBands int) []float64 {
	offsets := t.BandOffsets(numBands)
	bands := make([]float64, numBands)
	for k := 0; k < numBands; k++ {
		lo, hi := offsets[k], offsets[k+1]
		if hi <= lo {
			hi = lo + 1
		}
		if hi > len(t.amp) {
			hi = len(t.amp)
		}
		if lo >= hi {
			bands[k] = 0
			continue
		}
		sum := 0.0
		count := 0
		for i := lo; i < hi; i++ {
			sum += t.amp[i]
			count++
		}
		if count > 0 {
			bands[k] = sum / float64(count)
		}
	}
	return bands
}

// BufferSize returns the fixed FFT window size.
func (t *Transform) BufferSize() int { return t.bufferSize }

// SampleRate returns the sample rate this Transform was constructed for.
func (t *Transform) SampleRate() int { return t.sampleRate }

// OctaveRatio returns bandRange/(numBands-1), the exponent step between
// adjacent octave bands, used by internal/meter for slope compensation.
func (t *Transform) OctaveRatio(numBands int) float64 {
	nyquistRatio := (float64(t.sampleRate) / 2) / baseHz
	bandRange := math.Log2(nyquistRatio)
	return bandRange / float64(numBands-1)
}

// BaseHz exposes the C2 reference frequency used for octave-band math.
func BaseHz() float64 { return baseHz }
