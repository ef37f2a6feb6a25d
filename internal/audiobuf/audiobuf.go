// Package audiobuf implements the fixed-capacity mono sample window that sits
// between a capture/playback device and the meter cascade (spec component A).
package audiobuf

import (
	"log"
	"math"
	"sync"
)

// Meter is anything that wants to know when a Buffer has finished a fill.
// Implementations must not block; the callback runs on the capture/playback
// thread, in registration order.
type Meter interface {
	OnAudioFrame(samples []float64, sampleRate int)
}

// Buffer is a fixed capacity N (power of two) mono sample window with the
// last-computed RMS, and a copy-on-write set of attached meters.
type Buffer struct {
	capacity   int
	sampleRate int

	mu      sync.Mutex
	samples []float64
	rms     float64

	metersMu sync.Mutex
	meters   []Meter // copy-on-write: replaced wholesale on Attach/Detach
}

// New creates a Buffer with the given fixed sample capacity, which must be a
// power of two per spec §4.B's downstream FFT requirement.
func New(capacity int) *Buffer {
	return &Buffer{
		capacity: capacity,
		samples:  make([]float64, capacity),
	}
}

// Capacity returns the fixed sample window size N.
func (b *Buffer) Capacity() int { return b.capacity }

// Attach registers a meter to receive future fill callbacks. Meters added
// after a fill has started do not receive that fill's callback (the meter
// list is snapshotted at the top of fillFromInterleaved/computeMix).
func (b *Buffer) Attach(m Meter) {
	b.metersMu.Lock()
	defer b.metersMu.Unlock()
	next := make([]Meter, len(b.meters)+1)
	copy(next, b.meters)
	next[len(b.meters)] = m
	b.meters = next
}

// Detach removes a previously attached meter, if present.
func (b *Buffer) Detach(m Meter) {
	b.metersMu.Lock()
	defer b.metersMu.Unlock()
	next := make([]Meter, 0, len(b.meters))
	for _, existing := range b.meters {
		if existing != m {
			next = append(next, existing)
		}
	}
	b.meters = next
}

func (b *Buffer) snapshotMeters() []Meter {
	b.metersMu.Lock()
	defer b.metersMu.Unlock()
	return b.meters
}

// RMS returns the RMS computed at the instant of the last fill.
func (b *Buffer) RMS() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rms
}

// Snapshot returns a copy of the current sample window, safe to read from any
// thread while the capture/playback thread keeps filling in parallel.
func (b *Buffer) Snapshot() []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]float64, len(b.samples))
	copy(out, b.samples)
	return out
}

// FillFromInterleaved decodes little-endian signed-16 samples from raw at
// offset+k*frameStride+{0,1}, one sample per capacity slot, computes RMS and
// fans out to attached meters. frameStride is 2 for mono, 4 for stereo (this
// call decodes a single channel; stereo demux happens one level up in
// internal/capture by calling this twice with offset 0 and 2).
func (b *Buffer) FillFromInterleaved(raw []byte, offset, frameStride, sampleRate int) {
	b.mu.Lock()
	if b.sampleRate != 0 && b.sampleRate != sampleRate {
		log.Printf("[audiobuf] sample rate mismatch: had %d, fill reports %d", b.sampleRate, sampleRate)
	}
	b.sampleRate = sampleRate

	sumSquares := 0.0
	for i := 0; i < b.capacity; i++ {
		idx := offset + i*frameStride
		if idx+1 >= len(raw) {
			b.samples[i] = 0
			continue
		}
		raw16 := int16(uint16(raw[idx]) | uint16(raw[idx+1])<<8)
		v := float64(raw16) / 32768.0
		b.samples[i] = v
		sumSquares += v * v
	}
	b.rms = math.Sqrt(sumSquares / float64(b.capacity))
	samplesCopy := make([]float64, b.capacity)
	copy(samplesCopy, b.samples)
	sr := b.sampleRate
	b.mu.Unlock()

	for _, m := range b.snapshotMeters() {
		m.OnAudioFrame(samplesCopy, sr)
	}
}

// ComputeMix averages two equal-length channel buffers into this buffer
// (samples[i] = 0.5*(left[i]+right[i])), under the same RMS/notification
// contract as FillFromInterleaved.
func (b *Buffer) ComputeMix(left, right []float64, sampleRate int) {
	b.mu.Lock()
	if b.sampleRate != 0 && b.sampleRate != sampleRate {
		log.Printf("[audiobuf] sample rate mismatch: had %d, mix reports %d", b.sampleRate, sampleRate)
	}
	b.sampleRate = sampleRate

	n := b.capacity
	if len(left) < n {
		n = len(left)
	}
	if len(right) < n {
		n = len(right)
	}
	sumSquares := 0.0
	for i := 0; i < b.capacity; i++ {
		var v float64
		if i < n {
			v = 0.5 * (left[i] + right[i])
		}
		b.samples[i] = v
		sumSquares += v * v
	}
	b.rms = math.Sqrt(sumSquares / float64(b.capacity))
	samplesCopy := make([]float64, b.capacity)
	copy(samplesCopy, b.samples)
	sr := b.sampleRate
	b.mu.Unlock()

	for _, m := range b.snapshotMeters() {
		m.OnAudioFrame(samplesCopy, sr)
	}
}
