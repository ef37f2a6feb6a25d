// Package playback implements the file-backed PCM playback line that feeds
// the same L/R/Mix AudioBuffer contract as internal/capture, so meters don't
// need to know which source is live (spec component G).
package playback

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	"github.com/corelume/engine/internal/audiobuf"
	"github.com/corelume/engine/internal/capture"
)

const wavFormatPCM = 1
const wavFormatExtensible = 65534

// Mode selects what happens at end of stream.
type Mode int

const (
	// ModeOneShot pauses on EOF.
	ModeOneShot Mode = iota
	// ModeLoop rewinds to the start on EOF.
	ModeLoop
)

// Playback decodes one file to canonical PCM and feeds L/R/Mix, matching
// internal/capture's fill contract exactly.
type Playback struct {
	L, R, Mix *audiobuf.Buffer

	mu         sync.Mutex
	file       *os.File
	decoder    *wav.Decoder
	sampleRate int
	channels   int
	mono       bool
	paused     bool
	mode       Mode
	stream     *portaudio.Stream
	dataStart  int64
}

// New constructs an empty Playback; call Load to open a file.
func New() *Playback {
	return &Playback{
		L:      audiobuf.New(capture.FrameSize),
		R:      audiobuf.New(capture.FrameSize),
		Mix:    audiobuf.New(capture.FrameSize),
		paused: true,
	}
}

// Load opens path, validates the PCM shape per spec §4.G and §6 (16-bit
// signed little-endian PCM, mono or stereo, 44.1k/48k), and prepares for
// playback. Format rejection is logged and returned; the caller aborts
// playback for this file while the engine continues (spec §7).
func (p *Playback) Load(path string) (err error) {
	defer func() {
		if err != nil {
			log.Printf("[playback] %v", err)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("playback: open %q: %w", path, err)
	}

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		f.Close()
		return fmt.Errorf("playback: %q is not a valid WAV file", path)
	}
	d.ReadInfo()

	if int(d.WavAudioFormat) != wavFormatPCM && int(d.WavAudioFormat) != wavFormatExtensible {
		f.Close()
		return fmt.Errorf("playback: %q rejected: non-PCM format %d", path, d.WavAudioFormat)
	}
	if d.BitDepth != 16 {
		f.Close()
		return fmt.Errorf("playback: %q rejected: unsupported bit depth %d", path, d.BitDepth)
	}
	if d.NumChans != 1 && d.NumChans != 2 {
		f.Close()
		return fmt.Errorf("playback: %q rejected: unsupported channel count %d", path, d.NumChans)
	}
	if d.SampleRate != 44100 && d.SampleRate != 48000 {
		f.Close()
		return fmt.Errorf("playback: %q rejected: unsupported sample rate %d", path, d.SampleRate)
	}

	dataStart, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		f.Close()
		return fmt.Errorf("playback: %q: could not mark data start: %w", path, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file != nil {
		p.file.Close()
	}
	p.file = f
	p.decoder = d
	p.sampleRate = int(d.SampleRate)
	p.channels = int(d.NumChans)
	p.mono = p.channels == 1
	p.dataStart = dataStart
	p.paused = true
	return nil
}

// SetMode selects one-shot or loop behavior at EOF.
func (p *Playback) SetMode(m Mode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = m
}

// Trigger starts (or resumes) playback from the current position.
func (p *Playback) Trigger() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = false
}

// Pause stops advancing playback without rewinding.
func (p *Playback) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
}

// Rewind seeks back to the first PCM frame (the "mark/reset" contract of
// spec §6).
func (p *Playback) Rewind() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return fmt.Errorf("playback: no file loaded")
	}
	_, err := p.file.Seek(p.dataStart, io.SeekStart)
	return err
}

// OutputCallback is invoked by portaudio on the output thread with a
// stereo-interleaved buffer to fill (len(out) == 2*frames). On EOF it
// writes silence for that buffer, then rewinds if looping, else pauses; it
// does not wait for already-written output to finish playing.
func (p *Playback) OutputCallback(out []int16) {
	p.mu.Lock()
	defer p.mu.Unlock()

	frames := len(out) / 2
	if p.paused || p.file == nil {
		zero(out)
		return
	}

	readBytes := frames * p.channels * 2
	raw := make([]byte, readBytes)
	n, err := io.ReadFull(p.file, raw)
	if err != nil && n == 0 {
		if p.mode == ModeLoop {
			if _, seekErr := p.file.Seek(p.dataStart, io.SeekStart); seekErr != nil {
				log.Printf("[playback] rewind failed: %v", seekErr)
				p.paused = true
			}
		} else {
			p.paused = true
		}
		zero(out)
		return
	}
	raw = raw[:n]

	if p.mono {
		p.L.FillFromInterleaved(raw, 0, 2, p.sampleRate)
		p.R.FillFromInterleaved(raw, 0, 2, p.sampleRate)
		p.Mix.FillFromInterleaved(raw, 0, 2, p.sampleRate)
		for i := 0; i < frames && 2*i+1 < len(raw); i++ {
			v := int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
			out[2*i] = v
			out[2*i+1] = v // broadcast mono to both output channels in place
		}
	} else {
		p.L.FillFromInterleaved(raw, 0, 4, p.sampleRate)
		p.R.FillFromInterleaved(raw, 2, 4, p.sampleRate)
		p.Mix.ComputeMix(p.L.Snapshot(), p.R.Snapshot(), p.sampleRate)
		for i := 0; i < frames && 4*i+3 < len(raw); i++ {
			out[2*i] = int16(uint16(raw[4*i]) | uint16(raw[4*i+1])<<8)
			out[2*i+1] = int16(uint16(raw[4*i+2]) | uint16(raw[4*i+3])<<8)
		}
	}
}

func zero(out []int16) {
	for i := range out {
		out[i] = 0
	}
}

// Close releases the open file and output stream.
func (p *Playback) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream != nil {
		if err := p.stream.Close(); err != nil {
			log.Printf("[playback] stream close error: %v", err)
		}
	}
	if p.file != nil {
		p.file.Close()
		p.file = nil
	}
}

// IsPaused reports whether playback is currently paused.
func (p *Playback) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}
