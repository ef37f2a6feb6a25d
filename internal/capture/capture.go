// Package capture implements device enumeration and the PCM capture thread
// that feeds L/R/Mix AudioBuffers (spec component F).
package capture

import (
	"fmt"
	"log"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/corelume/engine/internal/audiobuf"
)

// FrameSize is the fixed capture window size, in frames, per spec §6.
const FrameSize = 512

// bufferFrames is how many FrameSize windows portaudio buffers internally
// before handing control back to the capture thread.
const bufferFrames = 4

// formatCandidate is one entry in the priority-ordered format probe list
// from spec §4.F.
type formatCandidate struct {
	channels   int
	sampleRate float64
}

var formatPriority = []formatCandidate{
	{channels: 2, sampleRate: 48000},
	{channels: 2, sampleRate: 44100},
	{channels: 1, sampleRate: 48000},
	{channels: 1, sampleRate: 44100},
}

// Device describes one enumerated capture endpoint.
type Device struct {
	Name        string
	Index       int
	Unavailable bool // true for the synthetic placeholder when none exist
	info        *portaudio.DeviceInfo
}

// Capture owns a capture thread and the L/R/Mix AudioBuffers it feeds.
type Capture struct {
	L, R, Mix *audiobuf.Buffer

	mu        sync.Mutex
	devices   []Device
	enabled   bool
	connected bool
	stopped   bool
	closed    bool
	cond      *sync.Cond
	stream    *portaudio.Stream
	mono      bool
	device    *Device
}

// New constructs a stopped Capture whose L/R/Mix buffers hold FrameSize
// samples each.
func New() *Capture {
	c := &Capture{
		L:       audiobuf.New(FrameSize),
		R:       audiobuf.New(FrameSize),
		Mix:     audiobuf.New(FrameSize),
		stopped: true,
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// EnumerateAsync scans capture endpoints in a background goroutine (device
// scans can be slow) and invokes onDone with the resulting list once
// finished, falling back to a single "Unavailable" placeholder when none
// exist.
func (c *Capture) EnumerateAsync(onDone func([]Device)) {
	go func() {
		devices, err := portaudio.Devices()
		var found []Device
		if err != nil {
			log.Printf("[capture] enumeration failed: %v", err)
		} else {
			for i, d := range devices {
				if d.MaxInputChannels > 0 {
					found = append(found, Device{Name: d.Name, Index: i, info: d})
				}
			}
		}
		if len(found) == 0 {
			found = []Device{{Name: "Unavailable", Unavailable: true}}
		}

		c.mu.Lock()
		c.devices = found
		c.mu.Unlock()

		if onDone != nil {
			onDone(found)
		}
	}()
}

// Devices returns the most recently enumerated device list.
func (c *Capture) Devices() []Device {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Device, len(c.devices))
	copy(out, c.devices)
	return out
}

// Select opens the given device, probing formats in priority order, and
// spawns the capture thread if not already running. Device open failures
// are recoverable: connected is published false and the caller may retry.
func (c *Capture) Select(dev Device, enabled bool) error {
	c.mu.Lock()
	c.enabled = enabled
	c.mu.Unlock()

	if !enabled || dev.Unavailable {
		return nil
	}

	var lastErr error
	for _, fc := range formatPriority {
		params, err := paramsFor(dev, fc)
		if err != nil {
			lastErr = err
			continue
		}
		stream, err := portaudio.OpenStream(params, c.readCallback)
		if err != nil {
			lastErr = err
			continue
		}
		if err := stream.Start(); err != nil {
			stream.Close()
			lastErr = err
			continue
		}

		c.mu.Lock()
		c.stream = stream
		c.device = &dev
		c.mono = fc.channels == 1
		c.connected = true
		c.stopped = false
		c.closed = false
		c.cond.Broadcast()
		c.mu.Unlock()

		log.Printf("[capture] opened %s at %d Hz, %d ch", dev.Name, int(fc.sampleRate), fc.channels)
		return nil
	}

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	return fmt.Errorf("capture: could not open device %q in any supported format: %w", dev.Name, lastErr)
}

func paramsFor(dev Device, fc formatCandidate) (portaudio.StreamParameters, error) {
	if dev.info == nil {
		return portaudio.StreamParameters{}, fmt.Errorf("capture: device %q has no portaudio info", dev.Name)
	}
	return portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev.info,
			Channels: fc.channels,
			Latency:  dev.info.DefaultLowInputLatency,
		},
		SampleRate:      fc.sampleRate,
		FramesPerBuffer: FrameSize * bufferFrames,
	}, nil
}

// readCallback is invoked by portaudio on its own capture thread with a
// freshly read frame. It demuxes into L/R/Mix per spec §4.F and fans out to
// attached meters via the AudioBuffer fill contract.
func (c *Capture) readCallback(in []int16) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	for c.stopped {
		c.cond.Wait()
		if c.closed {
			c.mu.Unlock()
			return
		}
	}
	mono := c.mono
	var sampleRate int
	if c.stream != nil {
		sampleRate = int(c.stream.Info().SampleRate)
	}
	c.mu.Unlock()

	raw := int16SliceToBytes(in)
	if mono {
		c.L.FillFromInterleaved(raw, 0, 2, sampleRate)
		c.R.FillFromInterleaved(raw, 0, 2, sampleRate)
		c.Mix.FillFromInterleaved(raw, 0, 2, sampleRate)
	} else {
		c.L.FillFromInterleaved(raw, 0, 4, sampleRate)
		c.R.FillFromInterleaved(raw, 2, 4, sampleRate)
		c.Mix.ComputeMix(c.L.Snapshot(), c.R.Snapshot(), sampleRate)
	}
}

func int16SliceToBytes(in []int16) []byte {
	out := make([]byte, len(in)*2)
	for i, v := range in {
		out[2*i] = byte(v)
		out[2*i+1] = byte(v >> 8)
	}
	return out
}

// Stop pauses the capture thread without closing the device.
func (c *Capture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
}

// Resume wakes the capture thread from its condvar wait.
func (c *Capture) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = false
	c.cond.Broadcast()
}

// Close stops the capture thread permanently and releases the device.
// Best-effort: close failures are logged, never propagated, per spec §5.
func (c *Capture) Close() {
	c.mu.Lock()
	c.closed = true
	c.stopped = true
	stream := c.stream
	c.cond.Broadcast()
	c.mu.Unlock()

	if stream != nil {
		if err := stream.Stop(); err != nil {
			log.Printf("[capture] stream stop error: %v", err)
		}
		if err := stream.Close(); err != nil {
			log.Printf("[capture] stream close error: %v", err)
		}
	}
}

// Connected reports the last published connection state.
func (c *Capture) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// OnDisconnect should be invoked by the platform's device-change
// notification; it publishes connected=false without tearing down the
// capture thread, matching spec §4.F's reconnect-without-recreate contract.
func (c *Capture) OnDisconnect() {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}
