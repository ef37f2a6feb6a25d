package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/corelume/engine/internal/beatgate"
	"github.com/corelume/engine/internal/capture"
	"github.com/corelume/engine/internal/console"
	"github.com/corelume/engine/internal/deviceprefs"
	"github.com/corelume/engine/internal/engine"
	"github.com/corelume/engine/internal/fourier"
	"github.com/corelume/engine/internal/meter"
	"github.com/corelume/engine/internal/midi"
	"github.com/corelume/engine/internal/midimap"
	"github.com/corelume/engine/internal/midisel"
	"github.com/corelume/engine/internal/osc"
	"github.com/corelume/engine/internal/soundobject"
)

// monitorToggle is a settable boolean parameter, the simplest BooleanTarget
// a NoteMapping can drive (spec §4.K "Note mapping").
type monitorToggle struct{ on bool }

func (t *monitorToggle) Get() bool  { return t.on }
func (t *monitorToggle) Set(v bool) { t.on = v }

// config holds every CLI-configurable value, set from flags by newRootCommand.
type config struct {
	audioDevice string
	sampleRate  int
	midiPattern string
	oscPort     int
	prefsPath   string
	debugLog    string
	tickHz      int
}

func newRootCommand() *cobra.Command {
	cfg := &config{}

	root := &cobra.Command{
		Use:   "corelume",
		Short: "Audio-analysis and MIDI-dispatch core",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCore(cfg, false)
		},
	}

	root.Flags().StringVar(&cfg.audioDevice, "audio-device", "", "input device name substring to auto-select (empty: first available)")
	root.Flags().IntVar(&cfg.sampleRate, "sample-rate", 48000, "preferred audio sample rate")
	root.Flags().StringVar(&cfg.midiPattern, "midi-pattern", "", "MIDI device name substring, logged at startup (every MIDI input is opened regardless)")
	root.Flags().IntVar(&cfg.oscPort, "osc-port", 9000, "OSC listen port for note/cc/pitchbend and sound-object updates")
	root.Flags().StringVar(&cfg.prefsPath, "prefs", "midi-prefs.json.gz", "MIDI device preferences file")
	root.Flags().StringVar(&cfg.debugLog, "debug", "", "write debug logs to this file (empty disables logging)")
	root.Flags().IntVar(&cfg.tickHz, "tick-hz", 100, "control tick rate in Hz")

	monitor := &cobra.Command{
		Use:   "monitor",
		Short: "Run the core with a live read-only meter/MIDI-log console attached",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCore(cfg, true)
		},
	}
	root.AddCommand(monitor)

	return root
}

func setupLogging(path string) func() {
	if path == "" {
		log.SetOutput(io.Discard)
		return func() {}
	}
	f, err := os.Create(path)
	if err != nil {
		log.Printf("[corelume] could not open debug log %s: %v", path, err)
		return func() {}
	}
	log.SetOutput(f)
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	return func() { f.Close() }
}

func runCore(cfg *config, withMonitor bool) error {
	closeLog := setupLogging(cfg.debugLog)
	defer closeLog()

	log.Printf("[corelume] starting: device=%q sampleRate=%d oscPort=%d", cfg.audioDevice, cfg.sampleRate, cfg.oscPort)

	midiEngine := midi.New(log.Default())
	if err := midiEngine.Start(); err != nil {
		return fmt.Errorf("corelume: starting midi engine: %w", err)
	}
	defer midiEngine.Close()
	if cfg.midiPattern != "" {
		log.Printf("[corelume] midi auto-connect pattern: %q", cfg.midiPattern)
	}

	prefs, err := deviceprefs.Load(cfg.prefsPath)
	if err != nil {
		log.Printf("[corelume] device prefs: %v", err)
		prefs = &deviceprefs.File{}
	}

	var selectors []*midisel.Selector
	midiEngine.WhenReady(func() {
		sources := midiEngine.Sources()
		for _, src := range sources {
			entry, found := prefs.Find(src.Name, src.Index)
			if !found {
				entry = deviceprefs.Entry{Name: src.Name, Index: src.Index, Enabled: true, ControlEnabled: false, AllowsRouting: true}
				prefs.Upsert(entry)
			}
			src.ControlEnabled = entry.ControlEnabled
			src.AllowsRouting = entry.AllowsRouting
			if !entry.Enabled {
				log.Printf("[corelume] device %q disabled by prefs, skipping routing", src.Name)
				continue
			}

			sel := midisel.NewSelector(src.Name, src.Index)
			sel.Resolve(sources)
			selectors = append(selectors, sel)

			filter := midisel.NewFilter()
			midiEngine.AddChannelBus(midi.ChannelBus{
				Selector: sel,
				Filter:   filter,
				Handler: func(m midi.Message) {
					log.Printf("[corelume] routed %s from %s ch=%d", m.Kind, src.Name, m.Channel)
				},
			})
		}
		if err := deviceprefs.Save(cfg.prefsPath, prefs); err != nil {
			log.Printf("[corelume] saving device prefs: %v", err)
		}
	})

	audioCapture := capture.New()
	audioCapture.EnumerateAsync(func(devices []capture.Device) {
		if len(devices) == 0 {
			return
		}
		chosen := devices[0]
		for _, d := range devices {
			if cfg.audioDevice != "" && strings.Contains(strings.ToLower(d.Name), strings.ToLower(cfg.audioDevice)) {
				chosen = d
				break
			}
		}
		if err := audioCapture.Select(chosen, true); err != nil {
			log.Printf("[corelume] capture select %q: %v", chosen.Name, err)
		}
	})

	transform, err := fourier.New(512, cfg.sampleRate)
	if err != nil {
		return fmt.Errorf("corelume: fourier: %w", err)
	}

	decibelMeter := meter.NewDecibelMeter(0, 48, 10, 300)
	graphicMeter := meter.NewGraphicMeter(transform, 16)
	bandMeter := meter.NewBandMeter(graphicMeter, 0, 48, 10, 300, 0, 40, 200)
	gate := beatgate.New(40, 200, 0.6, 0.5, 400)

	audioCapture.Mix.Attach(decibelMeter)
	audioCapture.Mix.Attach(graphicMeter)

	obj := soundobject.New()
	obj.MeterSource = decibelMeter
	obj.AttackMs, obj.ReleaseMs = 20, 200

	eng := engine.New(midiEngine)
	eng.AddDecibelMeter(decibelMeter)
	eng.AddBandMeter(bandMeter)
	eng.AddGate(engine.GateBinding{Gate: gate, Source: bandMeter})
	eng.AddSoundObject(obj)

	toggle := &monitorToggle{}
	midiEngine.AddMapping(&midimap.NoteMapping{
		Channel: 0, Pitch: 60,
		Kind:        midimap.TargetBoolean,
		Boolean:     toggle,
		BooleanMode: midimap.ModeToggle,
	})

	bridge := osc.New(fmt.Sprintf(":%d", cfg.oscPort), midiEngine, log.Default())
	bridge.RegisterPosition(0, obj)
	bridge.RegisterMeter(0, obj)
	go func() {
		if err := bridge.ListenAndServe(); err != nil {
			log.Printf("[corelume] osc server: %v", err)
		}
	}()

	if withMonitor {
		p := console.NewProgram(func() console.Snapshot {
			return console.Snapshot{
				DecibelNormalized: decibelMeter.Normalized(),
				BandNormalized:    bandNormalizedSlice(bandMeter),
				GateEnvelope:      gate.Envelope(),
			}
		}, 20)
		go func() {
			if _, err := p.Run(); err != nil {
				log.Printf("[corelume] monitor exited: %v", err)
			}
		}()
	}

	ticker := time.NewTicker(time.Second / time.Duration(maxInt(cfg.tickHz, 1)))
	defer ticker.Stop()
	for now := range ticker.C {
		for _, sel := range selectors {
			sel.Resolve(midiEngine.Sources())
		}
		eng.Tick(now)
	}
	return nil
}

func bandNormalizedSlice(bm *meter.BandMeter) []float64 {
	bands := bm.Bands()
	out := make([]float64, len(bands))
	for i, b := range bands {
		out[i] = b.Normalized
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
