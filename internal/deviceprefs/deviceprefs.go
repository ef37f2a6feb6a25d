// Package deviceprefs persists per-device MIDI preferences (enabled flags
// and routing choices) keyed by stable device name, with a (name, index)
// fallback for devices missing at load time (spec §6 "Persisted state").
package deviceprefs

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Entry holds the persisted preferences for one device.
type Entry struct {
	Name    string `json:"name"`
	Index   int    `json:"index"`
	Enabled bool   `json:"enabled"`

	// ControlEnabled mirrors midi.Source.ControlEnabled.
	ControlEnabled bool `json:"controlEnabled"`
	// AllowsRouting mirrors midi.Source.AllowsRouting.
	AllowsRouting bool `json:"allowsRouting"`
}

// File is the on-disk shape: a flat list keyed by Name at lookup time, not
// by a map, so re-binding by (name, index) on load is explicit rather than
// accidental via map iteration order.
type File struct {
	Devices []Entry `json:"devices"`
}

// Load decompresses and decodes prefsPath. A missing file is not an error;
// it returns an empty File so first-run startup proceeds with defaults.
func Load(prefsPath string) (*File, error) {
	f, err := os.Open(prefsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, fmt.Errorf("deviceprefs: open %s: %w", prefsPath, err)
	}
	defer f.Close()

	gzReader, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("deviceprefs: gzip reader: %w", err)
	}
	defer gzReader.Close()

	data, err := io.ReadAll(gzReader)
	if err != nil {
		return nil, fmt.Errorf("deviceprefs: read: %w", err)
	}

	var out File
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("deviceprefs: unmarshal: %w", err)
	}
	return &out, nil
}

// Save gzip+json-encodes f to prefsPath, overwriting any existing file.
func Save(prefsPath string, f *File) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("deviceprefs: marshal: %w", err)
	}

	out, err := os.Create(prefsPath)
	if err != nil {
		return fmt.Errorf("deviceprefs: create %s: %w", prefsPath, err)
	}
	defer out.Close()

	gzWriter := gzip.NewWriter(out)
	if _, err := gzWriter.Write(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("deviceprefs: write: %w", err)
	}
	return gzWriter.Close()
}

// Find returns the entry matching both name and index; if none matches
// exactly, it falls back to the first entry with the same name regardless
// of index.
func (f *File) Find(name string, index int) (Entry, bool) {
	var byNameOnly *Entry
	for i := range f.Devices {
		e := &f.Devices[i]
		if e.Name == name && e.Index == index {
			return *e, true
		}
		if e.Name == name && byNameOnly == nil {
			byNameOnly = e
		}
	}
	if byNameOnly != nil {
		return *byNameOnly, true
	}
	return Entry{}, false
}

// Upsert replaces the entry matching (Name, Index), or appends e if none
// matches.
func (f *File) Upsert(e Entry) {
	for i := range f.Devices {
		if f.Devices[i].Name == e.Name && f.Devices[i].Index == e.Index {
			f.Devices[i] = e
			return
		}
	}
	f.Devices = append(f.Devices, e)
}
