package midimap

import (
	"sync"
	"time"
)

// coalesceWindow is the quiet period after which a burst of CC updates is
// considered one undoable action (spec §4.K "Command coalescing").
const coalesceWindow = 1 * time.Second

// Coalescer groups rapid-fire updates to one mapping into a single
// undoable action: the first Notify in a quiet period opens the action,
// every subsequent Notify within coalesceWindow extends it, and once the
// window elapses with no further Notify the action commits. Modeled on the
// debounce-timer shape used for autosave elsewhere in this codebase.
type Coalescer struct {
	mu      sync.Mutex
	timer   *time.Timer
	open    bool
	onOpen  func()
	onClose func()
}

// NewCoalescer constructs a Coalescer. onOpen fires once when a new action
// begins; onClose fires once the window elapses with no further updates.
// Either may be nil.
func NewCoalescer(onOpen, onClose func()) *Coalescer {
	return &Coalescer{onOpen: onOpen, onClose: onClose}
}

// Notify records one update. Safe to call from the engine thread only,
// matching every other mapping mutation path.
func (c *Coalescer) Notify() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		c.open = true
		if c.onOpen != nil {
			c.onOpen()
		}
	}

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(coalesceWindow, func() {
		c.mu.Lock()
		c.open = false
		closeFn := c.onClose
		c.mu.Unlock()
		if closeFn != nil {
			closeFn()
		}
	})
}

// Open reports whether an action is currently in progress.
func (c *Coalescer) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}
