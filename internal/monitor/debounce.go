package monitor

import (
	"sync"
	"time"
)

// KeyedDebouncer batches rapid events per key into a single action after a
// quiet period. Editors often produce several writes for one logical save;
// debouncing per path keeps Observe from checksumming the same file
// repeatedly. Safe for concurrent triggers.
type KeyedDebouncer struct {
	mu       sync.Mutex
	duration time.Duration
	action   func(key string)
	timers   map[string]*time.Timer
	seqs     map[string]uint64
}

// NewKeyedDebouncer creates a debouncer that invokes action(key) once the
// duration has passed since the last Trigger for that key.
func NewKeyedDebouncer(duration time.Duration, action func(key string)) *KeyedDebouncer {
	return &KeyedDebouncer{
		duration: duration,
		action:   action,
		timers:   make(map[string]*time.Timer),
		seqs:     make(map[string]uint64),
	}
}

// Trigger schedules the action for key, resetting any pending timer for it.
func (d *KeyedDebouncer) Trigger(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[key]; ok {
		t.Stop()
	}

	// Sequence number prevents a stale timer from firing after a reset.
	d.seqs[key]++
	seq := d.seqs[key]

	d.timers[key] = time.AfterFunc(d.duration, func() {
		d.mu.Lock()
		if d.seqs[key] != seq {
			d.mu.Unlock()
			return
		}
		delete(d.timers, key)
		d.mu.Unlock()
		d.action(key)
	})
}

// Cancel stops every pending action. Safe to call repeatedly.
func (d *KeyedDebouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
		d.seqs[key]++
	}
}
