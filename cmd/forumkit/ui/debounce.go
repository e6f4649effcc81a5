package ui

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid events such as window resizes or keystroke
// bursts. Rapid successive calls reset the timer; only the last call's
// function runs.
type Debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	duration time.Duration
}

// NewDebouncer creates a new debouncer with the specified duration
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{duration: duration}
}

// Debounce executes fn after the debounce duration has elapsed without any
// new calls.
func (d *Debouncer) Debounce(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, fn)
}

// Cancel cancels any pending debounced call
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// DefaultResizeDuration is the recommended debounce duration for resize
// events.
const DefaultResizeDuration = 300 * time.Millisecond
