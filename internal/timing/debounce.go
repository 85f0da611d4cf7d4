// Package timing provides the timers the viewer needs: a trailing-edge
// debouncer, a one-shot readiness latch and a polling wait.
package timing

import (
	"sync"
	"time"
)

// DefaultDelay is the quiet period before a debounced call fires.
const DefaultDelay = 500 * time.Millisecond

// Debouncer collapses bursts of Trigger calls into one call of fn, made after
// delay has passed without another Trigger. A superseded arm never fires.
type Debouncer struct {
	fn      func()
	timer   *time.Timer
	delay   time.Duration
	gen     uint64
	stopped bool
	mu      sync.Mutex
}

// NewDebouncer creates a debouncer that is not armed.
func NewDebouncer(delay time.Duration, fn func()) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger arms the debouncer, resetting any pending timer.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.fn()
}

// Cancel disarms a pending call. The debouncer can be triggered again.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

// Pending reports whether a call is armed.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels any pending call and ignores all later triggers.
func (d *Debouncer) Stop() {
	d.Cancel()
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
}
