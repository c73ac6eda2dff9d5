// Package debounce coalesces bursts of calls into a single delayed call.
package debounce

import (
	"sync"
	"time"
)

var afterFunc = time.AfterFunc

// Debouncer runs fn once delay has passed without a new Trigger. With a
// max wait set, a continuous burst still fires at least every maxWait.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	maxWait time.Duration
	timer   *time.Timer
	gen     uint64
	first   time.Time
	fn      func()
}

func New(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// NewWithMaxWait bounds how long a burst can postpone fn.
func NewWithMaxWait(delay, maxWait time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, maxWait: maxWait, fn: fn}
}

func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	now := time.Now()
	if d.first.IsZero() {
		d.first = now
	}
	wait := d.delay
	if d.maxWait > 0 {
		if left := d.maxWait - now.Sub(d.first); left < wait {
			wait = max(left, 0)
		}
	}
	d.gen++
	gen := d.gen
	d.timer = afterFunc(wait, func() { d.fire(gen) })
}

// fire ignores callbacks of timers replaced or stopped in the meantime.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.first = time.Time{}
	d.mu.Unlock()
	d.fn()
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.first = time.Time{}
}
