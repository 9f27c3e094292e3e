package eventloop

import (
	"sync"
	"time"
)

// Timer is a cancellable one-shot timer whose callback runs on a Loop.
//
// Reset and Stop are meant to be called from the loop. A callback is only
// delivered for the most recent Reset; one that was already queued when the
// timer was reset or stopped is dropped.
type Timer struct {
	loop *Loop
	fn   func()

	mu    sync.Mutex
	t     *time.Timer
	armed uint64
}

// NewTimer creates a stopped timer that will run fn on loop.
func NewTimer(loop *Loop, fn func()) *Timer {
	return &Timer{loop: loop, fn: fn}
}

// Reset (re)arms the timer to fire after d, discarding any pending firing.
func (t *Timer) Reset(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.t != nil {
		t.t.Stop()
	}
	t.armed++
	seq := t.armed
	t.t = time.AfterFunc(d, func() {
		t.loop.Post(func() { t.fire(seq) })
	})
}

// Stop disarms the timer. It reports whether a firing was pending.
func (t *Timer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.t == nil {
		return false
	}
	t.t.Stop()
	t.t = nil
	t.armed++
	return true
}

func (t *Timer) fire(seq uint64) {
	t.mu.Lock()
	if seq != t.armed || t.t == nil {
		t.mu.Unlock()
		return
	}
	t.t = nil
	t.mu.Unlock()

	t.fn()
}

// Debouncer runs a callback once input has been quiet for a fixed period.
// Every Trigger restarts the period.
type Debouncer struct {
	timer *Timer
	quiet time.Duration
}

// NewDebouncer creates a debouncer that runs fn on loop after quiet.
func NewDebouncer(loop *Loop, quiet time.Duration, fn func()) *Debouncer {
	return &Debouncer{timer: NewTimer(loop, fn), quiet: quiet}
}

// Trigger restarts the quiet period.
func (d *Debouncer) Trigger() {
	d.timer.Reset(d.quiet)
}

// Cancel drops a pending run.
func (d *Debouncer) Cancel() {
	d.timer.Stop()
}
