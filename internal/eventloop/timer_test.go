package eventloop

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestTimer_Fires(t *testing.T) {
	loop := startLoop(t)
	fired := make(chan struct{})

	timer := NewTimer(loop, func() { close(fired) })
	loop.Post(func() { timer.Reset(10 * time.Millisecond) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
}

func TestTimer_StopPreventsFiring(t *testing.T) {
	loop := startLoop(t)
	var fired atomic.Int32

	timer := NewTimer(loop, func() { fired.Add(1) })
	timer.Reset(20 * time.Millisecond)
	if !timer.Stop() {
		t.Error("Stop() = false, want true for armed timer")
	}
	if timer.Stop() {
		t.Error("second Stop() = true, want false")
	}

	time.Sleep(60 * time.Millisecond)
	_ = loop.Call(context.Background(), func() {})
	if fired.Load() != 0 {
		t.Errorf("stopped timer fired %d times", fired.Load())
	}
}

func TestTimer_ResetDropsQueuedFiring(t *testing.T) {
	loop := New(0) // not running yet: firings queue up
	var fired atomic.Int32

	timer := NewTimer(loop, func() { fired.Add(1) })
	timer.Reset(time.Millisecond)
	time.Sleep(20 * time.Millisecond) // first firing is now queued on the loop

	timer.Reset(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()
	_ = loop.Call(context.Background(), func() {})
	cancel()
	<-done
	timer.Stop()

	if fired.Load() != 0 {
		t.Errorf("stale firing delivered %d times", fired.Load())
	}
}

func TestDebouncer(t *testing.T) {
	loop := startLoop(t)
	var runs atomic.Int32
	ran := make(chan struct{}, 4)

	d := NewDebouncer(loop, 30*time.Millisecond, func() {
		runs.Add(1)
		ran <- struct{}{}
	})

	for range 5 {
		d.Trigger()
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("debounced function never ran")
	}
	time.Sleep(60 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Errorf("debounced function ran %d times, want 1", got)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	loop := startLoop(t)
	var runs atomic.Int32

	d := NewDebouncer(loop, 10*time.Millisecond, func() { runs.Add(1) })
	d.Trigger()
	d.Cancel()

	time.Sleep(40 * time.Millisecond)
	_ = loop.Call(context.Background(), func() {})
	if runs.Load() != 0 {
		t.Errorf("cancelled debouncer ran %d times", runs.Load())
	}
}
