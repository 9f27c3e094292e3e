// Package eventloop provides the single logical UI thread of a view session.
//
// A view session (one connected browser shell) owns exactly one Loop. Every
// mutation of view state, every reconciler step and every timer callback
// runs as a function posted to that loop, so none of that state needs a
// lock. Blocking work (HTTP calls to the inventory backend) runs on its own
// goroutine and hands its result back with Call.
//
// # Ticks
//
// Post enqueues a function to run after everything already queued. This is
// the "next tick" used to defer work until all synchronous updates of the
// current callback have been applied:
//
//	loop.Post(func() {
//	    state.Page = 3
//	    loop.Post(func() { render() }) // sees Page = 3
//	})
//
// # Timers
//
// Timer and Debouncer wrap time.AfterFunc so the callback fires on the loop
// rather than on the runtime timer goroutine. A stopped or reset timer never
// delivers a stale callback, even when the runtime timer had already fired
// and the callback was queued.
//
// # Lifecycle
//
//	loop := eventloop.New(64)
//	go loop.Run(ctx)
//	defer loop.Close()
//
// After Close, Post drops functions and Call returns ErrClosed.
package eventloop
