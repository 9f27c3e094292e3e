package eventloop

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Call once the loop has stopped.
var ErrClosed = errors.New("event loop closed")

// defaultQueueSize is used when New is given a non-positive size.
const defaultQueueSize = 64

// Loop runs posted functions one at a time, in FIFO order, on one goroutine.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	done   chan struct{}
	closed bool

	closeOnce sync.Once
}

// New creates a loop. queueSize is the initial queue capacity; the queue
// grows as needed so Post never blocks.
func New(queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Loop{
		queue: make([]func(), 0, queueSize),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Post enqueues fn to run on the loop after everything already queued.
// It never blocks and may be called from any goroutine, including the loop
// itself. Functions posted after Close are dropped.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Call runs fn on the loop and waits for it to finish.
//
// Call must not be used from the loop goroutine itself; it would wait for a
// function queued behind the caller.
//
// Returns:
//   - error: ErrClosed if the loop stopped before fn ran, ctx.Err() if ctx ended first
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})

	l.Post(func() {
		defer close(finished)
		fn()
	})

	select {
	case <-finished:
		return nil
	case <-l.done:
		// fn may have completed in the same instant the loop stopped.
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes queued functions until ctx is cancelled or Close is called.
// Functions still queued when the loop stops are discarded.
func (l *Loop) Run(ctx context.Context) {
	defer l.Close()

	for {
		fn, ok := l.next()
		if ok {
			fn()
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-l.done:
			return
		case <-l.wake:
		}
	}
}

// Done is closed when the loop stops.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Close stops the loop. It is safe to call more than once and from any goroutine.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.queue = nil
		l.mu.Unlock()
		close(l.done)
	})
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}
