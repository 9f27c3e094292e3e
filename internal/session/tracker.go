package session

import (
	"sync"
	"time"

	"github.com/nerrad567/stockroom-core/internal/infrastructure/logging"
)

// EventKind identifies a session transition.
type EventKind int

const (
	EventLogin EventKind = iota + 1
	EventLogout
	EventExpired
)

// String returns the event name used in logs.
func (k EventKind) String() string {
	switch k {
	case EventLogin:
		return "login"
	case EventLogout:
		return "logout"
	case EventExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers on every transition.
type Event struct {
	Kind EventKind

	// Session is the session after a login, the ended session after a
	// logout, and the stale session on expiry.
	Session Session

	// Previous is the session a login replaced, zero for a fresh login.
	Previous Session
}

// Tracker holds the current session of one view session.
//
// Subscribers are called synchronously, outside the tracker's lock, from
// whichever goroutine caused the transition (the expiry timer included).
// They must not block.
//
// Thread Safety: All methods are safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	current *Session
	expired bool
	timer   *time.Timer
	subs    map[int]func(Event)
	nextID  int
	now     func() time.Time
	logger  *logging.Logger
}

// NewTracker creates a tracker with nobody signed in.
func NewTracker(logger *logging.Logger) *Tracker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Tracker{
		subs:   make(map[int]func(Event)),
		now:    time.Now,
		logger: logger.With("component", "session"),
	}
}

// Subscribe registers fn for every later event.
//
// Returns:
//   - func(): Removes the subscription; safe to call more than once
func (t *Tracker) Subscribe(fn func(Event)) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = fn
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
		})
	}
}

// Current returns the signed-in session, expired or not.
func (t *Tracker) Current() (Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return Session{}, ErrNoSession
	}
	return *t.current, nil
}

// Active reports whether somebody is signed in. An expired session is
// still active until a new login or a logout.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current != nil
}

// Expired reports whether the current session has expired.
func (t *Tracker) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current != nil && t.expired
}

// Token returns the current bearer token, "" when signed out.
func (t *Tracker) Token() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return ""
	}
	return t.current.Token
}

// Begin makes s the current session and schedules its expiry.
func (t *Tracker) Begin(s Session) {
	t.mu.Lock()
	var previous Session
	if t.current != nil {
		previous = *t.current
	}
	t.stopTimerLocked()
	t.current = &s
	t.expired = false
	if !s.ExpiresAt.IsZero() {
		d := max(s.ExpiresAt.Sub(t.now()), 0)
		t.timer = time.AfterFunc(d, func() { t.expire(s.Token) })
	}
	t.mu.Unlock()

	t.logger.Info("session started", "username", s.Username, "role", s.Role)
	t.emit(Event{Kind: EventLogin, Session: s, Previous: previous})
}

// End signs out. It is a no-op when nobody is signed in.
func (t *Tracker) End() {
	t.mu.Lock()
	if t.current == nil {
		t.mu.Unlock()
		return
	}
	ended := *t.current
	t.stopTimerLocked()
	t.current = nil
	t.expired = false
	t.mu.Unlock()

	t.logger.Info("session ended", "username", ended.Username)
	t.emit(Event{Kind: EventLogout, Session: ended})
}

// Expire marks the current session expired. Repeated calls, and calls while
// signed out, are ignored.
func (t *Tracker) Expire() {
	t.expire("")
}

// Close stops the expiry timer and drops every subscriber.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopTimerLocked()
	clear(t.subs)
}

// expire marks the session expired. A non-empty token restricts it to the
// session carrying that token, so a timer racing a re-login cannot expire
// the new session.
func (t *Tracker) expire(token string) {
	t.mu.Lock()
	if t.current == nil || t.expired || (token != "" && t.current.Token != token) {
		t.mu.Unlock()
		return
	}
	t.expired = true
	stale := *t.current
	t.stopTimerLocked()
	t.mu.Unlock()

	t.logger.Info("session expired", "username", stale.Username)
	t.emit(Event{Kind: EventExpired, Session: stale})
}

func (t *Tracker) stopTimerLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Tracker) emit(e Event) {
	t.mu.Lock()
	subs := make([]func(Event), 0, len(t.subs))
	for _, fn := range t.subs {
		subs = append(subs, fn)
	}
	t.mu.Unlock()

	for _, fn := range subs {
		fn(e)
	}
}
