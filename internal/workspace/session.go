package workspace

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/stockroom-core/internal/inventory"
	"github.com/nerrad567/stockroom-core/internal/navigation"
	"github.com/nerrad567/stockroom-core/internal/prefs"
	"github.com/nerrad567/stockroom-core/internal/session"
)

// Login signs in with credentials. Thread-safe; must not be called on the
// loop. A failure shows "Login failed".
func (a *App) Login(ctx context.Context, username, password string) error {
	a.loop.Post(func() { a.setError("") })

	s, err := a.authAPI.Login(ctx, username, password)
	if err != nil {
		a.loop.Post(func() { a.setError("Login failed") })
		return err
	}
	a.tracker.Begin(s)
	return nil
}

// Resume signs in with a token kept by the shell. Thread-safe; must not be
// called on the loop. A rejected token shows "Session expired".
func (a *App) Resume(ctx context.Context, token string) error {
	s, err := a.authAPI.Me(ctx, token)
	if err != nil {
		a.loop.Post(func() { a.setError("Session expired") })
		return err
	}
	a.tracker.Begin(s)
	return nil
}

// Reauth signs in again from the session-expired prompt. Failures stay on
// the prompt instead of the error banner. Thread-safe; must not be called
// on the loop.
func (a *App) Reauth(ctx context.Context, username, password string) error {
	a.loop.Post(func() {
		a.reauthError = ""
		a.reauthBusy = true
		a.changed()
	})

	s, err := a.authAPI.Login(ctx, username, password)
	if err != nil {
		a.loop.Post(func() {
			a.reauthError = "Login failed"
			a.reauthBusy = false
			a.changed()
		})
		return err
	}
	a.tracker.Begin(s)
	a.loop.Post(func() {
		a.reauthBusy = false
		a.changed()
	})
	return nil
}

// Logout signs out. Thread-safe.
func (a *App) Logout() {
	a.tracker.End()
}

func (a *App) onSessionEvent(e session.Event) {
	if a.closed {
		return
	}
	a.logger.Debug("session event", "kind", e.Kind, "username", e.Session.Username)

	switch e.Kind {
	case session.EventLogin:
		a.expired = false
		a.reauthError = ""
		if e.Previous.Token == "" {
			a.startSession(e.Session)
		} else {
			a.reauthenticated(e.Previous, e.Session)
		}
	case session.EventLogout:
		a.endSession()
	case session.EventExpired:
		a.expired = true
	}
	a.changed()
}

// startSession begins a fresh sign-in: initial loads, then preferences,
// then the fragment.
func (a *App) startSession(s session.Session) {
	a.sessCtx, a.sessCancel = context.WithCancel(a.ctx)
	if !a.openReconciler() {
		return
	}
	a.prefsReady = false

	a.spawn(a.sessCtx, func(ctx context.Context) {
		a.loadSession(ctx, s.Token, s.Username, true)
	})
}

// reauthenticated handles a sign-in over an existing session.
func (a *App) reauthenticated(previous, next session.Session) {
	if session.SameIdentity(previous.Username, next.Username) {
		a.spawn(a.sessCtx, func(ctx context.Context) { a.refreshLists(ctx, next.Token) })
		return
	}

	a.logger.Info("signed in as a different user, resetting view",
		"previous", previous.Username, "username", next.Username)
	// A pass still loading an item for the previous user must not commit.
	a.closeReconciler()
	a.openReconciler()
	a.resetView()
	a.setNotice("")
	a.prefsReady = false
	a.spawn(a.sessCtx, func(ctx context.Context) {
		a.loadSession(ctx, next.Token, next.Username, false)
	})
}

// endSession resets everything after a logout.
func (a *App) endSession() {
	a.closeReconciler()
	if a.sessCancel != nil {
		a.sessCancel()
		a.sessCtx, a.sessCancel = nil, nil
	}
	a.searchTimer.Cancel()

	a.resetView()
	a.setNotice("")
	a.expired = false
	a.reauthError = ""
	a.reauthBusy = false
	a.busy = false
	a.prefsReady = false

	if a.loc.Hash() != navigation.Root {
		a.loc.ReplaceHash(navigation.Root)
	}
}

// openReconciler gives the session a fresh reconciler. It reports whether
// one could be created.
func (a *App) openReconciler() bool {
	rec, err := navigation.New(navigation.Deps{
		Loop:     a.loop,
		Location: a.loc,
		Actions:  a,
		Session:  a.tracker,
		Logger:   a.logger,
	})
	if err != nil {
		a.logger.Error("creating reconciler failed", "error", err)
		return false
	}
	a.rec = rec
	return true
}

func (a *App) closeReconciler() {
	if a.rec == nil {
		return
	}
	rec := a.rec
	a.rec = nil
	rec.Close()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		rec.Wait()
	}()
}

// resetView returns every view field to its initial value.
func (a *App) resetView() {
	a.stock = newStockState()
	a.users = newUserState()
	a.listSeq++
	a.searchTimer.Cancel()
	a.changed()
}

// loadSession runs the initial loads of a sign-in in parallel, applies the
// stored preferences validated against the loaded items and, when
// applyFragment is set, applies the current fragment on top.
func (a *App) loadSession(ctx context.Context, token, username string, applyFragment bool) {
	var (
		items, all       []inventory.Item
		itemsErr, allErr error
		stored           prefs.Preferences
		storedErr        error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, itemsErr = a.stockAPI.List(gctx, token, "")
		return ctx.Err()
	})
	g.Go(func() error {
		all, allErr = a.stockAPI.ListAll(gctx, token)
		return ctx.Err()
	})
	g.Go(func() error {
		stored, storedErr = a.prefs.Load(gctx, username)
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return
	}

	a.commit(ctx, func() {
		a.listSeq++
		a.commitLists(items, all, itemsErr, allErr, true)

		p := prefs.Defaults()
		switch {
		case storedErr == nil:
			p = stored
		case !errors.Is(storedErr, prefs.ErrNotFound):
			a.logger.Warn("loading preferences failed", "username", username, "error", storedErr)
		}
		a.applyPrefs(p.Validate(prefs.KnownFrom(a.stock.allItems)))
		a.savedPrefs = a.currentPrefs()
		a.prefsReady = true

		if applyFragment && a.rec != nil {
			a.rec.Apply(a.loc.Hash())
		}
	})
}

// refreshLists reloads the filtered list and the totals together.
func (a *App) refreshLists(ctx context.Context, token string) {
	var term string
	var seq uint64
	if !a.commit(ctx, func() {
		a.listSeq++
		seq = a.listSeq
		term = strings.TrimSpace(a.stock.search)
	}) {
		return
	}

	var (
		items, all       []inventory.Item
		itemsErr, allErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, itemsErr = a.stockAPI.List(gctx, token, term)
		return ctx.Err()
	})
	g.Go(func() error {
		all, allErr = a.stockAPI.ListAll(gctx, token)
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return
	}

	a.commit(ctx, func() {
		a.commitLists(items, all, itemsErr, allErr, seq == a.listSeq)
	})
}
