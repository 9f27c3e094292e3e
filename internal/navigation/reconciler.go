package navigation

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/stockroom-core/internal/eventloop"
	"github.com/nerrad567/stockroom-core/internal/infrastructure/logging"
	"github.com/nerrad567/stockroom-core/internal/inventory"
	"github.com/nerrad567/stockroom-core/internal/users"
)

// FilterActions set list filters, sort and paging. Called on the loop.
type FilterActions interface {
	SetSearch(text string)
	SetStatusFilter(status string)
	SetCategoryFilter(category string)
	SetHideRetired(hide bool)
	SetSortField(field string)
	SetSortDirection(direction string)
	SetPageSize(size int)
	SetPage(page int)
}

// ItemActions open and close the item panels.
//
// FetchItemDetail is called off the loop: it performs the request, commits
// the result through the loop itself and returns the item, or nil when the
// load failed (surfacing its own error). Every other method is called on
// the loop.
type ItemActions interface {
	SetSelectedID(id int64)
	FetchItemDetail(ctx context.Context, id int64) *inventory.Item
	SetShowItemModal(show bool)
	CloseItemModal()
	SetShowAddModal(show bool)
	OpenQuickAction(item *inventory.Item, form inventory.QuickActionForm)
	ClearQuickAction()
	OpenRetire(item *inventory.Item, form inventory.RetireForm)
	ClearRetire()
}

// UserActions drive the user-management panel.
//
// OpenUserPanel and LoadAuditLogs are called off the loop and follow the
// same contract as ItemActions.FetchItemDetail. The others run on the loop.
type UserActions interface {
	OpenUserPanel(ctx context.Context)
	CloseUserPanel()
	SetUserView(view string)
	LoadAuditLogs(ctx context.Context)
}

// Actions is the complete surface the reconciler drives.
type Actions interface {
	FilterActions
	ItemActions
	UserActions
}

// SessionView reports whether a signed-in session is active.
type SessionView interface {
	Active() bool
}

// Deps holds the dependencies of a Reconciler.
type Deps struct {
	Loop     *eventloop.Loop
	Location Location
	Actions  Actions
	Session  SessionView
	Logger   *logging.Logger
}

// Reconciler synchronizes a Location with the view state of one session.
//
// Apply, Sync and Close must be called on the loop. Wait may be called
// from any goroutine other than the loop.
type Reconciler struct {
	loop    *eventloop.Loop
	loc     Location
	actions Actions
	session SessionView
	logger  *logging.Logger

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	// Loop-owned.
	generation uint64
	applying   uint64 // generation holding the guard, 0 when released
	cancelPass context.CancelFunc
	last       ViewState
	hasLast    bool
	amended    bool // last must reach the fragment on release
	closed     bool
}

// New creates a reconciler.
//
// Returns:
//   - *Reconciler: Reconciler ready for Apply and Sync
//   - error: If a required dependency is missing
func New(deps Deps) (*Reconciler, error) {
	if deps.Loop == nil {
		return nil, fmt.Errorf("event loop is required")
	}
	if deps.Location == nil {
		return nil, fmt.Errorf("location is required")
	}
	if deps.Actions == nil {
		return nil, fmt.Errorf("actions are required")
	}
	if deps.Session == nil {
		return nil, fmt.Errorf("session is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}

	ctx, stop := context.WithCancel(context.Background())
	return &Reconciler{
		loop:    deps.Loop,
		loc:     deps.Location,
		actions: deps.Actions,
		session: deps.Session,
		logger:  logger.With("component", "reconciler"),
		ctx:     ctx,
		stop:    stop,
	}, nil
}

// Applying reports whether a pass currently holds the guard.
func (r *Reconciler) Applying() bool {
	return r.applying != 0
}

// Apply drives the view state to match fragment.
//
// A fragment outside the inventory tree is replaced with Root and nothing
// else happens. Otherwise the pass supersedes any pass still in flight,
// applies the query parameters, then opens the panel the path names. Item
// and user loads suspend the pass on a task goroutine.
func (r *Reconciler) Apply(fragment string) {
	if r.closed || !r.session.Active() {
		return
	}

	frag := Decode(fragment)

	r.generation++
	gen := r.generation
	r.amended = false
	if r.cancelPass != nil {
		r.cancelPass()
		r.cancelPass = nil
	}

	// The guard is taken even for a reset so a superseded pass's pending
	// renders cannot write over the replacement.
	r.applying = gen
	if frag.Segment(0) != SegmentInventory {
		r.logger.Debug("fragment outside inventory, resetting", "fragment", fragment)
		r.setHash(Root)
		r.release(gen)
		return
	}

	r.applyParams(frag)

	switch frag.Segment(1) {
	case SegmentUsers:
		r.spawn(gen, func(ctx context.Context) { r.applyUsers(ctx, gen, frag) })
		return
	case SegmentAdd:
		r.actions.CloseUserPanel()
		r.actions.SetShowAddModal(true)
		r.actions.CloseItemModal()
		r.actions.ClearQuickAction()
		r.actions.ClearRetire()
	case SegmentItem:
		r.actions.CloseUserPanel()
		r.actions.SetShowAddModal(false)
		if frag.Segment(2) == "" {
			r.closeItem()
			break
		}
		id, err := ParseItemID(frag.Segment(2))
		if err != nil {
			r.logger.Debug("ignoring item fragment", "segment", frag.Segment(2), "error", err)
			r.closeItem()
			break
		}
		r.actions.SetSelectedID(id)
		r.spawn(gen, func(ctx context.Context) { r.applyItem(ctx, gen, id, frag.Segment(3)) })
		return
	default:
		r.actions.CloseUserPanel()
		r.actions.SetShowAddModal(false)
		r.closeItem()
	}

	r.release(gen)
}

func (r *Reconciler) applyParams(frag Fragment) {
	a := r.actions
	if frag.Has(ParamSearch) {
		a.SetSearch(frag.Get(ParamSearch))
	}
	if frag.Has(ParamStatus) {
		a.SetStatusFilter(orDefault(frag.Get(ParamStatus), inventory.DefaultFilterStatus))
	}
	if frag.Has(ParamCategory) {
		a.SetCategoryFilter(orDefault(frag.Get(ParamCategory), inventory.DefaultFilterCategory))
	}
	if frag.Has(ParamHideRetired) {
		a.SetHideRetired(ParseBool(frag.Get(ParamHideRetired)))
	}
	if frag.Has(ParamSort) {
		a.SetSortField(orDefault(frag.Get(ParamSort), inventory.DefaultSortField))
	}
	if frag.Has(ParamDirection) {
		a.SetSortDirection(orDefault(frag.Get(ParamDirection), inventory.DefaultSortDirection))
	}
	if frag.Has(ParamPageSize) {
		if size, ok := ParsePageSize(frag.Get(ParamPageSize)); ok {
			a.SetPageSize(size)
		}
	}
	if frag.Has(ParamPage) {
		if page, ok := ParsePage(frag.Get(ParamPage)); ok {
			a.SetPage(page)
		}
	}
}

func (r *Reconciler) applyUsers(ctx context.Context, gen uint64, frag Fragment) {
	r.actions.OpenUserPanel(ctx)

	view := frag.Get(ParamUserView)
	if !users.ValidView(view) {
		view = users.DefaultView
	}
	if !r.step(ctx, gen, func() { r.actions.SetUserView(view) }) {
		return
	}

	if view == users.ViewLogs {
		r.actions.LoadAuditLogs(ctx)
	}

	r.step(ctx, gen, func() {
		r.closeItem()
		r.actions.SetShowAddModal(false)
		r.release(gen)
	})
}

func (r *Reconciler) applyItem(ctx context.Context, gen uint64, id int64, action string) {
	item := r.actions.FetchItemDetail(ctx, id)

	r.step(ctx, gen, func() {
		switch {
		case action == SegmentQuick && item != nil && !item.IsCable():
			r.actions.OpenQuickAction(item, inventory.NewQuickActionForm())
			r.actions.ClearRetire()
			r.actions.SetShowItemModal(false)
		case action == SegmentRetire && item != nil:
			r.actions.OpenRetire(item, inventory.NewRetireForm())
			r.actions.ClearQuickAction()
			r.actions.SetShowItemModal(true)
		default:
			// Plain detail. Covers cables asked for a quick action and
			// items that failed to load.
			r.actions.ClearQuickAction()
			r.actions.ClearRetire()
			r.actions.SetShowItemModal(true)
		}
		r.release(gen)
	})
}

func (r *Reconciler) closeItem() {
	r.actions.CloseItemModal()
	r.actions.ClearQuickAction()
	r.actions.ClearRetire()
}

// spawn runs the suspending tail of pass gen on its own goroutine with a
// context cancelled when the pass is superseded or the reconciler closes.
func (r *Reconciler) spawn(gen uint64, task func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(r.ctx)
	r.cancelPass = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		task(ctx)
	}()
}

// step runs fn on the loop if pass gen is still current. It reports
// whether fn ran.
func (r *Reconciler) step(ctx context.Context, gen uint64, fn func()) bool {
	ran := false
	err := r.loop.Call(ctx, func() {
		if r.closed || gen != r.generation {
			return
		}
		fn()
		ran = true
	})
	if err != nil {
		return false
	}
	if !ran {
		r.logger.Debug("navigation superseded", "generation", gen)
	}
	return ran
}

// release frees the guard on the next tick, after the renders this pass
// scheduled, unless a newer pass took it meanwhile.
func (r *Reconciler) release(gen uint64) {
	r.loop.Post(func() {
		if r.applying != gen {
			return
		}
		r.applying = 0
		if r.amended {
			r.amended = false
			if !r.closed && r.hasLast && r.session.Active() {
				r.setHash(Encode(r.last.Target()))
			}
		}
	})
}

// Sync writes the canonical fragment of state when the state changed since
// the last call and no pass is applying.
//
// The state is recorded even while guarded, so the changes a pass makes
// never reach the fragment after the guard is released.
func (r *Reconciler) Sync(state ViewState) {
	if r.closed {
		return
	}
	changed := !r.hasLast || state != r.last
	r.last = state
	r.hasLast = true

	if !changed || r.applying != 0 || !r.session.Active() {
		return
	}
	r.setHash(Encode(state.Target()))
}

// Amend marks the state last given to Sync as a correction the owner made
// to what the pass in flight applied, such as a page clamped to the list.
// The fragment gets it when the pass releases the guard. Without a pass in
// flight Sync has already written it and Amend does nothing.
func (r *Reconciler) Amend() {
	if r.closed || r.applying == 0 {
		return
	}
	r.amended = true
}

// setHash replaces the fragment when it differs from the current one.
func (r *Reconciler) setHash(fragment string) {
	next := Normalize(fragment)
	if r.loc.Hash() != next {
		r.loc.ReplaceHash(next)
	}
}

// Close cancels any pass in flight. Later Apply and Sync calls are ignored.
func (r *Reconciler) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.applying = 0
	r.amended = false
	r.stop()
}

// Wait blocks until every task goroutine has returned. Call it after Close,
// off the loop.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
