package workspace

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/stockroom-core/internal/apiclient"
	"github.com/nerrad567/stockroom-core/internal/eventloop"
	"github.com/nerrad567/stockroom-core/internal/infrastructure/logging"
	"github.com/nerrad567/stockroom-core/internal/inventory"
	"github.com/nerrad567/stockroom-core/internal/navigation"
	"github.com/nerrad567/stockroom-core/internal/prefs"
	"github.com/nerrad567/stockroom-core/internal/session"
	"github.com/nerrad567/stockroom-core/internal/users"
)

// Default timings.
const (
	DefaultSearchDebounce = 300 * time.Millisecond
	DefaultBannerTimeout  = 5 * time.Second
)

// Config holds the view timings.
type Config struct {
	// SearchDebounce is the quiet period before a search reloads the list.
	SearchDebounce time.Duration

	// BannerTimeout is how long a notice or error stays visible.
	BannerTimeout time.Duration
}

// Deps holds the dependencies of an App.
type Deps struct {
	// Loop is the event loop the App lives on. The caller runs it.
	Loop *eventloop.Loop

	// Location is the shell's address.
	Location navigation.Location

	// API is the backend transport. The App derives its own copy so 401s
	// expire this App's session only.
	API *apiclient.Client

	// Prefs stores per-user preferences.
	Prefs prefs.Repository

	// OnRender receives a snapshot after every render, on the loop.
	// It must not block.
	OnRender func(Snapshot)

	Config Config
	Logger *logging.Logger
}

// App is the state owner of one view session.
//
// Methods documented as thread-safe may be called from any goroutine.
// Everything else, including the navigation.Actions setters, runs on the
// loop.
type App struct {
	loop     *eventloop.Loop
	loc      navigation.Location
	tracker  *session.Tracker
	authAPI  *session.Client
	stockAPI *inventory.Client
	userAPI  *users.Client
	prefs    prefs.Repository
	onRender func(Snapshot)
	cfg      Config
	logger   *logging.Logger

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	unsubscribe func()
	noticeTimer *eventloop.Timer
	errorTimer  *eventloop.Timer
	searchTimer *eventloop.Debouncer

	// Loop-owned.
	stock       stockState
	users       userState
	notice      string
	errMsg      string
	busy        bool
	expired     bool
	reauthError string
	reauthBusy  bool

	rec        *navigation.Reconciler
	sessCtx    context.Context
	sessCancel context.CancelFunc

	renderPending bool
	prefsReady    bool
	savedPrefs    prefs.Preferences
	listSeq       uint64
	closed        bool
}

// New creates an App with nobody signed in.
//
// Returns:
//   - *App: App ready for Login or Resume
//   - error: If a required dependency is missing
func New(deps Deps) (*App, error) {
	if deps.Loop == nil {
		return nil, fmt.Errorf("event loop is required")
	}
	if deps.Location == nil {
		return nil, fmt.Errorf("location is required")
	}
	if deps.API == nil {
		return nil, fmt.Errorf("api client is required")
	}
	if deps.Prefs == nil {
		return nil, fmt.Errorf("preference repository is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	cfg := deps.Config
	if cfg.SearchDebounce <= 0 {
		cfg.SearchDebounce = DefaultSearchDebounce
	}
	if cfg.BannerTimeout <= 0 {
		cfg.BannerTimeout = DefaultBannerTimeout
	}

	ctx, stop := context.WithCancel(context.Background())
	a := &App{
		loop:     deps.Loop,
		loc:      deps.Location,
		prefs:    deps.Prefs,
		onRender: deps.OnRender,
		cfg:      cfg,
		logger:   logger.With("component", "workspace"),
		ctx:      ctx,
		stop:     stop,
		stock:    newStockState(),
		users:    newUserState(),
	}
	a.tracker = session.NewTracker(logger)

	api := deps.API.WithUnauthorized(a.tracker.Expire)
	a.authAPI = session.NewClient(api)
	a.stockAPI = inventory.NewClient(api)
	a.userAPI = users.NewClient(api)

	a.unsubscribe = a.tracker.Subscribe(func(e session.Event) {
		a.loop.Post(func() { a.onSessionEvent(e) })
	})
	a.noticeTimer = eventloop.NewTimer(a.loop, func() { a.setNotice("") })
	a.errorTimer = eventloop.NewTimer(a.loop, func() { a.setError("") })
	a.searchTimer = eventloop.NewDebouncer(a.loop, cfg.SearchDebounce, a.reloadItems)
	return a, nil
}

// Session returns the session tracker. Thread-safe.
func (a *App) Session() *session.Tracker {
	return a.tracker
}

// HashChanged delivers a hashchange. The Location must already show
// fragment. Thread-safe.
func (a *App) HashChanged(fragment string) {
	a.loop.Post(func() {
		if a.rec != nil {
			a.rec.Apply(fragment)
		}
	})
}

// Render schedules a render, so a newly attached shell receives the current
// snapshot. Thread-safe.
func (a *App) Render() {
	a.loop.Post(a.changed)
}

// Close stops all work. It runs on the loop; call Wait afterwards from
// another goroutine.
func (a *App) Close() {
	if a.closed {
		return
	}
	a.closed = true
	a.closeReconciler()
	if a.sessCancel != nil {
		a.sessCancel()
	}
	a.stop()
	a.noticeTimer.Stop()
	a.errorTimer.Stop()
	a.searchTimer.Cancel()
	a.unsubscribe()
	a.tracker.Close()
}

// Shutdown closes the App through the loop and waits for its tasks.
// Thread-safe; must not be called on the loop.
func (a *App) Shutdown(ctx context.Context) error {
	if err := a.loop.Call(ctx, a.Close); err != nil && !errors.Is(err, eventloop.ErrClosed) {
		return fmt.Errorf("closing workspace: %w", err)
	}
	a.Wait()
	return nil
}

// Wait blocks until every task goroutine has returned.
func (a *App) Wait() {
	a.wg.Wait()
}

// spawn runs task on its own goroutine. Tasks commit through the loop.
func (a *App) spawn(ctx context.Context, task func(ctx context.Context)) {
	if a.closed || ctx == nil {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		task(ctx)
	}()
}

// commit runs fn on the loop unless ctx ended or the App closed first.
// Called from task goroutines.
func (a *App) commit(ctx context.Context, fn func()) bool {
	ran := false
	err := a.loop.Call(ctx, func() {
		if ctx.Err() != nil || a.closed {
			return
		}
		fn()
		ran = true
	})
	return err == nil && ran
}

// changed schedules one render for the next tick.
func (a *App) changed() {
	if a.renderPending || a.closed {
		return
	}
	a.renderPending = true
	a.loop.Post(a.render)
}

func (a *App) render() {
	a.renderPending = false
	if a.closed {
		return
	}
	// Until the stored preferences and the initial fragment are applied the
	// state is not the user's yet and must not reach the fragment.
	if a.prefsReady {
		settled := a.settleFilters()
		if a.rec != nil {
			a.rec.Sync(a.viewState())
			if settled {
				a.rec.Amend()
			}
		}
	}
	a.savePrefs()
	if a.onRender != nil {
		a.onRender(a.snapshot())
	}
}

// settleFilters drops a category the loaded items no longer offer and
// keeps the page within the derived list. It reports whether it changed
// anything.
func (a *App) settleFilters() bool {
	s := &a.stock
	changed := false
	if s.facetsOK && s.filterCategory != inventory.DefaultFilterCategory &&
		!slices.Contains(inventory.UniqueCategories(s.allItems), s.filterCategory) {
		s.filterCategory = inventory.DefaultFilterCategory
		s.page = 1
		changed = true
	}
	if safe := inventory.Paginate(a.derivedItems(), s.pageSize, s.page).SafePage; safe != s.page {
		s.page = safe
		changed = true
	}
	return changed
}

// derivedItems is the list after the client-side filters and sort.
func (a *App) derivedItems() []inventory.Item {
	s := &a.stock
	return inventory.FilterAndSort(s.items,
		inventory.Filter{Status: s.filterStatus, Category: s.filterCategory, HideRetired: s.hideRetired},
		inventory.Order{Field: s.sortField, Direction: s.sortDirection})
}

// setNotice shows msg and restarts its timeout. "" clears it.
func (a *App) setNotice(msg string) {
	if msg == a.notice {
		return
	}
	a.notice = msg
	if msg == "" {
		a.noticeTimer.Stop()
	} else {
		a.noticeTimer.Reset(a.cfg.BannerTimeout)
	}
	a.changed()
}

// setError shows msg and restarts its timeout. "" clears it.
func (a *App) setError(msg string) {
	if msg == a.errMsg {
		return
	}
	a.errMsg = msg
	if msg == "" {
		a.errorTimer.Stop()
	} else {
		a.errorTimer.Reset(a.cfg.BannerTimeout)
	}
	a.changed()
}

// userError is a failure whose text is meant for the banner as is.
type userError string

func (e userError) Error() string { return string(e) }

// errorMessage returns the banner text of err.
func errorMessage(err error, fallback string) string {
	var ue userError
	if errors.As(err, &ue) {
		return string(ue)
	}
	return apiclient.Message(err, fallback)
}

// runGuarded runs a user-initiated task with the busy flag raised, clearing
// the error first and showing the task's failure after.
func (a *App) runGuarded(task func(ctx context.Context, token string) error) {
	if a.sessCtx == nil {
		return
	}
	a.busy = true
	a.setError("")
	a.changed()

	token := a.tracker.Token()
	a.spawn(a.sessCtx, func(ctx context.Context) {
		err := task(ctx, token)
		a.commit(ctx, func() {
			a.busy = false
			if err != nil {
				a.setError(errorMessage(err, "Unexpected error"))
			}
			a.changed()
		})
	})
}

// viewState projects the state the fragment encodes.
func (a *App) viewState() navigation.ViewState {
	s := &a.stock
	return navigation.ViewState{
		UsersOpen:    a.users.show,
		AddOpen:      s.showAdd,
		ItemOpen:     s.showItem,
		SelectedID:   s.selectedID,
		QuickItemID:  itemID(s.quickItem),
		RetireItemID: itemID(s.retireItem),
		Filters: navigation.Filters{
			Search:      s.search,
			Status:      s.filterStatus,
			Category:    s.filterCategory,
			HideRetired: s.hideRetired,
		},
		Sort:     navigation.Sort{Field: s.sortField, Direction: s.sortDirection},
		Paging:   navigation.Paging{PageSize: s.pageSize, Page: s.page},
		UserView: a.users.view,
	}
}

// currentPrefs are the remembered fields of the current state.
func (a *App) currentPrefs() prefs.Preferences {
	s := &a.stock
	return prefs.Preferences{
		Search:         s.search,
		SortField:      s.sortField,
		SortDirection:  s.sortDirection,
		FilterStatus:   s.filterStatus,
		FilterCategory: s.filterCategory,
		PageSize:       s.pageSize,
		HideRetired:    s.hideRetired,
	}
}

// applyPrefs sets the remembered fields without resetting the page.
func (a *App) applyPrefs(p prefs.Preferences) {
	a.SetSearch(p.Search)
	a.SetSortField(p.SortField)
	a.SetSortDirection(p.SortDirection)
	a.SetStatusFilter(p.FilterStatus)
	a.SetCategoryFilter(p.FilterCategory)
	a.SetPageSize(p.PageSize)
	a.SetHideRetired(p.HideRetired)
}

// savePrefs persists the preferences when they changed since last saved.
func (a *App) savePrefs() {
	if !a.prefsReady {
		return
	}
	current, err := a.tracker.Current()
	if err != nil {
		return
	}
	p := a.currentPrefs()
	if p == a.savedPrefs {
		return
	}
	a.savedPrefs = p

	username := current.Username
	a.spawn(a.sessCtx, func(ctx context.Context) {
		if err := a.prefs.Save(ctx, username, p); err != nil && ctx.Err() == nil {
			a.logger.Warn("saving preferences failed", "username", username, "error", err)
		}
	})
}

// reloadItems refreshes the filtered list for the current search. Only the
// most recent reload commits.
func (a *App) reloadItems() {
	if a.sessCtx == nil || !a.tracker.Active() {
		return
	}
	a.listSeq++
	seq := a.listSeq
	term := strings.TrimSpace(a.stock.search)
	token := a.tracker.Token()

	a.spawn(a.sessCtx, func(ctx context.Context) {
		items, err := a.stockAPI.List(ctx, token, term)
		a.commit(ctx, func() {
			if seq != a.listSeq {
				return
			}
			a.commitItems(items, err)
		})
	})
}

func (a *App) commitItems(items []inventory.Item, err error) {
	if err != nil {
		a.setError(errorMessage(err, "Failed to load inventory"))
		return
	}
	a.setError("")
	a.stock.items = items
	a.changed()
}

// commitLists stores the results of a paired list and totals load. The
// list is dropped unless current. The error banner shows the first failure.
func (a *App) commitLists(items, all []inventory.Item, itemsErr, allErr error, current bool) {
	if current && itemsErr == nil {
		a.stock.items = items
	}
	if allErr == nil {
		a.stock.allItems = all
		a.stock.facetsOK = true
	}
	switch {
	case current && itemsErr != nil:
		a.setError(errorMessage(itemsErr, "Failed to load inventory"))
	case allErr != nil:
		a.setError(errorMessage(allErr, "Failed to load inventory totals"))
	default:
		a.setError("")
	}
	a.changed()
}
