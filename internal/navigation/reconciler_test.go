package navigation

import (
	"context"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/nerrad567/stockroom-core/internal/eventloop"
	"github.com/nerrad567/stockroom-core/internal/infrastructure/logging"
	"github.com/nerrad567/stockroom-core/internal/inventory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeApp implements Actions over a bare ViewState, rendering (and so
// calling Sync) once per tick after any mutation.
type fakeApp struct {
	t    *testing.T
	loop *eventloop.Loop
	rec  *Reconciler
	loc  *MemoryLocation

	// Loop-owned.
	state         ViewState
	renderPending bool
	active        bool

	// Set before use; read off the loop.
	items map[int64]*inventory.Item
	gates map[int64]chan struct{}

	mu         sync.Mutex
	fetched    []int64
	cancelled  []int64
	userLoads  int
	auditLoads int
}

func newFakeApp(t *testing.T, hash string) *fakeApp {
	t.Helper()

	loop := eventloop.New(0)
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		loop.Run(ctx)
	}()

	app := &fakeApp{
		t:      t,
		loop:   loop,
		loc:    NewMemoryLocation(hash),
		state:  DefaultViewState(),
		active: true,
		items:  map[int64]*inventory.Item{},
		gates:  map[int64]chan struct{}{},
	}
	rec, err := New(Deps{Loop: loop, Location: app.loc, Actions: app, Session: app, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	app.rec = rec

	t.Cleanup(func() {
		_ = loop.Call(context.Background(), rec.Close)
		rec.Wait()
		cancel()
		wg.Wait()
	})
	return app
}

// on runs fn on the loop and waits.
func (a *fakeApp) on(fn func()) {
	a.t.Helper()
	if err := a.loop.Call(context.Background(), fn); err != nil {
		a.t.Fatalf("loop.Call() error = %v", err)
	}
}

// settle waits for every pass to finish and the loop to drain its
// follow-up ticks (renders, guard release).
func (a *fakeApp) settle() {
	a.t.Helper()
	a.on(func() {})
	a.rec.Wait()
	for range 3 {
		a.on(func() {})
	}
}

// navigate delivers a hashchange for fragment.
func (a *fakeApp) navigate(fragment string) {
	a.loc.Navigate(fragment)
	a.loop.Post(func() { a.rec.Apply(fragment) })
}

func (a *fakeApp) snapshot() ViewState {
	var s ViewState
	a.on(func() { s = a.state })
	return s
}

func (a *fakeApp) mutate(fn func(*ViewState)) {
	fn(&a.state)
	if !a.renderPending {
		a.renderPending = true
		a.loop.Post(func() {
			a.renderPending = false
			a.rec.Sync(a.state)
		})
	}
}

func (a *fakeApp) Active() bool { return a.active }

func (a *fakeApp) SetSearch(v string) { a.mutate(func(s *ViewState) { s.Filters.Search = v }) }
func (a *fakeApp) SetStatusFilter(v string) { a.mutate(func(s *ViewState) { s.Filters.Status = v }) }
func (a *fakeApp) SetCategoryFilter(v string) { a.mutate(func(s *ViewState) { s.Filters.Category = v }) }
func (a *fakeApp) SetHideRetired(v bool) { a.mutate(func(s *ViewState) { s.Filters.HideRetired = v }) }
func (a *fakeApp) SetSortField(v string) { a.mutate(func(s *ViewState) { s.Sort.Field = v }) }
func (a *fakeApp) SetSortDirection(v string) { a.mutate(func(s *ViewState) { s.Sort.Direction = v }) }
func (a *fakeApp) SetPageSize(v int) { a.mutate(func(s *ViewState) { s.Paging.PageSize = v }) }
func (a *fakeApp) SetPage(v int) { a.mutate(func(s *ViewState) { s.Paging.Page = v }) }
func (a *fakeApp) SetSelectedID(id int64) { a.mutate(func(s *ViewState) { s.SelectedID = id }) }
func (a *fakeApp) SetShowItemModal(v bool) { a.mutate(func(s *ViewState) { s.ItemOpen = v }) }
func (a *fakeApp) SetShowAddModal(v bool) { a.mutate(func(s *ViewState) { s.AddOpen = v }) }
func (a *fakeApp) ClearQuickAction() { a.mutate(func(s *ViewState) { s.QuickItemID = 0 }) }
func (a *fakeApp) ClearRetire() { a.mutate(func(s *ViewState) { s.RetireItemID = 0 }) }
func (a *fakeApp) SetUserView(v string) { a.mutate(func(s *ViewState) { s.UserView = v }) }

func (a *fakeApp) CloseItemModal() {
	a.mutate(func(s *ViewState) {
		s.ItemOpen = false
		s.SelectedID = 0
		s.RetireItemID = 0
	})
}

func (a *fakeApp) OpenQuickAction(item *inventory.Item, _ inventory.QuickActionForm) {
	a.mutate(func(s *ViewState) { s.QuickItemID = item.ID })
}

func (a *fakeApp) OpenRetire(item *inventory.Item, form inventory.RetireForm) {
	if form != inventory.NewRetireForm() {
		a.t.Errorf("retire form = %+v, want fresh form", form)
	}
	a.mutate(func(s *ViewState) { s.RetireItemID = item.ID })
}

func (a *fakeApp) CloseUserPanel() {
	a.mutate(func(s *ViewState) {
		s.UsersOpen = false
		s.UserView = "view"
	})
}

func (a *fakeApp) FetchItemDetail(ctx context.Context, id int64) *inventory.Item {
	a.mu.Lock()
	a.fetched = append(a.fetched, id)
	gate := a.gates[id]
	a.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			a.mu.Lock()
			a.cancelled = append(a.cancelled, id)
			a.mu.Unlock()
			return nil
		}
	}
	return a.items[id]
}

func (a *fakeApp) OpenUserPanel(ctx context.Context) {
	_ = a.loop.Call(ctx, func() {
		if ctx.Err() != nil {
			return
		}
		a.mutate(func(s *ViewState) {
			s.UsersOpen = true
			s.UserView = "view"
		})
	})
	a.mu.Lock()
	a.userLoads++
	a.mu.Unlock()
}

func (a *fakeApp) LoadAuditLogs(context.Context) {
	a.mu.Lock()
	a.auditLoads++
	a.mu.Unlock()
}

func (a *fakeApp) fetches() []int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]int64(nil), a.fetched...)
}

func TestApply_ItemWithPaging(t *testing.T) {
	app := newFakeApp(t, "#/inventory/item/42?pageSize=50&page=3")
	app.items[42] = &inventory.Item{ID: 42, Category: "Laptop"}

	app.on(func() { app.rec.Apply(app.loc.Hash()) })
	app.settle()

	want := DefaultViewState()
	want.Paging = Paging{PageSize: 50, Page: 3}
	want.SelectedID = 42
	want.ItemOpen = true
	if diff := cmp.Diff(want, app.snapshot()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{42}, app.fetches()); diff != "" {
		t.Errorf("fetches mismatch (-want +got):\n%s", diff)
	}
	if got := app.loc.Replacements(); len(got) != 0 {
		t.Errorf("applied fragment was rewritten: %v", got)
	}
}

func TestApply_EmptyHash(t *testing.T) {
	app := newFakeApp(t, "")
	app.on(func() {
		app.state.AddOpen = true
		app.rec.Apply("")
	})
	app.settle()

	if diff := cmp.Diff(DefaultViewState(), app.snapshot()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
	if got := app.loc.Replacements(); len(got) != 0 {
		t.Errorf("replacements = %v, want none", got)
	}
}

func TestApply_OutsideInventory(t *testing.T) {
	app := newFakeApp(t, "#/login")
	app.on(func() { app.rec.Apply("#/login?page=4") })
	app.settle()

	if diff := cmp.Diff([]string{Root}, app.loc.Replacements()); diff != "" {
		t.Errorf("replacements mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(DefaultViewState(), app.snapshot()); diff != "" {
		t.Errorf("state changed for foreign fragment (-want +got):\n%s", diff)
	}
}

func TestApply_SegmentsBeatParams(t *testing.T) {
	app := newFakeApp(t, "")
	app.items[7] = &inventory.Item{ID: 7, Category: "Monitor"}

	app.navigate("#/inventory/item/7/retire?view=create")
	app.settle()

	got := app.snapshot()
	if got.RetireItemID != 7 || !got.ItemOpen || got.UsersOpen {
		t.Errorf("state = %+v, want retire on 7 without users panel", got)
	}
	if got.UserView != "view" {
		t.Errorf("UserView = %q, want untouched %q", got.UserView, "view")
	}
	if got.Primary() != ViewItem {
		t.Errorf("Primary() = %v, want item", got.Primary())
	}
}

func TestApply_QuickAction(t *testing.T) {
	tests := []struct {
		name      string
		item      *inventory.Item
		wantQuick int64
		wantOpen  bool
	}{
		{"regular item", &inventory.Item{ID: 3, Category: "Laptop"}, 3, false},
		{"cable", &inventory.Item{ID: 3, Category: "  CABLE "}, 0, true},
		{"failed load", nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newFakeApp(t, "")
			if tt.item != nil {
				app.items[3] = tt.item
			}
			app.navigate("#/inventory/item/3/quick")
			app.settle()

			got := app.snapshot()
			if got.QuickItemID != tt.wantQuick || got.ItemOpen != tt.wantOpen || got.RetireItemID != 0 {
				t.Errorf("state = %+v, want quick=%d itemOpen=%v", got, tt.wantQuick, tt.wantOpen)
			}
			if got.SelectedID != 3 {
				t.Errorf("SelectedID = %d, want 3", got.SelectedID)
			}
		})
	}
}

func TestApply_InvalidItemID(t *testing.T) {
	app := newFakeApp(t, "")
	app.on(func() {
		app.state.ItemOpen = true
		app.state.SelectedID = 5
		app.state.RetireItemID = 5
	})

	app.navigate("#/inventory/item/abc/retire")
	app.settle()

	got := app.snapshot()
	if got.ItemOpen || got.SelectedID != 0 || got.RetireItemID != 0 || got.QuickItemID != 0 {
		t.Errorf("item state not cleared: %+v", got)
	}
	if len(app.fetches()) != 0 {
		t.Errorf("fetched %v for invalid id", app.fetches())
	}
}

func TestApply_Users(t *testing.T) {
	tests := []struct {
		fragment   string
		wantView   string
		wantAudits int
	}{
		{"#/inventory/users", "view", 0},
		{"#/inventory/users?view=logs", "logs", 1},
		{"#/inventory/users?view=reset-password", "reset-password", 0},
		{"#/inventory/users?view=bogus", "view", 0},
	}

	for _, tt := range tests {
		t.Run(tt.fragment, func(t *testing.T) {
			app := newFakeApp(t, "")
			app.on(func() {
				app.state.AddOpen = true
				app.state.QuickItemID = 2
			})

			app.navigate(tt.fragment)
			app.settle()

			got := app.snapshot()
			if !got.UsersOpen || got.UserView != tt.wantView || got.AddOpen || got.QuickItemID != 0 {
				t.Errorf("state = %+v, want users panel on %q", got, tt.wantView)
			}
			app.mu.Lock()
			defer app.mu.Unlock()
			if app.userLoads != 1 || app.auditLoads != tt.wantAudits {
				t.Errorf("userLoads=%d auditLoads=%d, want 1 and %d", app.userLoads, app.auditLoads, tt.wantAudits)
			}
		})
	}
}

func TestApply_AddClosesOthers(t *testing.T) {
	app := newFakeApp(t, "")
	app.on(func() {
		app.state.UsersOpen = true
		app.state.ItemOpen = true
		app.state.SelectedID = 4
	})

	app.navigate("#/inventory/add?status=retired&hideRetired=true")
	app.settle()

	got := app.snapshot()
	if !got.AddOpen || got.UsersOpen || got.ItemOpen || got.SelectedID != 0 {
		t.Errorf("state = %+v, want only add panel", got)
	}
	if got.Filters.Status != "retired" || !got.Filters.HideRetired {
		t.Errorf("filters = %+v", got.Filters)
	}
}

func TestApply_ParamsPassThroughAndValidation(t *testing.T) {
	app := newFakeApp(t, "")
	app.navigate("#/inventory?status=lost&sort=name&dir=&pageSize=25&page=-1&category=&q=")
	app.settle()

	got := app.snapshot()
	want := DefaultViewState()
	want.Filters.Status = "lost"
	want.Sort.Field = "name"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_LastNavigationWins(t *testing.T) {
	app := newFakeApp(t, "")
	app.items[1] = &inventory.Item{ID: 1, Category: "Laptop"}
	app.items[2] = &inventory.Item{ID: 2, Category: "Dock"}
	app.gates[1] = make(chan struct{}) // never opens; only cancellation ends the fetch

	app.navigate("#/inventory/item/1/quick")
	app.on(func() {}) // first pass is now suspended in its fetch
	app.navigate("#/inventory/item/2")
	app.settle()

	got := app.snapshot()
	if got.SelectedID != 2 || !got.ItemOpen || got.QuickItemID != 0 {
		t.Errorf("state = %+v, want plain detail of item 2", got)
	}

	app.mu.Lock()
	defer app.mu.Unlock()
	if diff := cmp.Diff([]int64{1}, app.cancelled); diff != "" {
		t.Errorf("cancelled fetches mismatch (-want +got):\n%s", diff)
	}
}

func TestSync_GuardThenUserChange(t *testing.T) {
	app := newFakeApp(t, "#/inventory/item/42?pageSize=50&page=3")
	app.items[42] = &inventory.Item{ID: 42}

	app.on(func() { app.rec.Apply(app.loc.Hash()) })
	app.settle()
	if len(app.loc.Replacements()) != 0 {
		t.Fatalf("fragment rewritten during apply: %v", app.loc.Replacements())
	}

	app.on(func() { app.SetPage(2) })
	app.settle()

	want := []string{"#/inventory/item/42?pageSize=50&page=2"}
	if diff := cmp.Diff(want, app.loc.Replacements()); diff != "" {
		t.Errorf("replacements mismatch (-want +got):\n%s", diff)
	}
	if app.loc.Hash() != want[0] {
		t.Errorf("Hash() = %q", app.loc.Hash())
	}
}

func TestSync_SkippedWhileApplying(t *testing.T) {
	app := newFakeApp(t, "")
	app.items[8] = &inventory.Item{ID: 8}
	gate := make(chan struct{})
	app.gates[8] = gate

	app.navigate("#/inventory/item/8/retire")
	app.on(func() {})

	var applying bool
	app.on(func() {
		applying = app.rec.Applying()
		app.SetSearch("typed while loading")
	})
	app.on(func() {})
	if !applying {
		t.Error("Applying() = false while a fetch is pending")
	}
	if len(app.loc.Replacements()) != 0 {
		t.Errorf("fragment written while applying: %v", app.loc.Replacements())
	}

	close(gate)
	app.settle()
	app.on(func() { applying = app.rec.Applying() })
	if applying {
		t.Error("guard not released after pass")
	}
}

func TestAmend_WrittenOnRelease(t *testing.T) {
	app := newFakeApp(t, "")
	app.items[2] = &inventory.Item{ID: 2}
	gate := make(chan struct{})
	app.gates[2] = gate

	app.navigate("#/inventory/item/2?page=5")
	app.on(func() {})

	// The owner clamps the page while the item is still loading.
	app.on(func() {
		app.state.Paging.Page = 1
		app.rec.Sync(app.state)
		app.rec.Amend()
	})
	app.on(func() {})
	if len(app.loc.Replacements()) != 0 {
		t.Fatalf("fragment written while applying: %v", app.loc.Replacements())
	}

	close(gate)
	app.settle()
	if diff := cmp.Diff([]string{"#/inventory/item/2"}, app.loc.Replacements()); diff != "" {
		t.Errorf("replacements mismatch (-want +got):\n%s", diff)
	}
}

func TestAmend_IgnoredWithoutPass(t *testing.T) {
	app := newFakeApp(t, "#/inventory?q=dock")
	app.on(app.rec.Amend)
	app.navigate("#/inventory?q=dock")
	app.settle()
	if got := app.loc.Replacements(); len(got) != 0 {
		t.Errorf("fragment rewritten: %v", got)
	}
}

func TestSync_InactiveSessionAndEquality(t *testing.T) {
	app := newFakeApp(t, "#/inventory?q=dock")

	app.on(func() {
		app.active = false
		app.SetSearch("cable")
	})
	app.settle()
	if len(app.loc.Replacements()) != 0 {
		t.Errorf("fragment written without a session: %v", app.loc.Replacements())
	}

	app.on(func() {
		app.active = true
		app.SetSearch("dock")
	})
	app.settle()
	if len(app.loc.Replacements()) != 0 {
		t.Errorf("identical fragment rewritten: %v", app.loc.Replacements())
	}

	app.on(func() { app.SetSortDirection("asc") })
	app.settle()
	if diff := cmp.Diff([]string{"#/inventory?q=dock&dir=asc"}, app.loc.Replacements()); diff != "" {
		t.Errorf("replacements mismatch (-want +got):\n%s", diff)
	}
}

func TestClose_CancelsAndIgnores(t *testing.T) {
	app := newFakeApp(t, "")
	gate := make(chan struct{})
	app.gates[6] = gate

	app.navigate("#/inventory/item/6")
	app.on(func() {})
	app.on(app.rec.Close)
	app.rec.Wait()

	app.navigate("#/inventory/add")
	app.settle()

	if app.snapshot().AddOpen {
		t.Error("Apply ran after Close")
	}
	app.mu.Lock()
	defer app.mu.Unlock()
	if diff := cmp.Diff([]int64{6}, app.cancelled); diff != "" {
		t.Errorf("cancelled mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip(t *testing.T) {
	states := []ViewState{
		DefaultViewState(),
		StateOf(Target{View: ViewItem, ItemID: 9, Action: ActionRetire, FilterStatus: "all", FilterCategory: "all", SortField: "created", SortDirection: "desc", PageSize: 20, Page: 1, UserView: "view"}),
		StateOf(Target{View: ViewItem, ItemID: 4, Action: ActionQuick, Search: "dell latitude", FilterStatus: "deployed", FilterCategory: "Laptop", SortField: "updated", SortDirection: "asc", PageSize: 0, Page: 1, UserView: "view"}),
		StateOf(Target{View: ViewItem, ItemID: 12, HideRetired: true, FilterStatus: "all", FilterCategory: "all", SortField: "created", SortDirection: "desc", PageSize: 100, Page: 3, UserView: "view"}),
		StateOf(Target{View: ViewUsers, FilterStatus: "all", FilterCategory: "Cable", SortField: "created", SortDirection: "desc", PageSize: 10, Page: 2, UserView: "logs"}),
		StateOf(Target{View: ViewAdd, Search: "a&b=c", FilterStatus: "retired", FilterCategory: "all", SortField: "created", SortDirection: "desc", PageSize: 20, Page: 1, UserView: "view"}),
	}

	for _, want := range states {
		fragment := Encode(want.Target())
		t.Run(fragment, func(t *testing.T) {
			app := newFakeApp(t, "")
			for _, id := range []int64{4, 9, 12} {
				app.items[id] = &inventory.Item{ID: id, Category: "Laptop"}
			}

			app.navigate(fragment)
			app.settle()

			got := app.snapshot()
			if diff := cmp.Diff(want.Target(), got.Target()); diff != "" {
				t.Errorf("round trip of %q mismatch (-want +got):\n%s", fragment, diff)
			}
			if again := Encode(got.Target()); again != fragment {
				t.Errorf("re-encoded %q, want %q", again, fragment)
			}
		})
	}
}

func TestTargetPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		state      ViewState
		wantView   View
		wantID     int64
		wantAction ItemAction
	}{
		{"users beats everything", ViewState{UsersOpen: true, AddOpen: true, RetireItemID: 3}, ViewUsers, 3, ActionNone},
		{"add beats item", ViewState{AddOpen: true, ItemOpen: true, SelectedID: 2}, ViewAdd, 2, ActionNone},
		{"retire beats quick", ViewState{RetireItemID: 5, QuickItemID: 6}, ViewItem, 5, ActionRetire},
		{"quick without modal", ViewState{QuickItemID: 6, SelectedID: 6}, ViewItem, 6, ActionQuick},
		{"item needs selection", ViewState{ItemOpen: true}, ViewNone, 0, ActionNone},
		{"selection without modal", ViewState{SelectedID: 8}, ViewNone, 0, ActionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.state.Target()
			if got.View != tt.wantView || got.ItemID != tt.wantID || got.Action != tt.wantAction {
				t.Errorf("Target() = {%v %d %v}, want {%v %d %v}",
					got.View, got.ItemID, got.Action, tt.wantView, tt.wantID, tt.wantAction)
			}
		})
	}
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New(Deps{}) expected error")
	}
}
