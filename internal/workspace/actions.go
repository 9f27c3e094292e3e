package workspace

import (
	"context"

	"github.com/nerrad567/stockroom-core/internal/inventory"
	"github.com/nerrad567/stockroom-core/internal/navigation"
	"github.com/nerrad567/stockroom-core/internal/users"
)

var _ navigation.Actions = (*App)(nil)

// SetSearch implements navigation.FilterActions. A change restarts the
// search debounce.
func (a *App) SetSearch(text string) {
	if text == a.stock.search {
		return
	}
	a.stock.search = text
	a.searchTimer.Trigger()
	a.changed()
}

// SetStatusFilter implements navigation.FilterActions.
func (a *App) SetStatusFilter(status string) {
	a.stock.filterStatus = status
	a.changed()
}

// SetCategoryFilter implements navigation.FilterActions.
func (a *App) SetCategoryFilter(category string) {
	a.stock.filterCategory = category
	a.changed()
}

// SetHideRetired implements navigation.FilterActions.
func (a *App) SetHideRetired(hide bool) {
	a.stock.hideRetired = hide
	a.changed()
}

// SetSortField implements navigation.FilterActions.
func (a *App) SetSortField(field string) {
	a.stock.sortField = field
	a.changed()
}

// SetSortDirection implements navigation.FilterActions.
func (a *App) SetSortDirection(direction string) {
	a.stock.sortDirection = direction
	a.changed()
}

// SetPageSize implements navigation.FilterActions.
func (a *App) SetPageSize(size int) {
	a.stock.pageSize = size
	a.changed()
}

// SetPage implements navigation.FilterActions.
func (a *App) SetPage(page int) {
	a.stock.page = page
	a.changed()
}

// SetSelectedID implements navigation.ItemActions.
func (a *App) SetSelectedID(id int64) {
	a.stock.selectedID = id
	a.changed()
}

// FetchItemDetail implements navigation.ItemActions. It loads the item and
// its history, fills the edit form and reports failures on the error banner.
func (a *App) FetchItemDetail(ctx context.Context, id int64) *inventory.Item {
	detail, err := a.stockAPI.Get(ctx, a.tracker.Token(), id)
	if err != nil {
		if ctx.Err() == nil {
			a.commit(ctx, func() { a.setError(errorMessage(err, "Failed to load item")) })
		}
		return nil
	}

	item := detail.Item
	ok := a.commit(ctx, func() {
		a.setError("")
		s := &a.stock
		s.selectedItem = cloneItem(&item)
		s.history = detail.History
		s.editForm = inventory.EditFormFor(item)
		s.editUnlocked = false
		if s.retireItem != nil && s.retireItem.ID == item.ID {
			s.retireItem = cloneItem(&item)
		}
		a.changed()
	})
	if !ok {
		return nil
	}
	return &item
}

// SetShowItemModal implements navigation.ItemActions.
func (a *App) SetShowItemModal(show bool) {
	a.stock.showItem = show
	a.changed()
}

// CloseItemModal implements navigation.ItemActions. It also forgets the
// selection and any retire in progress.
func (a *App) CloseItemModal() {
	s := &a.stock
	s.showItem = false
	s.selectedID = 0
	s.selectedItem = nil
	s.history = nil
	s.editUnlocked = false
	s.retireItem = nil
	s.retireForm = inventory.NewRetireForm()
	a.changed()
}

// SetShowAddModal implements navigation.ItemActions.
func (a *App) SetShowAddModal(show bool) {
	a.stock.showAdd = show
	a.changed()
}

// OpenQuickAction implements navigation.ItemActions.
func (a *App) OpenQuickAction(item *inventory.Item, form inventory.QuickActionForm) {
	a.stock.quickItem = cloneItem(item)
	a.stock.quickForm = form
	a.changed()
}

// ClearQuickAction implements navigation.ItemActions.
func (a *App) ClearQuickAction() {
	a.stock.quickItem = nil
	a.changed()
}

// OpenRetire implements navigation.ItemActions.
func (a *App) OpenRetire(item *inventory.Item, form inventory.RetireForm) {
	a.stock.retireItem = cloneItem(item)
	a.stock.retireForm = form
	a.changed()
}

// ClearRetire implements navigation.ItemActions.
func (a *App) ClearRetire() {
	a.stock.retireItem = nil
	a.changed()
}

// OpenUserPanel implements navigation.UserActions. It shows the panel on its
// list view, then loads the accounts.
func (a *App) OpenUserPanel(ctx context.Context) {
	opened := a.commit(ctx, func() {
		a.users.show = true
		a.users.view = users.DefaultView
		a.changed()
	})
	if !opened {
		return
	}
	a.loadUsers(ctx, a.tracker.Token())
}

// CloseUserPanel implements navigation.UserActions. Forms are reset; the
// loaded accounts and logs are kept.
func (a *App) CloseUserPanel() {
	u := &a.users
	u.show = false
	u.view = users.DefaultView
	u.createForm = users.NewCreateForm()
	u.resetForm = users.ResetPasswordForm{}
	u.roleEdit = users.NewRoleEdit()
	a.changed()
}

// SetUserView implements navigation.UserActions.
func (a *App) SetUserView(view string) {
	a.users.view = view
	a.changed()
}

// LoadAuditLogs implements navigation.UserActions.
func (a *App) LoadAuditLogs(ctx context.Context) {
	logs, err := a.userAPI.AuditLogs(ctx, a.tracker.Token())
	a.commit(ctx, func() {
		if err != nil {
			a.setError(errorMessage(err, "Failed to load audit logs"))
			return
		}
		a.setError("")
		a.users.auditLogs = logs
		a.changed()
	})
}

func (a *App) loadUsers(ctx context.Context, token string) {
	list, err := a.userAPI.List(ctx, token)
	a.commit(ctx, func() {
		if err != nil {
			a.setError(errorMessage(err, "Failed to load users"))
			return
		}
		a.setError("")
		a.users.list = list
		a.changed()
	})
}
