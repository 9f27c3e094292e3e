package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nerrad567/stockroom-core/internal/inventory"
	"github.com/nerrad567/stockroom-core/internal/session"
	"github.com/nerrad567/stockroom-core/internal/users"
)

// ErrUnknownIntent is returned for an intent name the App does not handle.
var ErrUnknownIntent = errors.New("unknown intent")

// Intent names sent by the shell.
const (
	IntentSearch           = "search"
	IntentSearchSubmit     = "search.submit"
	IntentFilterStatus     = "filter.status"
	IntentFilterCategory   = "filter.category"
	IntentHideRetired      = "filter.hideRetired"
	IntentSortField        = "sort.field"
	IntentSortDirection    = "sort.direction"
	IntentPageSize         = "page.size"
	IntentPage             = "page"
	IntentHistoryDirection = "history.direction"

	IntentAddOpen   = "add.open"
	IntentAddClose  = "add.close"
	IntentAddForm   = "add.form"
	IntentAddSubmit = "add.submit"

	IntentItemOpen   = "item.open"
	IntentItemClose  = "item.close"
	IntentEditUnlock = "edit.unlock"
	IntentEditForm   = "edit.form"
	IntentEditSubmit = "edit.submit"

	IntentQuickOpen   = "quick.open"
	IntentQuickClose  = "quick.close"
	IntentQuickForm   = "quick.form"
	IntentQuickSubmit = "quick.submit"

	IntentRetireOpen   = "retire.open"
	IntentRetireClose  = "retire.close"
	IntentRetireForm   = "retire.form"
	IntentRetireSubmit = "retire.submit"

	IntentCableOpen     = "cable.open"
	IntentCableClose    = "cable.close"
	IntentCableQuantity = "cable.quantity"
	IntentCableRestore  = "cable.restore"

	IntentUsersOpen          = "users.open"
	IntentUsersClose         = "users.close"
	IntentUsersView          = "users.view"
	IntentUsersLoadLogs      = "users.loadLogs"
	IntentUsersCreateForm    = "users.createForm"
	IntentUsersCreate        = "users.create"
	IntentUsersRoleEdit      = "users.roleEdit"
	IntentUsersUpdateRole    = "users.updateRole"
	IntentUsersResetForm     = "users.resetForm"
	IntentUsersResetPassword = "users.resetPassword"

	IntentDismissBanners = "banner.dismiss"
)

// Intent is one user action forwarded by the shell.
type Intent struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value,omitempty"`
}

type idValue struct {
	ID int64 `json:"id"`
}

// CableQuantity is the value of a cable.quantity intent. Amount and Current
// are whatever the user typed.
type CableQuantity struct {
	ID        int64  `json:"id"`
	Operation string `json:"operation"`
	Amount    string `json:"amount"`
	Current   string `json:"current"`
	Note      string `json:"note"`
}

type createUserValue struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type resetPasswordValue struct {
	Username    string `json:"username"`
	NewPassword string `json:"newPassword"`
}

type updateRoleValue struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
}

// Dispatch handles intent on the loop and waits for it to be accepted.
// Work the intent starts (submissions, loads) continues in the background
// and reports through the banners. Thread-safe; must not be called on the
// loop.
//
// Returns:
//   - error: ErrUnknownIntent, session.ErrNoSession, a decode error, or ctx.Err()
func (a *App) Dispatch(ctx context.Context, intent Intent) error {
	var err error
	if callErr := a.loop.Call(ctx, func() { err = a.handleIntent(intent) }); callErr != nil {
		return callErr
	}
	return err
}

func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, fmt.Errorf("missing value")
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decoding value: %w", err)
	}
	return v, nil
}

// set decodes raw and passes it to fn.
func set[T any](raw json.RawMessage, fn func(T)) error {
	v, err := decode[T](raw)
	if err != nil {
		return err
	}
	fn(v)
	return nil
}

func (a *App) handleIntent(in Intent) error {
	if a.closed || !a.tracker.Active() || a.sessCtx == nil {
		return session.ErrNoSession
	}
	s := &a.stock

	switch in.Name {
	case IntentSearch:
		return set(in.Value, func(v string) {
			a.SetSearch(v)
			a.SetPage(1)
		})
	case IntentSearchSubmit:
		a.searchTimer.Cancel()
		a.reloadItems()
	case IntentFilterStatus:
		return set(in.Value, func(v string) {
			a.SetStatusFilter(v)
			a.SetPage(1)
		})
	case IntentFilterCategory:
		return set(in.Value, func(v string) {
			a.SetCategoryFilter(v)
			a.SetPage(1)
		})
	case IntentHideRetired:
		return set(in.Value, a.SetHideRetired)
	case IntentSortField:
		return set(in.Value, func(v string) {
			a.SetSortField(v)
			a.SetPage(1)
		})
	case IntentSortDirection:
		return set(in.Value, func(v string) {
			a.SetSortDirection(v)
			a.SetPage(1)
		})
	case IntentPageSize:
		size, err := decode[int](in.Value)
		if err != nil {
			return err
		}
		if !inventory.ValidPageSize(size) {
			return fmt.Errorf("page size %d not offered", size)
		}
		a.SetPageSize(size)
		if size == inventory.PageSizeAll {
			a.SetPage(1)
		}
	case IntentPage:
		page, err := decode[int](in.Value)
		if err != nil {
			return err
		}
		if page < 1 {
			return fmt.Errorf("page %d out of range", page)
		}
		a.SetPage(page)
	case IntentHistoryDirection:
		return set(in.Value, func(v string) {
			s.historyDirection = v
			a.changed()
		})

	case IntentAddOpen:
		a.SetShowAddModal(true)
	case IntentAddClose:
		s.showAdd = false
		s.addForm = inventory.ItemForm{}
		a.changed()
	case IntentAddForm:
		return set(in.Value, func(v inventory.ItemForm) {
			s.addForm = v
			a.changed()
		})
	case IntentAddSubmit:
		a.submitAdd()

	case IntentItemOpen:
		v, err := decode[idValue](in.Value)
		if err != nil {
			return err
		}
		a.openItem(v.ID)
	case IntentItemClose:
		a.CloseItemModal()
	case IntentEditUnlock:
		s.editUnlocked = true
		a.changed()
	case IntentEditForm:
		return set(in.Value, func(v inventory.ItemForm) {
			s.editForm = v
			a.changed()
		})
	case IntentEditSubmit:
		a.submitEdit()

	case IntentQuickOpen:
		v, err := decode[idValue](in.Value)
		if err != nil {
			return err
		}
		a.openQuick(v.ID)
	case IntentQuickClose:
		a.ClearQuickAction()
		s.quickForm = inventory.NewQuickActionForm()
	case IntentQuickForm:
		return set(in.Value, func(v inventory.QuickActionForm) {
			s.quickForm = v
			a.changed()
		})
	case IntentQuickSubmit:
		a.submitQuick()

	case IntentRetireOpen:
		v, err := decode[idValue](in.Value)
		if err != nil {
			return err
		}
		item := s.findItem(v.ID)
		if item == nil {
			return fmt.Errorf("item %d not loaded", v.ID)
		}
		a.OpenRetire(item, inventory.NewRetireForm())
	case IntentRetireClose:
		a.ClearRetire()
		s.retireForm = inventory.NewRetireForm()
	case IntentRetireForm:
		return set(in.Value, func(v inventory.RetireForm) {
			s.retireForm = v
			a.changed()
		})
	case IntentRetireSubmit:
		a.submitRetire()

	case IntentCableOpen:
		category := inventory.CableCategory
		if len(in.Value) > 0 {
			v, err := decode[string](in.Value)
			if err != nil {
				return err
			}
			category = v
		}
		a.openCable(category)
	case IntentCableClose:
		s.showCable = false
		s.cableItems = nil
		s.cableHistory = nil
		a.changed()
	case IntentCableQuantity:
		return set(in.Value, a.applyCableQuantity)
	case IntentCableRestore:
		v, err := decode[idValue](in.Value)
		if err != nil {
			return err
		}
		a.restoreCable(v.ID)

	case IntentUsersOpen:
		a.spawn(a.sessCtx, a.OpenUserPanel)
	case IntentUsersClose:
		a.CloseUserPanel()
	case IntentUsersView:
		v, err := decode[string](in.Value)
		if err != nil {
			return err
		}
		if !users.ValidView(v) {
			return fmt.Errorf("unknown user view %q", v)
		}
		a.SetUserView(v)
	case IntentUsersLoadLogs:
		a.spawn(a.sessCtx, a.LoadAuditLogs)
	case IntentUsersCreateForm:
		return set(in.Value, func(v createUserValue) {
			a.users.createForm = users.CreateForm(v)
			a.changed()
		})
	case IntentUsersCreate:
		a.submitCreateUser()
	case IntentUsersRoleEdit:
		return set(in.Value, func(v users.RoleEdit) {
			a.users.roleEdit = v
			a.changed()
		})
	case IntentUsersUpdateRole:
		v, err := decode[updateRoleValue](in.Value)
		if err != nil {
			return err
		}
		a.submitUpdateRole(v.UserID, v.Role)
	case IntentUsersResetForm:
		return set(in.Value, func(v resetPasswordValue) {
			a.users.resetForm = users.ResetPasswordForm(v)
			a.changed()
		})
	case IntentUsersResetPassword:
		a.submitResetPassword()

	case IntentDismissBanners:
		a.setNotice("")
		a.setError("")

	default:
		return fmt.Errorf("%w: %q", ErrUnknownIntent, in.Name)
	}
	return nil
}

// openItem shows the detail panel of id and loads it.
func (a *App) openItem(id int64) {
	a.SetSelectedID(id)
	a.SetShowItemModal(true)
	a.spawn(a.sessCtx, func(ctx context.Context) { a.FetchItemDetail(ctx, id) })
}

// openQuick starts a deploy/return on id. Cables are adjusted by quantity
// instead and are refused.
func (a *App) openQuick(id int64) {
	item := a.stock.findItem(id)
	if item == nil {
		a.setError("Failed to load item")
		return
	}
	if item.IsCable() {
		a.setError(cableQuickActionRefusal)
		return
	}
	a.OpenQuickAction(item, inventory.NewQuickActionForm())
}
