package workspace

import (
	"github.com/nerrad567/stockroom-core/internal/inventory"
	"github.com/nerrad567/stockroom-core/internal/navigation"
	"github.com/nerrad567/stockroom-core/internal/users"
)

// Snapshot is everything the shell needs to draw the view. It is a copy
// and safe to hand to another goroutine.
type Snapshot struct {
	Session  SessionSnapshot      `json:"session"`
	Busy     bool                 `json:"busy"`
	Notice   string               `json:"notice,omitempty"`
	Error    string               `json:"error,omitempty"`
	View     navigation.ViewState `json:"view"`
	Fragment string               `json:"fragment"`

	List   inventory.Page  `json:"list"`
	Facets FacetSnapshot   `json:"facets"`
	Add    AddSnapshot     `json:"add"`
	Item   *ItemSnapshot   `json:"item,omitempty"`
	Quick  *QuickSnapshot  `json:"quick,omitempty"`
	Retire *RetireSnapshot `json:"retire,omitempty"`
	Cable  *CableSnapshot  `json:"cable,omitempty"`
	Users  *UsersSnapshot  `json:"users,omitempty"`
}

// SessionSnapshot describes who is signed in.
type SessionSnapshot struct {
	SignedIn    bool   `json:"signedIn"`
	Username    string `json:"username,omitempty"`
	Role        string `json:"role,omitempty"`
	Expired     bool   `json:"expired"`
	ReauthError string `json:"reauthError,omitempty"`
	ReauthBusy  bool   `json:"reauthBusy"`
}

// FacetSnapshot holds the filter choices and totals, derived from every
// item rather than the current search.
type FacetSnapshot struct {
	Categories     []string                  `json:"categories"`
	Statuses       []string                  `json:"statuses"`
	HasRetired     bool                      `json:"hasRetired"`
	CategoryCounts []inventory.CategoryCount `json:"categoryCounts"`
	FormOptions    inventory.FormOptions     `json:"formOptions"`
}

// AddSnapshot is the add-item form.
type AddSnapshot struct {
	Open    bool               `json:"open"`
	Form    inventory.ItemForm `json:"form"`
	IsValid bool               `json:"isValid"`
}

// ItemSnapshot is the detail panel.
type ItemSnapshot struct {
	ID               int64                    `json:"id"`
	Item             *inventory.Item          `json:"item,omitempty"`
	History          []inventory.HistoryEntry `json:"history"`
	HistoryDirection string                   `json:"historyDirection"`
	EditForm         inventory.ItemForm       `json:"editForm"`
	EditUnlocked     bool                     `json:"editUnlocked"`
	EditHasChanges   bool                     `json:"editHasChanges"`
	EditIsValid      bool                     `json:"editIsValid"`
}

// QuickSnapshot is the deploy/return shortcut.
type QuickSnapshot struct {
	Item inventory.Item            `json:"item"`
	Form inventory.QuickActionForm `json:"form"`
}

// RetireSnapshot is the retire/restore prompt.
type RetireSnapshot struct {
	Item      inventory.Item       `json:"item"`
	Form      inventory.RetireForm `json:"form"`
	Restoring bool                 `json:"restoring"`
}

// CableSnapshot is the cable manager.
type CableSnapshot struct {
	Category string                   `json:"category"`
	Items    []inventory.Item         `json:"items"`
	History  []inventory.HistoryEntry `json:"history"`
}

// UsersSnapshot is the user-management panel.
type UsersSnapshot struct {
	View        string                  `json:"view"`
	List        []users.User            `json:"list"`
	CreateForm  users.CreateForm        `json:"createForm"`
	ResetForm   users.ResetPasswordForm `json:"resetForm"`
	RoleEdit    users.RoleEdit          `json:"roleEdit"`
	AuditLogs   []users.AuditLog        `json:"auditLogs"`
	Permissions users.Permissions       `json:"permissions"`
}

// snapshot projects the loop-owned state. Runs on the loop.
func (a *App) snapshot() Snapshot {
	s := &a.stock
	view := a.viewState()

	snap := Snapshot{
		Busy:     a.busy,
		Notice:   a.notice,
		Error:    a.errMsg,
		View:     view,
		Fragment: navigation.Encode(view.Target()),
		Add: AddSnapshot{
			Open:    s.showAdd,
			Form:    s.addForm,
			IsValid: s.addForm.HasRequiredFields(),
		},
	}

	if current, err := a.tracker.Current(); err == nil {
		snap.Session = SessionSnapshot{
			SignedIn:    true,
			Username:    current.Username,
			Role:        current.Role,
			Expired:     a.expired,
			ReauthError: a.reauthError,
			ReauthBusy:  a.reauthBusy,
		}
	}

	snap.List = inventory.Paginate(a.derivedItems(), s.pageSize, s.page)

	snap.Facets = FacetSnapshot{
		Categories:     inventory.UniqueCategories(s.allItems),
		Statuses:       inventory.UniqueStatuses(s.allItems),
		HasRetired:     inventory.HasRetired(s.allItems),
		CategoryCounts: inventory.CategoryCounts(s.allItems),
		FormOptions:    inventory.BuildFormOptions(s.allItems),
	}

	if s.showItem {
		item := &ItemSnapshot{
			ID:               s.selectedID,
			Item:             cloneItem(s.selectedItem),
			History:          inventory.FormatHistory(s.history, s.selectedItem.IsCable(), s.historyDirection),
			HistoryDirection: s.historyDirection,
			EditForm:         s.editForm,
			EditUnlocked:     s.editUnlocked,
			EditIsValid:      s.editForm.HasRequiredFields(),
		}
		if s.selectedItem != nil {
			item.EditHasChanges = s.editForm.DiffersFrom(*s.selectedItem)
		}
		snap.Item = item
	}

	if s.quickItem != nil {
		snap.Quick = &QuickSnapshot{Item: *s.quickItem, Form: s.quickForm}
	}
	if s.retireItem != nil {
		snap.Retire = &RetireSnapshot{
			Item:      *s.retireItem,
			Form:      s.retireForm,
			Restoring: s.retireItem.Status == inventory.StatusRetired,
		}
	}
	if s.showCable {
		snap.Cable = &CableSnapshot{
			Category: s.cableCategory,
			Items:    s.cableItems,
			History:  inventory.FormatHistory(s.cableHistory, true, s.historyDirection),
		}
	}

	if u := &a.users; u.show {
		snap.Users = &UsersSnapshot{
			View:        u.view,
			List:        u.list,
			CreateForm:  u.createForm,
			ResetForm:   u.resetForm,
			RoleEdit:    u.roleEdit,
			AuditLogs:   u.auditLogs,
			Permissions: a.permissions(),
		}
	}
	return snap
}
