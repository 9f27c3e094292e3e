package navigation

import (
	"github.com/nerrad567/stockroom-core/internal/inventory"
	"github.com/nerrad567/stockroom-core/internal/users"
)

// View is the exclusive primary panel.
type View int

const (
	ViewNone View = iota
	ViewAdd
	ViewItem
	ViewUsers
)

// String returns the lowercase view name used in logs and the CLI.
func (v View) String() string {
	switch v {
	case ViewAdd:
		return "add"
	case ViewItem:
		return "item"
	case ViewUsers:
		return "users"
	default:
		return "none"
	}
}

// ParseView is the inverse of View.String. Unknown names are ViewNone.
func ParseView(s string) View {
	switch s {
	case "add":
		return ViewAdd
	case "item":
		return ViewItem
	case "users":
		return ViewUsers
	default:
		return ViewNone
	}
}

// ItemAction is the sub-action open on an item.
type ItemAction int

const (
	ActionNone ItemAction = iota
	ActionQuick
	ActionRetire
)

// Segment returns the fragment token of the action, "" for ActionNone.
func (a ItemAction) Segment() string {
	switch a {
	case ActionQuick:
		return SegmentQuick
	case ActionRetire:
		return SegmentRetire
	default:
		return ""
	}
}

// ParseItemAction maps a fragment token to its action.
func ParseItemAction(s string) ItemAction {
	switch s {
	case SegmentQuick:
		return ActionQuick
	case SegmentRetire:
		return ActionRetire
	default:
		return ActionNone
	}
}

// Filters narrow the inventory list.
type Filters struct {
	Search      string `json:"search"`
	Status      string `json:"status"`
	Category    string `json:"category"`
	HideRetired bool   `json:"hideRetired"`
}

// Sort orders the inventory list.
type Sort struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// Paging selects a page. PageSize 0 disables paging.
type Paging struct {
	PageSize int `json:"pageSize"`
	Page     int `json:"page"`
}

// ViewState is what the inventory view currently shows, as observed by the
// encode direction.
//
// The panel flags mirror the UI: several may be set at once during a
// transition. Target resolves them to the single primary view the fragment
// encodes. ViewState is comparable so Sync can detect changes with ==.
type ViewState struct {
	UsersOpen bool `json:"usersOpen"`
	AddOpen   bool `json:"addOpen"`
	ItemOpen  bool `json:"itemOpen"`

	// SelectedID is the item whose detail is loaded, 0 for none.
	SelectedID int64 `json:"selectedId"`

	// QuickItemID and RetireItemID are the items with that sub-action open.
	QuickItemID  int64 `json:"quickItemId"`
	RetireItemID int64 `json:"retireItemId"`

	Filters  Filters `json:"filters"`
	Sort     Sort    `json:"sort"`
	Paging   Paging  `json:"paging"`
	UserView string  `json:"userView"`
}

// DefaultViewState is a fresh session: list view, default filters.
func DefaultViewState() ViewState {
	return ViewState{
		Filters: Filters{
			Status:   inventory.DefaultFilterStatus,
			Category: inventory.DefaultFilterCategory,
		},
		Sort: Sort{
			Field:     inventory.DefaultSortField,
			Direction: inventory.DefaultSortDirection,
		},
		Paging: Paging{
			PageSize: inventory.DefaultPageSize,
			Page:     1,
		},
		UserView: users.DefaultView,
	}
}

// Target derives the navigation target of s.
//
// Precedence: users panel, add panel, retire sub-action, quick sub-action,
// item detail with a selected item, otherwise the list.
func (s ViewState) Target() Target {
	t := Target{
		Search:         s.Filters.Search,
		FilterStatus:   s.Filters.Status,
		FilterCategory: s.Filters.Category,
		HideRetired:    s.Filters.HideRetired,
		SortField:      s.Sort.Field,
		SortDirection:  s.Sort.Direction,
		PageSize:       s.Paging.PageSize,
		Page:           s.Paging.Page,
		UserView:       s.UserView,
	}

	switch {
	case s.UsersOpen:
		t.View = ViewUsers
	case s.AddOpen:
		t.View = ViewAdd
	case s.RetireItemID != 0:
		t.View, t.Action = ViewItem, ActionRetire
	case s.QuickItemID != 0:
		t.View, t.Action = ViewItem, ActionQuick
	case s.ItemOpen && s.SelectedID != 0:
		t.View = ViewItem
	}

	switch {
	case s.RetireItemID != 0:
		t.ItemID = s.RetireItemID
	case s.QuickItemID != 0:
		t.ItemID = s.QuickItemID
	case s.ItemOpen:
		t.ItemID = s.SelectedID
	}
	return t
}

// Primary returns the exclusive primary view of s.
func (s ViewState) Primary() View {
	return s.Target().View
}

// StateOf rebuilds the view state a target describes: the inverse of
// ViewState.Target for states reachable through the openers.
func StateOf(t Target) ViewState {
	s := ViewState{
		Filters: Filters{
			Search:      t.Search,
			Status:      t.FilterStatus,
			Category:    t.FilterCategory,
			HideRetired: t.HideRetired,
		},
		Sort:     Sort{Field: t.SortField, Direction: t.SortDirection},
		Paging:   Paging{PageSize: t.PageSize, Page: t.Page},
		UserView: t.UserView,
	}
	switch t.View {
	case ViewUsers:
		s.UsersOpen = true
	case ViewAdd:
		s.AddOpen = true
	case ViewItem:
		s.SelectedID = t.ItemID
		switch t.Action {
		case ActionQuick:
			s.QuickItemID = t.ItemID
		case ActionRetire:
			s.RetireItemID = t.ItemID
			s.ItemOpen = true
		default:
			s.ItemOpen = true
		}
	}
	return s
}
