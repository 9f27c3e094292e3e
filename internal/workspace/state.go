package workspace

import (
	"github.com/nerrad567/stockroom-core/internal/inventory"
	"github.com/nerrad567/stockroom-core/internal/users"
)

// stockState is the inventory half of the view.
type stockState struct {
	items    []inventory.Item // list as filtered by the backend search
	allItems []inventory.Item // everything, for totals and facets
	facetsOK bool             // allItems holds a successful load

	search         string
	filterStatus   string
	filterCategory string
	hideRetired    bool
	sortField      string
	sortDirection  string
	pageSize       int
	page           int

	selectedID       int64
	selectedItem     *inventory.Item
	history          []inventory.HistoryEvent
	historyDirection string

	addForm      inventory.ItemForm
	editForm     inventory.ItemForm
	editUnlocked bool
	showAdd      bool
	showItem     bool

	quickItem  *inventory.Item
	quickForm  inventory.QuickActionForm
	retireItem *inventory.Item
	retireForm inventory.RetireForm

	showCable     bool
	cableCategory string
	cableItems    []inventory.Item
	cableHistory  []inventory.HistoryEvent
}

func newStockState() stockState {
	return stockState{
		filterStatus:     inventory.DefaultFilterStatus,
		filterCategory:   inventory.DefaultFilterCategory,
		sortField:        inventory.DefaultSortField,
		sortDirection:    inventory.DefaultSortDirection,
		pageSize:         inventory.DefaultPageSize,
		page:             1,
		historyDirection: inventory.SortDesc,
		quickForm:        inventory.NewQuickActionForm(),
		retireForm:       inventory.NewRetireForm(),
		cableCategory:    inventory.CableCategory,
	}
}

// findItem looks id up in the list, the totals and the open detail.
func (s *stockState) findItem(id int64) *inventory.Item {
	for _, list := range [][]inventory.Item{s.items, s.allItems} {
		for i := range list {
			if list[i].ID == id {
				item := list[i]
				return &item
			}
		}
	}
	if s.selectedItem != nil && s.selectedItem.ID == id {
		item := *s.selectedItem
		return &item
	}
	return nil
}

// userState is the user-management half of the view.
type userState struct {
	show       bool
	view       string
	list       []users.User
	createForm users.CreateForm
	resetForm  users.ResetPasswordForm
	roleEdit   users.RoleEdit
	auditLogs  []users.AuditLog
}

func newUserState() userState {
	return userState{
		view:       users.DefaultView,
		createForm: users.NewCreateForm(),
		roleEdit:   users.NewRoleEdit(),
	}
}

func itemID(item *inventory.Item) int64 {
	if item == nil {
		return 0
	}
	return item.ID
}

func cloneItem(item *inventory.Item) *inventory.Item {
	if item == nil {
		return nil
	}
	c := *item
	return &c
}
