package inventory

import "strings"

// Item statuses as stored by the backend.
const (
	StatusInStock  = "in_stock"
	StatusDeployed = "deployed"
	StatusRetired  = "retired"
)

// CableCategory is the category whose items are tracked by quantity.
const CableCategory = "Cable"

// Item is one inventory record.
type Item struct {
	ID           int64  `json:"id"`
	Category     string `json:"category"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	ServiceTag   string `json:"service_tag"`
	Quantity     int    `json:"quantity"`
	Row          string `json:"row"`
	Note         string `json:"note"`
	Status       string `json:"status"`
	AssignedUser string `json:"assigned_user"`
	CreatedAt    string `json:"created_at"`
	CreatedBy    string `json:"created_by"`
	UpdatedAt    string `json:"updated_at"`
}

// IsCable reports whether the item belongs to the cable category.
// A nil item is not a cable.
func (i *Item) IsCable() bool {
	return i != nil && IsCableCategory(i.Category)
}

// FieldChange is the before/after pair of one field in a history event.
// Values are whatever JSON scalar the backend recorded.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// HistoryEvent is one entry of an item's audit trail.
type HistoryEvent struct {
	ID        int64                  `json:"id"`
	ItemID    int64                  `json:"item_id,omitempty"`
	Actor     string                 `json:"actor"`
	Timestamp string                 `json:"timestamp"`
	Action    string                 `json:"action"`
	Changes   map[string]FieldChange `json:"changes"`
	Note      string                 `json:"note"`
}

// Detail is an item together with its history.
type Detail struct {
	Item    Item           `json:"item"`
	History []HistoryEvent `json:"history"`
}

// CableSummary lists the stock of a quantity-tracked category.
type CableSummary struct {
	Category string         `json:"category"`
	Items    []Item         `json:"items"`
	History  []HistoryEvent `json:"history"`
}

// ItemForm is the add/edit form.
type ItemForm struct {
	Category   string `json:"category"`
	Make       string `json:"make"`
	Model      string `json:"model"`
	ServiceTag string `json:"serviceTag"`
	Row        string `json:"row"`
	Note       string `json:"note"`
}

// EditFormFor returns the edit form pre-populated from item.
func EditFormFor(item Item) ItemForm {
	return ItemForm{
		Category:   item.Category,
		Make:       item.Make,
		Model:      item.Model,
		ServiceTag: item.ServiceTag,
		Row:        item.Row,
		Note:       item.Note,
	}
}

// HasRequiredFields reports whether the form can be submitted.
// Cables need both ends and a length; other items need a service tag.
func (f ItemForm) HasRequiredFields() bool {
	if strings.TrimSpace(f.Category) == "" || strings.TrimSpace(f.Model) == "" {
		return false
	}
	if IsCableCategory(f.Category) {
		return HasCompleteCableEnds(f.Make)
	}
	return strings.TrimSpace(f.Make) != "" && strings.TrimSpace(f.ServiceTag) != ""
}

// DiffersFrom reports whether the form has edits relative to item.
func (f ItemForm) DiffersFrom(item Item) bool {
	return f != EditFormFor(item)
}

// QuickActionForm is the deploy/return shortcut form.
type QuickActionForm struct {
	AssignedUser string `json:"assignedUser"`
	Note         string `json:"note"`
}

// NewQuickActionForm returns an empty quick-action form.
func NewQuickActionForm() QuickActionForm {
	return QuickActionForm{}
}

// RetireForm is the retire/restore form.
type RetireForm struct {
	Note      string `json:"note"`
	ZeroStock bool   `json:"zeroStock"`
}

// NewRetireForm returns a retire form with an empty note and zeroStock off.
func NewRetireForm() RetireForm {
	return RetireForm{}
}
