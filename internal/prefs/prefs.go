// Package prefs stores the inventory list preferences of each user: search
// text, filters, sort and page size.
//
// Preferences are loaded when a user signs in, before the address fragment
// is applied, so a shared link always wins over the stored defaults. Stored
// values that no longer make sense (a category nobody uses any more, a page
// size the list does not offer) fall back to the defaults.
package prefs

import (
	"encoding/json"
	"errors"
	"math"
	"slices"

	"github.com/nerrad567/stockroom-core/internal/inventory"
)

// ErrNotFound is returned when a user has no stored preferences.
var ErrNotFound = errors.New("preferences not found")

// keyPrefix namespaces preference keys per user.
const keyPrefix = "stockroom:inventory-preferences:"

// Key returns the storage key for username.
func Key(username string) string {
	return keyPrefix + username
}

// Preferences are the remembered list settings of one user.
type Preferences struct {
	Search         string `json:"search"`
	SortField      string `json:"sortField"`
	SortDirection  string `json:"sortDirection"`
	FilterStatus   string `json:"filterStatus"`
	FilterCategory string `json:"filterCategory"`
	PageSize       int    `json:"pageSize"`
	HideRetired    bool   `json:"hideRetired"`
}

// Defaults returns the preferences of a user who never changed anything.
func Defaults() Preferences {
	return Preferences{
		SortField:      inventory.DefaultSortField,
		SortDirection:  inventory.DefaultSortDirection,
		FilterStatus:   inventory.DefaultFilterStatus,
		FilterCategory: inventory.DefaultFilterCategory,
		PageSize:       inventory.DefaultPageSize,
	}
}

// Known are the filter values currently present in the inventory.
type Known struct {
	Statuses   []string
	Categories []string
}

// KnownFrom collects the statuses and categories of items.
func KnownFrom(items []inventory.Item) Known {
	return Known{
		Statuses:   inventory.UniqueStatuses(items),
		Categories: inventory.UniqueCategories(items),
	}
}

// Validate replaces every value outside its known set with the default.
// "all" is always a valid status and category. Search is kept as is.
func (p Preferences) Validate(known Known) Preferences {
	d := Defaults()
	out := Preferences{Search: p.Search, HideRetired: p.HideRetired}

	out.SortField = pick(p.SortField, inventory.ValidSortField(p.SortField), d.SortField)
	out.SortDirection = pick(p.SortDirection, inventory.ValidSortDirection(p.SortDirection), d.SortDirection)
	out.FilterStatus = pick(p.FilterStatus,
		p.FilterStatus == inventory.FilterAll || slices.Contains(known.Statuses, p.FilterStatus), d.FilterStatus)
	out.FilterCategory = pick(p.FilterCategory,
		p.FilterCategory == inventory.FilterAll || slices.Contains(known.Categories, p.FilterCategory), d.FilterCategory)

	out.PageSize = d.PageSize
	if inventory.ValidPageSize(p.PageSize) {
		out.PageSize = p.PageSize
	}
	return out
}

func pick(value string, ok bool, fallback string) string {
	if ok {
		return value
	}
	return fallback
}

// Decode reads a stored blob leniently. Malformed JSON yields the defaults;
// a field of the wrong type yields that field's default. Statuses and
// categories are checked against the inventory later, by Validate.
func Decode(raw []byte) Preferences {
	p := Defaults()

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return p
	}

	if s, ok := fields["search"].(string); ok {
		p.Search = s
	}
	if s, ok := fields["sortField"].(string); ok {
		p.SortField = s
	}
	if s, ok := fields["sortDirection"].(string); ok {
		p.SortDirection = s
	}
	if s, ok := fields["filterStatus"].(string); ok {
		p.FilterStatus = s
	}
	if s, ok := fields["filterCategory"].(string); ok {
		p.FilterCategory = s
	}
	if n, ok := fields["pageSize"].(float64); ok && n == math.Trunc(n) && inventory.ValidPageSize(int(n)) {
		p.PageSize = int(n)
	}
	p.HideRetired = truthy(fields["hideRetired"])
	return p
}

// Encode serialises p for storage.
func (p Preferences) Encode() ([]byte, error) {
	return json.Marshal(p)
}

// truthy mirrors how a loosely typed blob is read back as a flag.
func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case string:
		return x != ""
	case nil:
		return false
	default:
		return true
	}
}
