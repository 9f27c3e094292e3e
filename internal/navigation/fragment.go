package navigation

import (
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/nerrad567/stockroom-core/internal/inventory"
	"github.com/nerrad567/stockroom-core/internal/users"
)

// Root is the canonical fragment of the inventory list.
const Root = "#/inventory"

// ErrInvalidItemID is returned by ParseItemID for a non-numeric id segment.
var ErrInvalidItemID = errors.New("invalid item id")

// Path segments and query keys of the fragment grammar.
const (
	SegmentInventory = "inventory"
	SegmentAdd       = "add"
	SegmentItem      = "item"
	SegmentUsers     = "users"
	SegmentQuick     = "quick"
	SegmentRetire    = "retire"

	ParamSearch      = "q"
	ParamStatus      = "status"
	ParamCategory    = "category"
	ParamHideRetired = "hideRetired"
	ParamSort        = "sort"
	ParamDirection   = "dir"
	ParamPageSize    = "pageSize"
	ParamPage        = "page"
	ParamUserView    = "view"

	// pageSizeAllToken is the query spelling of inventory.PageSizeAll.
	pageSizeAllToken = "all"
)

// Normalize returns Root for "" and "#", prefixes a missing "#", and
// passes anything else through.
func Normalize(fragment string) string {
	if fragment == "" || fragment == "#" {
		return Root
	}
	if !strings.HasPrefix(fragment, "#") {
		return "#" + fragment
	}
	return fragment
}

// Fragment is a decoded URL fragment.
type Fragment struct {
	Segments []string
	Params   url.Values
}

// Segment returns segment i, or "" when absent.
func (f Fragment) Segment(i int) string {
	if i < 0 || i >= len(f.Segments) {
		return ""
	}
	return f.Segments[i]
}

// Has reports whether key appears in the query.
func (f Fragment) Has(key string) bool {
	return f.Params.Has(key)
}

// Get returns the first value of key, or "".
func (f Fragment) Get(key string) string {
	return f.Params.Get(key)
}

// Decode parses a fragment into path segments and query parameters.
//
// The fragment is normalized first. The path is split on "/" with empty
// tokens dropped. The query (after the first "?") never fails to parse: a
// malformed escape is kept as written.
func Decode(fragment string) Fragment {
	trimmed := strings.TrimPrefix(Normalize(fragment), "#")
	path, query, _ := strings.Cut(trimmed, "?")

	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}

	return Fragment{Segments: segments, Params: parseQuery(query)}
}

// ParseItemID parses an item id segment.
func ParseItemID(segment string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(segment), 10, 64)
	if err != nil {
		return 0, ErrInvalidItemID
	}
	return id, nil
}

// ParsePageSize parses a pageSize parameter. ok is false unless the value
// is one of inventory.PageSizes (or "all").
func ParsePageSize(value string) (size int, ok bool) {
	if value == pageSizeAllToken {
		return inventory.PageSizeAll, true
	}
	n, ok := parseWhole(value)
	if !ok || !inventory.ValidPageSize(n) {
		return 0, false
	}
	return n, true
}

// ParsePage parses a page parameter. ok is false unless the value is a
// whole number greater than zero.
func ParsePage(value string) (page int, ok bool) {
	n, ok := parseWhole(value)
	if !ok || n <= 0 {
		return 0, false
	}
	return n, true
}

// parseWhole accepts decimal numbers with an integral value ("3", "3.0",
// "1e1"). Page numbers are ints, so fractional pages are rejected.
func parseWhole(value string) (int, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// ParseBool reports whether a hideRetired value means true ("1" or "true").
func ParseBool(value string) bool {
	return value == "1" || value == "true"
}

// Target describes the navigation target Encode renders.
type Target struct {
	View   View
	ItemID int64
	Action ItemAction

	Search         string
	FilterStatus   string
	FilterCategory string
	HideRetired    bool
	SortField      string
	SortDirection  string
	PageSize       int
	Page           int
	UserView       string
}

// DefaultTarget is the list view with every parameter at its default.
func DefaultTarget() Target {
	return Target{
		FilterStatus:   inventory.DefaultFilterStatus,
		FilterCategory: inventory.DefaultFilterCategory,
		SortField:      inventory.DefaultSortField,
		SortDirection:  inventory.DefaultSortDirection,
		PageSize:       inventory.DefaultPageSize,
		Page:           1,
		UserView:       users.DefaultView,
	}
}

// Encode renders t as its canonical fragment.
//
// The path is chosen by t.View (an item view needs a non-zero ItemID).
// Parameters equal to their default (or empty) are omitted and the rest are
// written in the fixed order q, status, category, hideRetired, sort, dir,
// pageSize, page, view. view is written only for the users panel.
func Encode(t Target) string {
	segments := []string{SegmentInventory}
	switch {
	case t.View == ViewUsers:
		segments = append(segments, SegmentUsers)
	case t.View == ViewAdd:
		segments = append(segments, SegmentAdd)
	case t.View == ViewItem && t.ItemID != 0:
		segments = append(segments, SegmentItem, strconv.FormatInt(t.ItemID, 10))
		if token := t.Action.Segment(); token != "" {
			segments = append(segments, token)
		}
	}

	var params []string
	add := func(key, value string) {
		params = append(params, key+"="+escapeForm(value))
	}
	if t.Search != "" {
		add(ParamSearch, t.Search)
	}
	if t.FilterStatus != "" && t.FilterStatus != inventory.DefaultFilterStatus {
		add(ParamStatus, t.FilterStatus)
	}
	if t.FilterCategory != "" && t.FilterCategory != inventory.DefaultFilterCategory {
		add(ParamCategory, t.FilterCategory)
	}
	if t.HideRetired {
		add(ParamHideRetired, "1")
	}
	if t.SortField != "" && t.SortField != inventory.DefaultSortField {
		add(ParamSort, t.SortField)
	}
	if t.SortDirection != "" && t.SortDirection != inventory.DefaultSortDirection {
		add(ParamDirection, t.SortDirection)
	}
	if t.PageSize != inventory.DefaultPageSize {
		if t.PageSize == inventory.PageSizeAll {
			add(ParamPageSize, pageSizeAllToken)
		} else {
			add(ParamPageSize, strconv.Itoa(t.PageSize))
		}
	}
	if t.Page != 1 {
		add(ParamPage, strconv.Itoa(t.Page))
	}
	if t.UserView != "" && t.View == ViewUsers {
		add(ParamUserView, t.UserView)
	}

	out := "#/" + strings.Join(segments, "/")
	if len(params) > 0 {
		out += "?" + strings.Join(params, "&")
	}
	return out
}
