package inventory

import (
	"sort"
	"strings"
)

// List defaults and value sets.
const (
	FilterAll = "all"

	SortCreated = "created"
	SortUpdated = "updated"

	SortAsc  = "asc"
	SortDesc = "desc"

	DefaultFilterStatus   = FilterAll
	DefaultFilterCategory = FilterAll
	DefaultSortField      = SortCreated
	DefaultSortDirection  = SortDesc
	DefaultPageSize       = 20

	// PageSizeAll disables paging.
	PageSizeAll = 0
)

// UncategorizedLabel groups items with a blank category in CategoryCounts.
const UncategorizedLabel = "Uncategorized"

// PageSizes are the selectable page sizes, PageSizeAll included.
var PageSizes = []int{10, 20, 50, 100, 200, PageSizeAll}

// ValidPageSize reports whether n is one of PageSizes.
func ValidPageSize(n int) bool {
	for _, size := range PageSizes {
		if n == size {
			return true
		}
	}
	return false
}

// ValidSortField reports whether field is a known sort field.
func ValidSortField(field string) bool {
	return field == SortCreated || field == SortUpdated
}

// ValidSortDirection reports whether dir is a known direction.
func ValidSortDirection(dir string) bool {
	return dir == SortAsc || dir == SortDesc
}

// Filter selects items by status and category.
type Filter struct {
	Status      string
	Category    string
	HideRetired bool
}

// Order sorts items by timestamp.
type Order struct {
	Field     string
	Direction string
}

// FilterAndSort applies f and o to a copy of items.
//
// Unknown status or category values match nothing. HideRetired only
// applies while the status filter is "all". An unknown sort field sorts by
// creation time and any direction other than "desc" is ascending.
func FilterAndSort(items []Item, f Filter, o Order) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if f.Status != FilterAll && item.Status != f.Status {
			continue
		}
		if f.Category != FilterAll && item.Category != f.Category {
			continue
		}
		if f.HideRetired && f.Status == FilterAll && item.Status == StatusRetired {
			continue
		}
		out = append(out, item)
	}

	key := func(item Item) int64 {
		if o.Field == SortUpdated {
			if item.UpdatedAt != "" {
				return SortableTime(item.UpdatedAt)
			}
			return SortableTime(item.CreatedAt)
		}
		return SortableTime(item.CreatedAt)
	}
	desc := o.Direction == SortDesc
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return key(out[i]) > key(out[j])
		}
		return key(out[i]) < key(out[j])
	})
	return out
}

// Page is one page of a derived list.
type Page struct {
	Items      []Item `json:"items"`
	Total      int    `json:"total"`
	TotalPages int    `json:"totalPages"`

	// SafePage is the requested page clamped to [1, TotalPages].
	SafePage int `json:"page"`

	// Start and End are the half-open bounds of Items within the full list.
	Start int `json:"start"`
	End   int `json:"end"`
}

// Paginate slices items into the requested page. A page size of
// PageSizeAll yields a single page holding everything.
func Paginate(items []Item, pageSize, page int) Page {
	total := len(items)
	if pageSize <= 0 {
		return Page{Items: items, Total: total, TotalPages: 1, SafePage: 1, Start: 0, End: total}
	}

	totalPages := max(1, (total+pageSize-1)/pageSize)
	safe := min(max(page, 1), totalPages)
	start := (safe - 1) * pageSize
	end := min(start+pageSize, total)
	return Page{
		Items:      items[start:end],
		Total:      total,
		TotalPages: totalPages,
		SafePage:   safe,
		Start:      start,
		End:        end,
	}
}

// UniqueCategories returns the distinct non-blank categories, sorted.
func UniqueCategories(items []Item) []string {
	seen := make(map[string]struct{})
	for _, item := range items {
		if c := strings.TrimSpace(item.Category); c != "" {
			seen[c] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// UniqueStatuses returns the distinct non-blank statuses, sorted.
func UniqueStatuses(items []Item) []string {
	seen := make(map[string]struct{})
	for _, item := range items {
		if item.Status != "" {
			seen[item.Status] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// HasRetired reports whether any item is retired.
func HasRetired(items []Item) bool {
	for _, item := range items {
		if item.Status == StatusRetired {
			return true
		}
	}
	return false
}

// CategoryCount summarizes one category. Cables count their quantity,
// every other item counts as one.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
	InStock  int    `json:"inStock"`
	Deployed int    `json:"deployed"`
	Retired  int    `json:"retired"`
}

// CategoryCounts tallies items per category, sorted by category name.
func CategoryCounts(items []Item) []CategoryCount {
	counts := make(map[string]*CategoryCount)
	for _, item := range items {
		category := strings.TrimSpace(item.Category)
		if category == "" {
			category = UncategorizedLabel
		}
		quantity := 1
		if IsCableCategory(category) {
			quantity = max(item.Quantity, 0)
		}

		c, ok := counts[category]
		if !ok {
			c = &CategoryCount{Category: category}
			counts[category] = c
		}
		c.Count += quantity
		switch item.Status {
		case StatusInStock:
			c.InStock += quantity
		case StatusDeployed:
			c.Deployed += quantity
		case StatusRetired:
			c.Retired += quantity
		}
	}

	out := make([]CategoryCount, 0, len(counts))
	for _, c := range counts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// FormOptions are the suggestions offered by the add/edit form dropdowns,
// built from the items already in stock.
type FormOptions struct {
	Categories []string                       `json:"categories"`
	Makes      map[string][]string            `json:"makes"`
	Models     map[string]map[string][]string `json:"models"`
}

// BuildFormOptions collects categories, makes per category and models per
// category and make. Blank values are skipped.
func BuildFormOptions(items []Item) FormOptions {
	makes := make(map[string]map[string]struct{})
	models := make(map[string]map[string]map[string]struct{})
	for _, item := range items {
		category := strings.TrimSpace(item.Category)
		mk := strings.TrimSpace(item.Make)
		model := strings.TrimSpace(item.Model)
		if category == "" || mk == "" {
			continue
		}
		if makes[category] == nil {
			makes[category] = make(map[string]struct{})
		}
		makes[category][mk] = struct{}{}

		if model == "" {
			continue
		}
		if models[category] == nil {
			models[category] = make(map[string]map[string]struct{})
		}
		if models[category][mk] == nil {
			models[category][mk] = make(map[string]struct{})
		}
		models[category][mk][model] = struct{}{}
	}

	opts := FormOptions{
		Categories: UniqueCategories(items),
		Makes:      make(map[string][]string, len(makes)),
		Models:     make(map[string]map[string][]string, len(models)),
	}
	for category, set := range makes {
		opts.Makes[category] = sortedKeys(set)
	}
	for category, byMake := range models {
		opts.Models[category] = make(map[string][]string, len(byMake))
		for m, set := range byMake {
			opts.Models[category][m] = sortedKeys(set)
		}
	}
	return opts
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
