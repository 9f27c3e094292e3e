package main

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/nerrad567/stockroom-core/internal/navigation"
)

func newRouteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Decode and encode inventory address fragments",
	}
	cmd.AddCommand(newRouteDecodeCmd())
	cmd.AddCommand(newRouteEncodeCmd())
	return cmd
}

// decodedRoute is the JSON printed by route decode.
type decodedRoute struct {
	Fragment string     `json:"fragment"`
	Segments []string   `json:"segments"`
	Params   url.Values `json:"params"`
}

func newRouteDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "decode <fragment>",
		Short:   "Print the segments and parameters of a fragment",
		Example: `  stockroom route decode '#/inventory/item/42?pageSize=50'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := navigation.Decode(args[0])
			segments := f.Segments
			if segments == nil {
				segments = []string{}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(decodedRoute{
				Fragment: navigation.Normalize(args[0]),
				Segments: segments,
				Params:   f.Params,
			})
		},
	}
}

// encodeFlags are the route encode options. Zero values are the defaults
// of a fresh view.
type encodeFlags struct {
	view        string
	id          int64
	action      string
	search      string
	status      string
	category    string
	hideRetired bool
	sort        string
	dir         string
	pageSize    string
	page        int
	userView    string
}

func newRouteEncodeCmd() *cobra.Command {
	defaults := navigation.DefaultTarget()
	var f encodeFlags

	cmd := &cobra.Command{
		Use:     "encode",
		Short:   "Print the canonical fragment of a view",
		Example: `  stockroom route encode --view item --id 42 --action retire --page-size 50`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := f.target()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), navigation.Encode(t))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.view, "view", "", "Primary panel: add, item or users")
	flags.Int64Var(&f.id, "id", 0, "Item id for --view item")
	flags.StringVar(&f.action, "action", "", "Item sub-action: quick or retire")
	flags.StringVar(&f.search, "q", "", "Search text")
	flags.StringVar(&f.status, "status", defaults.FilterStatus, "Status filter")
	flags.StringVar(&f.category, "category", defaults.FilterCategory, "Category filter")
	flags.BoolVar(&f.hideRetired, "hide-retired", false, "Hide retired items")
	flags.StringVar(&f.sort, "sort", defaults.SortField, "Sort field")
	flags.StringVar(&f.dir, "dir", defaults.SortDirection, "Sort direction: asc or desc")
	flags.StringVar(&f.pageSize, "page-size", fmt.Sprint(defaults.PageSize), "Page size, or all")
	flags.IntVar(&f.page, "page", defaults.Page, "Page number")
	flags.StringVar(&f.userView, "user-view", defaults.UserView, "User panel view")
	return cmd
}

// target validates the flags and builds the navigation target.
func (f encodeFlags) target() (navigation.Target, error) {
	t := navigation.DefaultTarget()

	if f.view != "" {
		t.View = navigation.ParseView(f.view)
		if t.View == navigation.ViewNone {
			return t, fmt.Errorf("unknown view %q", f.view)
		}
	}
	if f.action != "" {
		t.Action = navigation.ParseItemAction(f.action)
		if t.Action == navigation.ActionNone {
			return t, fmt.Errorf("unknown action %q", f.action)
		}
		if t.View != navigation.ViewItem {
			return t, fmt.Errorf("--action needs --view item")
		}
	}
	if t.View == navigation.ViewItem {
		if f.id <= 0 {
			return t, fmt.Errorf("--view item needs a positive --id")
		}
		t.ItemID = f.id
	}

	size, ok := navigation.ParsePageSize(f.pageSize)
	if !ok {
		return t, fmt.Errorf("invalid page size %q", f.pageSize)
	}
	if f.page <= 0 {
		return t, fmt.Errorf("page must be 1 or greater")
	}

	t.Search = f.search
	t.FilterStatus = f.status
	t.FilterCategory = f.category
	t.HideRetired = f.hideRetired
	t.SortField = f.sort
	t.SortDirection = f.dir
	t.PageSize = size
	t.Page = f.page
	t.UserView = f.userView
	return t, nil
}
