// Package navigation keeps the browser's URL fragment and the inventory
// view state consistent in both directions.
//
// # Fragment grammar
//
//	#/inventory                    list view
//	#/inventory/add                add-item panel
//	#/inventory/item/<id>          item detail
//	#/inventory/item/<id>/quick    item detail with deploy/return shortcut
//	#/inventory/item/<id>/retire   item detail with retire/restore
//	#/inventory/users              user management
//
// Query parameters follow the first "?": q, status, category, hideRetired,
// sort, dir, pageSize, page and view (user-management sub-view). Encode
// emits them in that order and only when they differ from their defaults,
// so every view state has exactly one canonical fragment. Keys and values
// use the browser's form encoding, so "?q=100%" decodes to "100%" and a
// space encodes as "+".
//
// # Reconciler
//
// A Reconciler is created per signed-in session and runs on that session's
// event loop. It has two directions:
//
//   - Apply decodes a fragment (initial load or hashchange) and drives the
//     injected Actions to match it. Item and user loads suspend the pass;
//     a newer navigation supersedes an older one, whose remaining steps are
//     dropped and whose fetches are cancelled.
//   - Sync receives the current ViewState after every render and writes the
//     canonical fragment with a history replace when it differs from the
//     browser's.
//
// While a pass is applying, Sync only records the state it sees. The guard
// is released on the tick after the pass's final step, so the renders the
// pass itself caused never rewrite the fragment being applied.
//
// Unknown status, category and sort values in a fragment are applied as
// they are. The list derivation in package inventory treats them as "no
// match" (status, category) or falls back (sort). Only pageSize and page
// are validated here; an owner that corrects a value the list cannot show
// calls Amend so the correction reaches the fragment.
package navigation
