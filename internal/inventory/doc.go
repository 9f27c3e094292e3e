// Package inventory holds the stockroom item model and everything the
// inventory view derives from it.
//
// It covers:
//   - Item, history and cable summary types as returned by the backend
//   - Forms for adding, editing, quick deploy/return and retire/restore
//   - Cable helpers (ends, length, quantity parsing)
//   - List derivation: filter, sort, paging, facets and category counts
//   - History change lines for the item detail view
//   - Client, the REST calls for item endpoints
//
// Cables are tracked by quantity rather than individually: their "make" is
// the pair of connector ends ("HDMI-USB-C") and their "model" the length
// ("6 ft"). Deploy/return does not apply to them.
//
// All derivation functions are pure and safe for concurrent use.
package inventory
