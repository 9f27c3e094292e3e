// Package workspace owns the application state of one connected shell.
//
// An App is the single writer of everything the inventory view shows: the
// item lists, the open panels and their forms, the user-management panel,
// banners and the signed-in session. All of it lives on one event loop.
// Network calls run on task goroutines and commit their results back through
// the loop, so state is never locked.
//
// The App implements navigation.Actions, which lets a navigation.Reconciler
// drive it from the address fragment, and it calls Reconciler.Sync on every
// render so state changes flow back into the fragment.
//
// Rendering is batched: any number of mutations within one tick produce a
// single render on the next tick, which syncs the fragment, persists changed
// preferences and hands a Snapshot to the observer.
//
// Session boundaries:
//   - Login: load totals, the list and stored preferences, then apply the
//     current fragment so a shared link wins over preferences
//   - Logout: reset everything and show the inventory root
//   - Expiry (401 or token exp): raise the re-auth prompt, keep the view
//   - Re-auth as the same user: keep the view, refresh the lists
//   - Re-auth as someone else: reset the view and load their preferences
package workspace
