// Package shell serves the browser shell of the stockroom client as an
// embedded asset.
//
// The shell is deliberately thin. It owns no view state: it forwards
// hashchange events and user intents to the server over a WebSocket,
// applies the replace_hash commands it receives with history.replaceState
// (which raises no hashchange) and draws the render snapshots.
//
// Handler serves the embedded files with SPA fallback routing: a path that
// names no file is answered with index.html so deep links load the shell.
// Everything is served no-cache since the assets are not content-hashed.
package shell
