// Package api provides the HTTP server for Stockroom Core.
//
// It serves the browser shell, a health endpoint, and the WebSocket
// endpoint the shell talks to. Each WebSocket connection hosts one view
// session: a workspace.App running on its own event loop. The shell
// forwards hash changes, credentials and intents; the server answers with
// render snapshots and replace_hash messages.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
