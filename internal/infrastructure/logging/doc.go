// Package logging provides structured logging for Stockroom Core.
//
// It wraps log/slog so every component logs with the same handler,
// level filtering and default fields (service, version).
//
// Logging is configured via the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Never log bearer tokens or passwords. Usernames and item ids are fine.
package logging
