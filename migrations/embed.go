// Package migrations embeds the SQL schema files into the binary.
//
// Stockroom runs migrations at startup without needing the SQL files on
// disk. Files are named "NNNN_name.sql" and sit at the root of FS.
package migrations

import "embed"

// FS holds every migration in this directory.
//
//go:embed *.sql
var FS embed.FS
