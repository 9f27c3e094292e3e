// Package database provides SQLite connectivity for Stockroom Core.
//
// The only local state Stockroom keeps is the per-user preference blob
// (filters, sort, page size, search text). Everything else lives in the
// inventory backend. The database is small, single-writer and opened in
// WAL mode.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are plain "NNNN_name.sql" files applied in lexical order, each
// in its own transaction, and recorded in schema_migrations.
package database
