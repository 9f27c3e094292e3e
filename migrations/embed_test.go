package migrations

import (
	"context"
	"testing"

	"github.com/nerrad567/stockroom-core/internal/infrastructure/database"
)

func TestEmbeddedMigrationsApply(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx, FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	if _, err := db.ExecContext(ctx,
		"INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)",
		"stockroom:inventory-preferences:alice", "{}", "2026-01-01T00:00:00Z",
	); err != nil {
		t.Errorf("preferences table unusable: %v", err)
	}
}
