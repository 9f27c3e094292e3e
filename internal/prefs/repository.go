package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Repository persists preferences per user.
type Repository interface {
	// Load returns the stored preferences of username, decoded leniently.
	// It returns ErrNotFound when nothing is stored.
	Load(ctx context.Context, username string) (Preferences, error)

	// Save replaces the stored preferences of username.
	Save(ctx context.Context, username string, p Preferences) error
}

// SQLiteRepository implements Repository on the preferences table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a SQLite-backed preference repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Load implements Repository.
func (r *SQLiteRepository) Load(ctx context.Context, username string) (Preferences, error) {
	const query = `SELECT value FROM preferences WHERE key = ?`

	var raw string
	err := r.db.QueryRowContext(ctx, query, Key(username)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Preferences{}, ErrNotFound
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("loading preferences for %s: %w", username, err)
	}
	return Decode([]byte(raw)), nil
}

// Save implements Repository.
func (r *SQLiteRepository) Save(ctx context.Context, username string, p Preferences) error {
	data, err := p.Encode()
	if err != nil {
		return fmt.Errorf("encoding preferences: %w", err)
	}

	const query = `INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	_, err = r.db.ExecContext(ctx, query, Key(username), string(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving preferences for %s: %w", username, err)
	}
	return nil
}

// MemoryRepository is an in-process Repository.
//
// Thread Safety: All methods are safe for concurrent use.
type MemoryRepository struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{blobs: make(map[string][]byte)}
}

// Load implements Repository.
func (r *MemoryRepository) Load(_ context.Context, username string) (Preferences, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, ok := r.blobs[Key(username)]
	if !ok {
		return Preferences{}, ErrNotFound
	}
	return Decode(raw), nil
}

// Save implements Repository.
func (r *MemoryRepository) Save(_ context.Context, username string, p Preferences) error {
	data, err := p.Encode()
	if err != nil {
		return fmt.Errorf("encoding preferences: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blobs[Key(username)] = data
	return nil
}

// Put stores a raw blob, as another client or an older version might have.
func (r *MemoryRepository) Put(username string, raw []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blobs[Key(username)] = append([]byte(nil), raw...)
}
