package attendance

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

// PGUserDirectory resolves user names from the users table.
type PGUserDirectory struct {
	db *sql.DB
}

// NewPGUserDirectory creates a directory backed by Postgres.
func NewPGUserDirectory(db *sql.DB) *PGUserDirectory {
	return &PGUserDirectory{db: db}
}

// UserName returns the display name for a user, or empty when unknown.
func (d *PGUserDirectory) UserName(ctx context.Context, userID string) (string, error) {
	var name string
	err := d.db.QueryRowContext(ctx, `SELECT name FROM users WHERE id = $1`, userID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return name, err
}

// MemoryUserDirectory is a map-backed directory for dev and testing.
type MemoryUserDirectory struct {
	mu    sync.Mutex
	names map[string]string
}

// NewMemoryUserDirectory creates a directory from a name map.
func NewMemoryUserDirectory(names map[string]string) *MemoryUserDirectory {
	if names == nil {
		names = make(map[string]string)
	}
	return &MemoryUserDirectory{names: names}
}

// SetName registers a display name.
func (d *MemoryUserDirectory) SetName(userID, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names[userID] = name
}

// UserName returns the display name for a user, or empty when unknown.
func (d *MemoryUserDirectory) UserName(ctx context.Context, userID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.names[userID], nil
}
