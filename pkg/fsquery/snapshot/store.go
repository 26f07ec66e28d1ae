package snapshot

import (
	"context"
	"errors"
	"time"
)

// Meta describes a stored snapshot.
type Meta struct {
	ID        string
	Root      string
	CreatedAt time.Time
	Entries   int
}

// Cursor streams a snapshot's entries in the order they were saved, which
// is path order for snapshots built by Scan. It satisfies the
// engine's Iterator interface, so it can feed a job directly.
type Cursor interface {
	// Next returns the next entry, false once exhausted or on error.
	Next() (*Entry, bool)
	// Err returns the error that stopped iteration early, if any.
	Err() error
	// Close releases the cursor.
	Close() error
}

// Store persists snapshots.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores entries as a new snapshot of root and returns its ID.
	// Entries are renumbered 1..n in slice order; incoming IDs are ignored.
	Save(ctx context.Context, root string, entries []Entry) (string, error)

	// Open returns a cursor over the snapshot's entries.
	// Returns ErrNotFound if the snapshot doesn't exist.
	Open(ctx context.Context, id string) (Cursor, error)

	// Meta returns the snapshot's metadata.
	Meta(ctx context.Context, id string) (Meta, error)

	// Latest returns the newest snapshot, of root when root is non-empty.
	// Returns ErrNotFound if there is none.
	Latest(ctx context.Context, root string) (Meta, error)

	// List returns every snapshot, newest first.
	List(ctx context.Context) ([]Meta, error)

	// Delete removes a snapshot. Returns nil if it doesn't exist.
	Delete(ctx context.Context, id string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates a snapshot doesn't exist.
	ErrNotFound = errors.New("snapshot not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("snapshot store closed")
)
