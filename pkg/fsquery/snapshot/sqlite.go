package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore persists snapshots to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens or creates a snapshot database.
// The path should be a file path (e.g., "./fsquery.db") or ":memory:" for
// testing. An in-memory database is limited to one connection, so a cursor
// must be closed before the next query.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// WAL lets cursors read while another snapshot is written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			root TEXT NOT NULL,
			created_at TEXT NOT NULL,
			entries INTEGER NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create snapshots table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS entries (
			snapshot_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			path TEXT NOT NULL,
			name TEXT NOT NULL,
			dir TEXT NOT NULL,
			size INTEGER NOT NULL,
			mode INTEGER NOT NULL,
			mod_time INTEGER NOT NULL,
			is_dir INTEGER NOT NULL,
			depth INTEGER NOT NULL,
			PRIMARY KEY (snapshot_id, seq)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create entries table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_snapshots_root
		ON snapshots(root, created_at)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, root string, entries []Entry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrStoreClosed
	}

	id := uuid.New().String()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (snapshot_id, seq, path, name, dir, size, mode, mod_time, is_dir, depth)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range entries {
		e := &entries[i]
		if _, err := stmt.ExecContext(ctx, id, i+1, e.Path, e.Name, e.Dir, e.Size,
			uint32(e.Mode), e.ModTime.UnixNano(), e.IsDir, e.Depth); err != nil {
			return "", fmt.Errorf("save entry %s: %w", e.Path, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, root, created_at, entries)
		VALUES (?, ?, ?, ?)
	`, id, root, time.Now().UTC().Format(timeLayout), len(entries)); err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit snapshot: %w", err)
	}
	return id, nil
}

// Open implements Store.
func (s *SQLiteStore) Open(ctx context.Context, id string) (Cursor, error) {
	if _, err := s.Meta(ctx, id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, path, name, dir, size, mode, mod_time, is_dir, depth
		FROM entries
		WHERE snapshot_id = ?
		ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	return &rowCursor{rows: rows}, nil
}

// Meta implements Store.
func (s *SQLiteStore) Meta(ctx context.Context, id string) (Meta, error) {
	return s.queryMeta(ctx, `
		SELECT id, root, created_at, entries FROM snapshots WHERE id = ?
	`, id)
}

// Latest implements Store.
func (s *SQLiteStore) Latest(ctx context.Context, root string) (Meta, error) {
	if root == "" {
		return s.queryMeta(ctx, `
			SELECT id, root, created_at, entries FROM snapshots
			ORDER BY created_at DESC, rowid DESC LIMIT 1
		`)
	}
	return s.queryMeta(ctx, `
		SELECT id, root, created_at, entries FROM snapshots
		WHERE root = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1
	`, root)
}

func (s *SQLiteStore) queryMeta(ctx context.Context, query string, args ...any) (Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Meta{}, ErrStoreClosed
	}

	m, err := scanMeta(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Meta{}, ErrNotFound
	}
	if err != nil {
		return Meta{}, fmt.Errorf("load snapshot: %w", err)
	}
	return m, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeta(row rowScanner) (Meta, error) {
	var m Meta
	var created string
	if err := row.Scan(&m.ID, &m.Root, &created, &m.Entries); err != nil {
		return Meta{}, err
	}
	m.CreatedAt, _ = time.Parse(timeLayout, created)
	return m, nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) ([]Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, root, created_at, entries FROM snapshots
		ORDER BY created_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var metas []Meta
	for rows.Next() {
		m, err := scanMeta(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		metas = append(metas, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return metas, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE snapshot_id = ?`, id); err != nil {
		return fmt.Errorf("delete entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return tx.Commit()
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

// rowCursor streams entries from an open query.
type rowCursor struct {
	rows *sql.Rows
	err  error
	done bool
}

// Next implements Cursor.
func (c *rowCursor) Next() (*Entry, bool) {
	if c.done {
		return nil, false
	}
	if !c.rows.Next() {
		c.err = c.rows.Err()
		c.finish()
		return nil, false
	}

	var (
		e       Entry
		mode    uint32
		modTime int64
	)
	if err := c.rows.Scan(&e.ID, &e.Path, &e.Name, &e.Dir, &e.Size, &mode, &modTime, &e.IsDir, &e.Depth); err != nil {
		c.err = fmt.Errorf("scan entry: %w", err)
		c.finish()
		return nil, false
	}
	e.Mode = fs.FileMode(mode)
	e.ModTime = time.Unix(0, modTime)
	return &e, true
}

func (c *rowCursor) finish() {
	c.done = true
	if err := c.rows.Close(); err != nil && c.err == nil {
		c.err = err
	}
}

// Err implements Cursor.
func (c *rowCursor) Err() error {
	return c.err
}

// Close implements Cursor.
func (c *rowCursor) Close() error {
	if c.done {
		return nil
	}
	c.done = true
	return c.rows.Close()
}
