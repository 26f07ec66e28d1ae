package snapshot

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory snapshot store for tests and small trees.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]storedSnapshot
	seq    int
	closed bool
}

type storedSnapshot struct {
	meta    Meta
	seq     int
	entries []Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]storedSnapshot),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, root string, entries []Entry) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", ErrStoreClosed
	}

	// Copy so later changes to the caller's slice are not visible.
	stored := make([]Entry, len(entries))
	copy(stored, entries)
	for i := range stored {
		stored[i].ID = int64(i + 1)
	}

	id := uuid.New().String()
	m.seq++
	m.data[id] = storedSnapshot{
		meta: Meta{
			ID:        id,
			Root:      root,
			CreatedAt: time.Now().UTC(),
			Entries:   len(stored),
		},
		seq:     m.seq,
		entries: stored,
	}
	return id, nil
}

// Open implements Store.
func (m *MemoryStore) Open(_ context.Context, id string) (Cursor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	s, ok := m.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &sliceCursor{entries: s.entries}, nil
}

// Meta implements Store.
func (m *MemoryStore) Meta(_ context.Context, id string) (Meta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Meta{}, ErrStoreClosed
	}
	s, ok := m.data[id]
	if !ok {
		return Meta{}, ErrNotFound
	}
	return s.meta, nil
}

// Latest implements Store.
func (m *MemoryStore) Latest(_ context.Context, root string) (Meta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Meta{}, ErrStoreClosed
	}
	best := -1
	var meta Meta
	for _, s := range m.data {
		if root != "" && s.meta.Root != root {
			continue
		}
		if s.seq > best {
			best, meta = s.seq, s.meta
		}
	}
	if best < 0 {
		return Meta{}, ErrNotFound
	}
	return meta, nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context) ([]Meta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	all := make([]storedSnapshot, 0, len(m.data))
	for _, s := range m.data {
		all = append(all, s)
	}
	sort.Slice(all, func(i, k int) bool { return all[i].seq > all[k].seq })

	metas := make([]Meta, len(all))
	for i, s := range all {
		metas[i] = s.meta
	}
	return metas, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.data, id)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// sliceCursor hands out pointers into a stored snapshot. Entries are never
// modified after Save, so sharing them is safe.
type sliceCursor struct {
	entries []Entry
	pos     int
}

// Next implements Cursor.
func (c *sliceCursor) Next() (*Entry, bool) {
	if c.pos >= len(c.entries) {
		return nil, false
	}
	e := &c.entries[c.pos]
	c.pos++
	return e, true
}

// Err implements Cursor.
func (c *sliceCursor) Err() error { return nil }

// Close implements Cursor.
func (c *sliceCursor) Close() error {
	c.pos = len(c.entries)
	return nil
}
