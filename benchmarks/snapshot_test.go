package benchmarks

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/randalmurphal/fsquery/pkg/fsquery/snapshot"
)

func flat(items []*snapshot.Entry) []snapshot.Entry {
	out := make([]snapshot.Entry, len(items))
	for i, e := range items {
		out[i] = *e
	}
	return out
}

func benchSave(b *testing.B, store snapshot.Store, n int) {
	data := flat(entries(n))
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id, err := store.Save(ctx, "/src", data)
		if err != nil {
			b.Fatal(err)
		}
		b.StopTimer()
		_ = store.Delete(ctx, id)
		b.StartTimer()
	}
}

func benchOpen(b *testing.B, store snapshot.Store, n int) {
	ctx := context.Background()
	id, err := store.Save(ctx, "/src", flat(entries(n)))
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cur, err := store.Open(ctx, id)
		if err != nil {
			b.Fatal(err)
		}
		for {
			if _, ok := cur.Next(); !ok {
				break
			}
		}
		if err := cur.Err(); err != nil {
			b.Fatal(err)
		}
		_ = cur.Close()
	}
}

func sqliteStore(b *testing.B) *snapshot.SQLiteStore {
	store, err := snapshot.NewSQLiteStore(filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = store.Close() })
	return store
}

// BenchmarkMemoryStore_Save_1000 saves 1000 entries.
func BenchmarkMemoryStore_Save_1000(b *testing.B) {
	benchSave(b, snapshot.NewMemoryStore(), 1000)
}

// BenchmarkMemoryStore_Open_1000 iterates 1000 saved entries.
func BenchmarkMemoryStore_Open_1000(b *testing.B) {
	benchOpen(b, snapshot.NewMemoryStore(), 1000)
}

// BenchmarkSQLiteStore_Save_1000 saves 1000 entries in one transaction.
func BenchmarkSQLiteStore_Save_1000(b *testing.B) {
	benchSave(b, sqliteStore(b), 1000)
}

// BenchmarkSQLiteStore_Open_1000 iterates 1000 saved entries.
func BenchmarkSQLiteStore_Open_1000(b *testing.B) {
	benchOpen(b, sqliteStore(b), 1000)
}

// BenchmarkScan scans a small generated tree.
func BenchmarkScan(b *testing.B) {
	root := b.TempDir()
	makeTree(b, root, 4, 10)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := snapshot.Scan(ctx, root); err != nil {
			b.Fatal(err)
		}
	}
}
