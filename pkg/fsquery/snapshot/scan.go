package snapshot

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/randalmurphal/fsquery/pkg/fsquery/observability"
	"golang.org/x/sync/errgroup"
)

// scanConfig holds Scan options.
type scanConfig struct {
	maxDepth    int
	skip        map[string]bool
	follow      bool
	concurrency int
	logger      *slog.Logger
	metrics     observability.MetricsRecorder
	spans       observability.SpanManager
}

// ScanOption configures Scan and Index.
type ScanOption func(*scanConfig)

// WithMaxDepth stops descending below depth. Negative means unlimited,
// which is the default.
func WithMaxDepth(depth int) ScanOption {
	return func(c *scanConfig) {
		c.maxDepth = depth
	}
}

// WithSkipDirs excludes directories with these base names, and everything
// below them.
func WithSkipDirs(names ...string) ScanOption {
	return func(c *scanConfig) {
		for _, n := range names {
			c.skip[n] = true
		}
	}
}

// WithFollowSymlinks records link targets instead of links and descends into
// linked directories. Each real directory is visited once.
func WithFollowSymlinks(follow bool) ScanOption {
	return func(c *scanConfig) {
		c.follow = follow
	}
}

// WithConcurrency bounds the number of subtrees walked at once.
// Default: GOMAXPROCS.
func WithConcurrency(n int) ScanOption {
	return func(c *scanConfig) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithLogger sets the logger for skipped paths. Default: slog.Default().
func WithLogger(logger *slog.Logger) ScanOption {
	return func(c *scanConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder used by Index. Default: no-op.
func WithMetrics(m observability.MetricsRecorder) ScanOption {
	return func(c *scanConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithSpans sets the span manager used by Index. Default: no-op.
func WithSpans(sm observability.SpanManager) ScanOption {
	return func(c *scanConfig) {
		if sm != nil {
			c.spans = sm
		}
	}
}

func newScanConfig(opts []ScanOption) *scanConfig {
	c := &scanConfig{
		maxDepth:    -1,
		skip:        make(map[string]bool),
		concurrency: runtime.GOMAXPROCS(0),
		logger:      slog.Default(),
		metrics:     observability.NoopMetrics{},
		spans:       observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Scan walks the tree at root and returns its entries in path order with
// IDs assigned. The root itself is the first entry.
//
// Unreadable directories are logged and skipped. A missing or unreadable
// root is an error. Top-level subtrees are walked concurrently.
func Scan(ctx context.Context, root string, opts ...ScanOption) ([]Entry, error) {
	cfg := newScanConfig(opts)
	w := &walker{cfg: cfg}

	rootEntry, err := w.stat(root, 0)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	out := []Entry{rootEntry}

	if rootEntry.IsDir && w.descend(0) {
		if !w.enter(root) {
			return finish(out), nil
		}
		top, subdirs := w.readDir(root, 1)
		out = append(out, top...)

		parts := make([][]Entry, len(subdirs))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.concurrency)
		for i, dir := range subdirs {
			g.Go(func() error {
				var local []Entry
				if err := w.walk(gctx, dir, 1, &local); err != nil {
					return err
				}
				parts[i] = local
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		for _, p := range parts {
			out = append(out, p...)
		}
	}
	return finish(out), nil
}

// finish sorts entries by path and numbers them.
func finish(entries []Entry) []Entry {
	sort.Slice(entries, func(i, k int) bool { return entries[i].Path < entries[k].Path })
	for i := range entries {
		entries[i].ID = int64(i + 1)
	}
	return entries
}

type walker struct {
	cfg     *scanConfig
	visited sync.Map // real directory path -> struct{}
}

func (w *walker) descend(depth int) bool {
	return w.cfg.maxDepth < 0 || depth < w.cfg.maxDepth
}

// enter reports whether dir has not been visited yet. Only needed when
// following links, since a plain tree has no cycles.
func (w *walker) enter(dir string) bool {
	if !w.cfg.follow {
		return true
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return false
	}
	_, seen := w.visited.LoadOrStore(resolved, struct{}{})
	return !seen
}

// walk records everything below dir, which sits at depth.
func (w *walker) walk(ctx context.Context, dir string, depth int, out *[]Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !w.descend(depth) || !w.enter(dir) {
		return nil
	}
	entries, subdirs := w.readDir(dir, depth+1)
	*out = append(*out, entries...)
	for _, sub := range subdirs {
		if err := w.walk(ctx, sub, depth+1, out); err != nil {
			return err
		}
	}
	return nil
}

// readDir lists dir's children at depth and returns them along with the
// subdirectories to descend into.
func (w *walker) readDir(dir string, depth int) ([]Entry, []string) {
	des, err := os.ReadDir(dir)
	if err != nil {
		observability.LogSnapshotSkip(w.cfg.logger, dir, err)
		return nil, nil
	}
	entries := make([]Entry, 0, len(des))
	var subdirs []string
	for _, de := range des {
		if de.IsDir() && w.cfg.skip[de.Name()] {
			continue
		}
		path := filepath.Join(dir, de.Name())
		e, err := w.entry(path, de, depth)
		if err != nil {
			observability.LogSnapshotSkip(w.cfg.logger, path, err)
			continue
		}
		entries = append(entries, e)
		if e.IsDir {
			subdirs = append(subdirs, path)
		}
	}
	return entries, subdirs
}

func (w *walker) entry(path string, de fs.DirEntry, depth int) (Entry, error) {
	if w.cfg.follow && de.Type()&fs.ModeSymlink != 0 {
		return w.stat(path, depth)
	}
	info, err := de.Info()
	if err != nil {
		return Entry{}, err
	}
	return fromInfo(path, info, depth), nil
}

func (w *walker) stat(path string, depth int) (Entry, error) {
	stat := os.Lstat
	if w.cfg.follow {
		stat = os.Stat
	}
	info, err := stat(path)
	if err != nil {
		return Entry{}, err
	}
	return fromInfo(path, info, depth), nil
}

func fromInfo(path string, info fs.FileInfo, depth int) Entry {
	return Entry{
		Path:    path,
		Name:    info.Name(),
		Dir:     filepath.Dir(path),
		Size:    info.Size(),
		Mode:    info.Mode(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
		Depth:   depth,
	}
}

// Index scans root and saves the result to store, returning the snapshot ID.
func Index(ctx context.Context, store Store, root string, opts ...ScanOption) (string, error) {
	cfg := newScanConfig(opts)
	done := observability.TimedOperation()
	ctx, span := cfg.spans.StartSnapshotSpan(ctx, root)

	id, n, err := index(ctx, store, root, opts)

	durationMs := done()
	cfg.spans.EndSpanWithError(span, err)
	if err != nil {
		return "", err
	}
	cfg.metrics.RecordSnapshot(ctx, int64(n), time.Duration(durationMs*float64(time.Millisecond)))
	observability.LogSnapshot(cfg.logger, root, n, durationMs)
	return id, nil
}

func index(ctx context.Context, store Store, root string, opts []ScanOption) (string, int, error) {
	entries, err := Scan(ctx, root, opts...)
	if err != nil {
		return "", 0, err
	}
	id, err := store.Save(ctx, root, entries)
	if err != nil {
		return "", 0, err
	}
	return id, len(entries), nil
}
