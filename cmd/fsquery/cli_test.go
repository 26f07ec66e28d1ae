package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/randalmurphal/fsquery/pkg/fsquery/find"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI with args and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// fixture indexes a small tree and returns its root and the database path.
func fixture(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"cmd/main.go":              "package main // TODO: flags\n",
		"pkg/util/strings.go":      "package util\n",
		"pkg/util/README.md":       "strings helpers\n",
		"docs/Quarterly-Report.md": strings.Repeat("x", 3000),
		".git/HEAD":                "ref: main\n",
	}
	for rel, content := range files {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(root, "empty"), 0o755))

	db := filepath.Join(t.TempDir(), "idx.db")
	out, _, err := run(t, "--db", db, "index", root)
	require.NoError(t, err)
	assert.Contains(t, out, "indexed ")
	return root, db
}

// lines returns the non-empty output lines relative to root, sorted.
func lines(t *testing.T, root, out string) []string {
	t.Helper()
	var got []string
	for _, l := range strings.Split(strings.TrimSpace(out), "\n") {
		if l == "" {
			continue
		}
		rel, err := filepath.Rel(root, l)
		require.NoError(t, err)
		got = append(got, filepath.ToSlash(rel))
	}
	sort.Strings(got)
	return got
}

func TestFind(t *testing.T) {
	root, db := fixture(t)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"name", []string{"--", "-name", "*.go"}, []string{"cmd/main.go", "pkg/util/strings.go"}},
		{"locate words", []string{"quarterly", "report"}, []string{"docs/Quarterly-Report.md"}},
		{"or with group", []string{"--", "(", "-name", "*.md", "-o", "-name", "*.go", ")", "-size", "+4"}, []string{"docs/Quarterly-Report.md"}},
		{"contains", []string{"--", "-contains", "TODO", "-name", "*.go"}, []string{"cmd/main.go"}},
		{"empty dirs", []string{"--", "-type", "d", "-empty"}, []string{"empty"}},
		{"skip dirs", []string{"--", "-name", "HEAD"}, nil},
		{"where", []string{"--", "-where", `ext == ".md" && size < 100`}, []string{"pkg/util/README.md"}},
		{"not", []string{"--", "-type", "f", "!", "-name", "*.go"}, []string{"docs/Quarterly-Report.md", "pkg/util/README.md"}},
	}
	for _, tt := range tests {
		for _, mode := range []string{"--sync", "--workers=3"} {
			t.Run(tt.name+mode, func(t *testing.T) {
				args := append([]string{"--db", db, "find", mode}, tt.args...)
				out, _, err := run(t, args...)
				require.NoError(t, err)
				assert.Equal(t, tt.want, lines(t, root, out))
			})
		}
	}
}

func TestFind_SyncKeepsPathOrder(t *testing.T) {
	root, db := fixture(t)
	out, _, err := run(t, "--db", db, "find", "--sync", "--", "-type", "f")
	require.NoError(t, err)

	got := strings.Split(strings.TrimSpace(out), "\n")
	assert.True(t, sort.StringsAreSorted(got), got)
	assert.Len(t, lines(t, root, out), 4)
}

func TestFind_Limit(t *testing.T) {
	root, db := fixture(t)

	out, stderr, err := run(t, "--db", db, "find", "--sync", "--limit", "2", "--count", "--", "-type", "f")
	require.NoError(t, err)
	assert.Len(t, lines(t, root, out), 2)
	assert.Contains(t, stderr, "2 matches")

	out, _, err = run(t, "--db", db, "find", "--sync", "--", "-type", "f", "-print", "-quit")
	require.NoError(t, err)
	assert.Len(t, lines(t, root, out), 1)
}

func TestFind_Budget(t *testing.T) {
	root, db := fixture(t)
	out, stderr, err := run(t, "--db", db, "find", "--workers", "2", "--budget", "1", "--count", "--", "-type", "f")
	require.NoError(t, err)
	assert.Len(t, lines(t, root, out), 4)
	assert.Contains(t, stderr, "4 matches")
}

func TestFind_Print0(t *testing.T) {
	_, db := fixture(t)
	out, _, err := run(t, "--db", db, "find", "--sync", "--", "-name", "*.go", "-print0")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "\x00"))
	assert.NotContains(t, out, "\n")
}

func TestFind_Errors(t *testing.T) {
	_, db := fixture(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown option", []string{"--", "-bogus"}, "unknown node name"},
		{"bad size", []string{"--", "-size", "huge"}, "not a number"},
		{"unbalanced", []string{"--", "(", "-true"}, "parentheses mismatch"},
		{"dangling bridge", []string{"--", "-true", "-o"}, "missing predicate"},
		{"unknown snapshot", []string{"--snapshot", "nope", "--", "-true"}, "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--db", db, "find"}, tt.args...)
			_, _, err := run(t, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFind_NoSnapshot(t *testing.T) {
	db := filepath.Join(t.TempDir(), "idx.db")
	_, _, err := run(t, "--db", db, "find", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fsquery index")
}

func TestFind_RootSelectsSnapshot(t *testing.T) {
	root, db := fixture(t)
	other := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(other, "lonely.go"), nil, 0o644))
	_, _, err := run(t, "--db", db, "index", other)
	require.NoError(t, err)

	out, _, err := run(t, "--db", db, "find", "--sync", "--root", root, "--", "-name", "*.go")
	require.NoError(t, err)
	assert.Len(t, lines(t, root, out), 2)

	out, _, err = run(t, "--db", db, "find", "--sync", "--", "-name", "*.go")
	require.NoError(t, err)
	assert.Equal(t, []string{"lonely.go"}, lines(t, other, out))
}

func TestExplain(t *testing.T) {
	out, _, err := run(t, "--db", filepath.Join(t.TempDir(), "x.db"), "explain", "--", "-contains", "TODO", "-name", "*.go")
	require.NoError(t, err)
	assert.Contains(t, out, "-print")
	assert.Contains(t, out, "right-first")
	assert.Contains(t, out, "-contains TODO")
}

func TestExplain_FallbackBridgeSetting(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "fsquery.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("fallback_bridge: -or\n"), 0o644))

	out, _, err := run(t, "--config", cfg, "--db", filepath.Join(t.TempDir(), "x.db"), "explain", "a", "b")
	require.NoError(t, err)
	assert.Contains(t, out, "-or")
}

func TestIndex_Prunes(t *testing.T) {
	root, db := fixture(t)

	out, _, err := run(t, "--db", db, "index", root)
	require.NoError(t, err)
	assert.Contains(t, out, "1 older removed")

	_, _, err = run(t, "--db", db, "index", "--keep", root)
	require.NoError(t, err)

	out, _, err = run(t, "--db", db, "snapshots")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, root))
}

func TestIndex_Timeout(t *testing.T) {
	root, db := fixture(t)

	_, _, err := run(t, "--db", db, "index", "--timeout", "1ns", root)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, _, err = run(t, "--db", db, "index", "--timeout", "1m", root)
	require.NoError(t, err)
}

func TestSnapshotsRm(t *testing.T) {
	_, db := fixture(t)
	_, _, err := run(t, "--db", db, "snapshots", "rm", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestInvalidSettings(t *testing.T) {
	_, _, err := run(t, "--db", filepath.Join(t.TempDir(), "x.db"), "--color", "rainbow", "explain", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "color")
}

func TestTrace(t *testing.T) {
	_, stderr, err := run(t, "--trace", "--db", filepath.Join(t.TempDir(), "x.db"), "explain", "x")
	require.NoError(t, err)
	assert.Contains(t, stderr, "fsquery.build")
}

func TestWithImplicitPrint(t *testing.T) {
	v := find.NewVocabulary(find.WithOutput(io.Discard))
	cases := map[string]string{
		"":               "-print",
		"-name x":        "( -name x ) -and -print",
		"-name x -print": "-name x -print",
		"-true -o -quit": "-true -o -quit",
	}
	for in, want := range cases {
		assert.Equal(t, want, strings.Join(withImplicitPrint(v, strings.Fields(in)), " "), in)
	}
}
