package find

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/randalmurphal/fsquery/pkg/fsquery"
	"github.com/randalmurphal/fsquery/pkg/fsquery/snapshot"
)

const readChunk = 64 << 10

// newContains matches regular files whose content includes a literal
// string. Reading is deferred to ApplyBlocked; non-regular entries and
// files shorter than the string are rejected without blocking.
func newContains() Node {
	p := newPredicate("-contains", costContent, 0.05, func(arg string) (matchFunc, error) {
		if arg == "" {
			return nil, fmt.Errorf("%w: empty search string", fsquery.ErrInvalidParamName)
		}
		needle := []byte(arg)
		return func(e *snapshot.Entry) (bool, error) {
			if !e.Mode.IsRegular() || e.Size < int64(len(needle)) {
				return false, nil
			}
			return fileContains(e.Path, needle)
		}, nil
	})
	p.blocking = true
	p.quick = func(e *snapshot.Entry, arg string) fsquery.Tribool {
		if !e.Mode.IsRegular() || e.Size < int64(len(arg)) {
			return fsquery.False
		}
		return fsquery.Uncertain
	}
	return p
}

// fileContains streams path looking for needle. A file removed since the
// snapshot was taken does not match.
func fileContains(path string, needle []byte) (bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	chunk := make([]byte, readChunk)
	var window []byte
	for {
		n, err := f.Read(chunk)
		if n > 0 {
			window = append(window, chunk[:n]...)
			if bytes.Contains(window, needle) {
				return true, nil
			}
			// Keep just enough tail for a match spanning two reads.
			keep := min(len(needle)-1, len(window))
			window = append(window[:0], window[len(window)-keep:]...)
		}
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
	}
}

// whereEnv is the environment -where expressions see.
type whereEnv struct {
	Name    string    `expr:"name"`
	Path    string    `expr:"path"`
	Dir     string    `expr:"dir"`
	Ext     string    `expr:"ext"`
	Type    string    `expr:"type"`
	Size    int64     `expr:"size"`
	Depth   int       `expr:"depth"`
	Mode    uint32    `expr:"mode"`
	ModTime time.Time `expr:"mtime"`
	IsDir   bool      `expr:"isdir"`
}

func envFor(e *snapshot.Entry) whereEnv {
	return whereEnv{
		Name:    e.Name,
		Path:    e.Path,
		Dir:     e.Dir,
		Ext:     filepath.Ext(e.Name),
		Type:    string(e.TypeChar()),
		Size:    e.Size,
		Depth:   e.Depth,
		Mode:    uint32(e.Mode.Perm()),
		ModTime: e.ModTime,
		IsDir:   e.IsDir,
	}
}

// newWhere compiles a boolean expr-lang expression over entry fields, for
// example: size > 1024 && ext == ".go".
func newWhere() Node {
	return newPredicate("-where", costExpr, 0.3, func(src string) (matchFunc, error) {
		program, err := expr.Compile(src, expr.Env(whereEnv{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", fsquery.ErrInvalidParamName, err)
		}
		return func(e *snapshot.Entry) (bool, error) {
			out, err := vm.Run(program, envFor(e))
			if err != nil {
				return false, err
			}
			ok, _ := out.(bool)
			return ok, nil
		}, nil
	})
}
