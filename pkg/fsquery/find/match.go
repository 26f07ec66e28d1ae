package find

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/randalmurphal/fsquery/pkg/fsquery"
	"github.com/randalmurphal/fsquery/pkg/fsquery/snapshot"
)

func newName(name string, fold bool) Node {
	return newPredicate(name, costMeta, 0.1, func(pattern string) (matchFunc, error) {
		if fold {
			pattern = strings.ToLower(pattern)
		}
		if _, err := filepath.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("%w: %w", fsquery.ErrInvalidParamName, err)
		}
		return func(e *snapshot.Entry) (bool, error) {
			n := e.Name
			if fold {
				n = strings.ToLower(n)
			}
			return filepath.Match(pattern, n)
		}, nil
	})
}

func newPath(name string, fold bool) Node {
	return newPredicate(name, costPattern, 0.1, func(pattern string) (matchFunc, error) {
		re, err := globRegexp(pattern, fold)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", fsquery.ErrInvalidParamName, err)
		}
		return func(e *snapshot.Entry) (bool, error) {
			return re.MatchString(e.Path), nil
		}, nil
	})
}

// newRegex matches the whole path, as find(1) does.
func newRegex(name string, fold bool) Node {
	return newPredicate(name, costPattern, 0.1, func(pattern string) (matchFunc, error) {
		expr := `^(?:` + pattern + `)$`
		if fold {
			expr = `(?i)` + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", fsquery.ErrInvalidParamName, err)
		}
		return func(e *snapshot.Entry) (bool, error) {
			return re.MatchString(e.Path), nil
		}, nil
	})
}

// globRegexp translates a shell pattern to an anchored regexp in which '*'
// also matches '/'.
func globRegexp(pattern string, fold bool) (*regexp.Regexp, error) {
	var b strings.Builder
	if fold {
		b.WriteString("(?i)")
	}
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '\\':
			if i+1 < len(pattern) {
				i++
				b.WriteString(regexp.QuoteMeta(pattern[i : i+1]))
			} else {
				b.WriteString(`\\`)
			}
		case '[':
			end := strings.IndexByte(pattern[i+1:], ']')
			if end < 0 {
				return nil, filepath.ErrBadPattern
			}
			class := pattern[i+1 : i+1+end]
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			b.WriteString("[" + strings.ReplaceAll(class, `\`, `\\`) + "]")
			i += end + 1
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

func newType() Node {
	return newPredicate("-type", costMeta, 0.5, func(arg string) (matchFunc, error) {
		want := make(map[byte]bool)
		for _, t := range strings.Split(arg, ",") {
			if len(t) != 1 || !strings.Contains("fdlpscb", t) {
				return nil, fmt.Errorf("%w: unknown type %q", fsquery.ErrInvalidParamName, t)
			}
			want[t[0]] = true
		}
		return func(e *snapshot.Entry) (bool, error) {
			return want[e.TypeChar()], nil
		}, nil
	})
}

var sizeUnits = map[byte]int64{
	'c': 1,
	'w': 2,
	'b': 512,
	'k': 1 << 10,
	'M': 1 << 20,
	'G': 1 << 30,
}

// newSize follows find(1): sizes are rounded up to whole units and the
// default unit is a 512-byte block.
func newSize() Node {
	return newPredicate("-size", costMeta, 0.3, func(arg string) (matchFunc, error) {
		cmp, n, unit, err := parseSize(arg)
		if err != nil {
			return nil, err
		}
		return func(e *snapshot.Entry) (bool, error) {
			units := (e.Size + unit - 1) / unit
			switch cmp {
			case '+':
				return units > n, nil
			case '-':
				return units < n, nil
			default:
				return units == n, nil
			}
		}, nil
	})
}

func parseSize(arg string) (cmp byte, n, unit int64, err error) {
	s := arg
	if s != "" && (s[0] == '+' || s[0] == '-') {
		cmp, s = s[0], s[1:]
	}
	unit = 512
	if s != "" {
		if u, ok := sizeUnits[s[len(s)-1]]; ok {
			unit, s = u, s[:len(s)-1]
		}
	}
	n, err = strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, 0, 0, fsquery.ErrNotANumber
	}
	return cmp, n, unit, nil
}

// newEmpty matches empty regular files and directories without children.
// Files are decided from the snapshot; directories need a read.
func newEmpty() Node {
	p := newPredicate("-empty", costReadDir, 0.05, nil)
	p.blocking = true
	p.quick = func(e *snapshot.Entry, _ string) fsquery.Tribool {
		if e.IsDir {
			return fsquery.Uncertain
		}
		return fsquery.FromBool(e.Mode.IsRegular() && e.Size == 0)
	}
	p.match = func(e *snapshot.Entry) (bool, error) {
		if !e.IsDir {
			return e.Mode.IsRegular() && e.Size == 0, nil
		}
		return dirEmpty(e.Path)
	}
	return p
}

func dirEmpty(dir string) (bool, error) {
	f, err := os.Open(dir)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}

// newDepth keeps entries at or above a depth, or at or below it when upper.
func newDepth(name string, upper bool) Node {
	return newPredicate(name, costMeta, 0.5, func(arg string) (matchFunc, error) {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 {
			return nil, fsquery.ErrNotANumber
		}
		return func(e *snapshot.Entry) (bool, error) {
			if upper {
				return e.Depth <= n, nil
			}
			return e.Depth >= n, nil
		}, nil
	})
}

// newNewerThan matches entries modified within a duration such as "24h".
func newNewerThan(now func() time.Time) Node {
	return newPredicate("-newer-than", costMeta, 0.2, func(arg string) (matchFunc, error) {
		d, err := time.ParseDuration(arg)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", fsquery.ErrNotANumber, err)
		}
		return func(e *snapshot.Entry) (bool, error) {
			return e.ModTime.After(now().Add(-d)), nil
		}, nil
	})
}
