package find

import (
	"regexp"
	"strings"

	"github.com/randalmurphal/fsquery/pkg/fsquery"
	"github.com/randalmurphal/fsquery/pkg/fsquery/snapshot"
)

// Fallback returns the builder option that turns unrecognised words into
// locate-style matches, so "fsquery find report 2024" works like locate.
func Fallback() fsquery.BuilderOption[*snapshot.Entry, string] {
	return fsquery.WithFallbackPredicate[*snapshot.Entry, string](newLocate)
}

// newLocate matches a word anywhere in the path, ignoring case. A word with
// glob characters must match the whole path instead.
func newLocate() Node {
	return newPredicate("locate", costPattern, 0.05, func(word string) (matchFunc, error) {
		if strings.HasPrefix(word, "-") {
			return nil, errDeclined
		}
		if strings.ContainsAny(word, "*?[") {
			re, err := globRegexp(word, true)
			if err != nil {
				return nil, fsquery.ErrInvalidParamName
			}
			return func(e *snapshot.Entry) (bool, error) {
				return re.MatchString(e.Path), nil
			}, nil
		}
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(word))
		return func(e *snapshot.Entry) (bool, error) {
			return re.MatchString(e.Path), nil
		}, nil
	})
}
