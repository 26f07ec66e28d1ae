package main

import (
	"context"
	"io"

	"github.com/randalmurphal/fsquery/pkg/fsquery"
	"github.com/randalmurphal/fsquery/pkg/fsquery/find"
	"github.com/randalmurphal/fsquery/pkg/fsquery/snapshot"
)

// withImplicitPrint appends -print when the expression has no action, as
// find(1) does. The original expression is grouped and joined with an
// explicit -and, so the configured fallback bridge cannot change its meaning.
func withImplicitPrint(v *find.Vocabulary, tokens []string) []string {
	if v.HasAction(tokens) {
		return tokens
	}
	if len(tokens) == 0 {
		return []string{"-print"}
	}
	out := make([]string, 0, len(tokens)+4)
	out = append(out, "(")
	out = append(out, tokens...)
	return append(out, ")", "-and", "-print")
}

// compile builds the optimised expression for tokens, printing to out.
func (a *app) compile(ctx context.Context, out io.Writer, tokens []string) (find.Node, error) {
	v := find.NewVocabulary(find.WithOutput(out), find.WithColor(a.colored()))
	bridge, err := v.FallbackBridge(a.settings.FallbackBridge)
	if err != nil {
		return nil, err
	}
	b := v.NewBuilder(
		bridge,
		find.Fallback(),
		fsquery.WithBuilderLogger[*snapshot.Entry, string](a.logger),
		fsquery.WithBuilderMetrics[*snapshot.Entry, string](a.metrics),
		fsquery.WithBuilderSpans[*snapshot.Entry, string](a.spans),
	)
	return b.Compile(ctx, withImplicitPrint(v, tokens))
}
