package main

import (
	"fmt"
	"io"

	"github.com/randalmurphal/fsquery/pkg/fsquery"
	"github.com/spf13/cobra"
)

func newExplainCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "explain [flags] -- EXPRESSION...",
		Short: "Show the evaluation plan chosen for an expression",
		Long: `Compile EXPRESSION exactly as find would and print the optimised tree.
Combinators marked right-first evaluate their right operand first because it
is expected to be cheaper overall.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			expr, err := a.compile(cmd.Context(), io.Discard, args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, fsquery.Format(expr))
			fmt.Fprint(out, fsquery.Explain(expr))
			return nil
		},
	}
}
