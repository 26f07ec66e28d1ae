package main

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"

	"github.com/randalmurphal/fsquery/pkg/fsquery"
	"github.com/randalmurphal/fsquery/pkg/fsquery/pool"
	"github.com/randalmurphal/fsquery/pkg/fsquery/snapshot"
	"github.com/spf13/cobra"
)

func newFindCmd(a *app) *cobra.Command {
	var (
		root   string
		snapID string
		limit  int
		budget int
		sync   bool
		count  bool
	)
	cmd := &cobra.Command{
		Use:   "find [flags] -- EXPRESSION...",
		Short: "Search the latest snapshot with a find expression",
		Long: `Evaluate EXPRESSION against every entry of a snapshot, in path order.

Cheap tests run inline; tests that touch the disk again (-contains, -empty
on directories) and actions run on --workers goroutines, so output order is
not guaranteed unless --sync is given. Without an action the expression is
followed by -print.`,
		Example: `  fsquery find -- -name '*.go' -size +10k
  fsquery find -- -type d -empty
  fsquery find --sync -- -where 'size > 1e6 && ext == ".log"' -print -quit
  fsquery find invoice 2024`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if snapID == "" {
				if root != "" {
					if root, err = filepath.Abs(root); err != nil {
						return err
					}
				}
				meta, err := store.Latest(ctx, root)
				if errors.Is(err, snapshot.ErrNotFound) {
					return errors.New("no snapshot found; run 'fsquery index' first")
				}
				if err != nil {
					return err
				}
				snapID = meta.ID
			}

			expr, err := a.compile(ctx, cmd.OutOrStdout(), args)
			if err != nil {
				return err
			}
			cursor, err := store.Open(ctx, snapID)
			if err != nil {
				return err
			}
			defer cursor.Close()

			var matches int
			if sync {
				matches, err = a.walk(cmd, expr, cursor, limit)
			} else {
				if budget <= 0 {
					budget = a.settings.Budget
				}
				matches, err = a.run(cmd, expr, cursor, limit, budget)
			}
			if err != nil {
				return err
			}
			if err := cursor.Err(); err != nil {
				return err
			}
			if count {
				fmt.Fprintln(cmd.ErrOrStderr(), matches, "matches")
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&root, "root", "", "search the latest snapshot of this root (default: latest of any root)")
	f.StringVar(&snapID, "snapshot", "", "search this snapshot ID")
	f.IntVar(&limit, "limit", 0, "stop after this many matches (0 for no limit)")
	f.IntVar(&budget, "budget", 0, "matches delivered per scheduling round (default from settings)")
	f.BoolVar(&sync, "sync", false, "evaluate on one goroutine, keeping path order")
	f.BoolVar(&count, "count", false, "report the number of matches on stderr")
	return cmd
}

// walk evaluates every entry exactly, in order.
func (a *app) walk(cmd *cobra.Command, expr fsquery.Node[*snapshot.Entry, string], it fsquery.Iterator[*snapshot.Entry], limit int) (int, error) {
	matches := 0
	err := fsquery.Walk[*snapshot.Entry, string](cmd.Context(), expr, it, func(*snapshot.Entry) error {
		matches++
		if limit > 0 && matches >= limit {
			return fsquery.ErrQuit
		}
		return nil
	})
	return matches, err
}

// run drives a Job in budgeted rounds until the snapshot is exhausted or
// limit matches have been delivered. Deferred evaluations already running
// when the limit is hit may still print.
func (a *app) run(cmd *cobra.Command, expr fsquery.Node[*snapshot.Entry, string], it fsquery.Iterator[*snapshot.Entry], limit, budget int) (int, error) {
	p := pool.New(a.settings.Workers, pool.WithLogger(a.logger))
	defer p.Close()

	job := fsquery.NewJob[*snapshot.Entry, string](expr, it,
		fsquery.WithJobLogger(a.logger),
		fsquery.WithJobMetrics(a.metrics),
		fsquery.WithJobSpans(a.spans))
	defer job.Close()

	if budget <= 0 {
		budget = math.MaxInt
	}
	matches := 0
	onMatch := func(*snapshot.Entry) { matches++ }
	for !job.Done() {
		round := budget
		if limit > 0 {
			round = min(round, limit-matches)
		}
		if err := job.Start(cmd.Context(), p, onMatch, round); err != nil {
			return matches, err
		}
		if err := job.Join(); err != nil {
			return matches, err
		}
		a.logger.Debug("round finished", "job_id", job.ID(), "matches", matches, "stashed", job.Stashed())
		if limit > 0 && matches >= limit {
			break
		}
	}
	return matches, nil
}
