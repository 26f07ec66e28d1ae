package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/randalmurphal/fsquery/pkg/fsquery/snapshot"
	"github.com/spf13/cobra"
)

func newIndexCmd(a *app) *cobra.Command {
	var (
		keep     bool
		maxDepth int
		follow   bool
		skip     []string
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "index [ROOT]",
		Short: "Scan a directory tree and save it as a new snapshot",
		Long: `Scan ROOT (default ".") and save every entry below it as a new snapshot.
Older snapshots of the same root are removed unless --keep is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			root, err := filepath.Abs(root)
			if err != nil {
				return err
			}

			s := a.settings
			if cmd.Flags().Changed("max-depth") {
				s.MaxDepth = maxDepth
			}
			if cmd.Flags().Changed("follow") {
				s.FollowSymlinks = follow
			}
			if cmd.Flags().Changed("skip") {
				s.SkipDirs = skip
			}
			if cmd.Flags().Changed("timeout") {
				s.ScanTimeout = timeout
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			if s.ScanTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, s.ScanTimeout)
				defer cancel()
			}
			start := time.Now()
			id, err := snapshot.Index(ctx, store, root,
				snapshot.WithMaxDepth(s.MaxDepth),
				snapshot.WithSkipDirs(s.SkipDirs...),
				snapshot.WithFollowSymlinks(s.FollowSymlinks),
				snapshot.WithConcurrency(s.Workers),
				snapshot.WithLogger(a.logger),
				snapshot.WithMetrics(a.metrics),
				snapshot.WithSpans(a.spans),
			)
			if err != nil {
				return err
			}
			meta, err := store.Meta(ctx, id)
			if err != nil {
				return err
			}

			pruned := 0
			if !keep {
				if pruned, err = prune(cmd, store, root, id); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "indexed %s entries under %s in %s (snapshot %s",
				humanize.Comma(int64(meta.Entries)), root, time.Since(start).Round(time.Millisecond), id)
			if pruned > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), ", %d older removed", pruned)
			}
			fmt.Fprintln(cmd.OutOrStdout(), ")")
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&keep, "keep", false, "keep older snapshots of the same root")
	f.IntVar(&maxDepth, "max-depth", -1, "do not descend below this depth (-1 for unlimited)")
	f.BoolVar(&follow, "follow", false, "follow symbolic links")
	f.StringSliceVar(&skip, "skip", nil, "directory names to skip (replaces the configured list)")
	f.DurationVar(&timeout, "timeout", 0, "give up scanning after this long (0 for no limit)")
	return cmd
}

// prune deletes every snapshot of root other than keepID.
func prune(cmd *cobra.Command, store snapshot.Store, root, keepID string) (int, error) {
	metas, err := store.List(cmd.Context())
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range metas {
		if m.Root != root || m.ID == keepID {
			continue
		}
		if err := store.Delete(cmd.Context(), m.ID); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
