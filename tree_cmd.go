package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/bookmarksync/internal/bookmarksync"
)

func newTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Dump a rooted bookmark tree",
	}

	cmd.AddCommand(newTreeShowCmd())

	return cmd
}

func newTreeShowCmd() *cobra.Command {
	var local, remote bool
	var asOf int64

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Dump the local or remote tree as assembled by the tree builder",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if local == remote {
				return fmt.Errorf("tree show: exactly one of --local or --remote is required")
			}

			cc := mustCLIContext(cmd.Context())
			ctx := cmd.Context()

			store, err := bookmarksync.NewStore(ctx, cc.Cfg.Store.DBPath, cc.Logger)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer store.Close()

			refTime := asOf
			if refTime == 0 {
				refTime = time.Now().UnixMilli()
			}

			var root any

			if local {
				tree, err := bookmarksync.BuildLocalTree(ctx, store, refTime)
				if err != nil {
					return fmt.Errorf("building local tree: %w", err)
				}

				root = tree.Root
			} else {
				tree, err := bookmarksync.BuildRemoteTree(ctx, store, refTime)
				if err != nil {
					return fmt.Errorf("building remote tree: %w", err)
				}

				root = tree.Root
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			return enc.Encode(root)
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "build the local tree")
	cmd.Flags().BoolVar(&remote, "remote", false, "build the mirror (remote) tree")
	cmd.Flags().Int64Var(&asOf, "as-of", 0, "reference clock in epoch milliseconds (default: now)")

	return cmd
}
