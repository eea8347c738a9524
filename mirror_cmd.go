package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/bookmarksync/internal/bookmarksync"
)

func newMirrorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Inspect the bookmark mirror",
	}

	cmd.AddCommand(newMirrorShowCmd())

	return cmd
}

func newMirrorShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <guid>",
		Short: "Dump a mirror row as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())
			ctx := cmd.Context()

			store, err := bookmarksync.NewStore(ctx, cc.Cfg.Store.DBPath, cc.Logger)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer store.Close()

			guid := bookmarksync.GUID(args[0])

			row, err := store.MirrorRowByGUID(ctx, guid)
			if err != nil {
				return fmt.Errorf("looking up mirror row %s: %w", guid, err)
			}

			if row == nil {
				return fmt.Errorf("mirror show: no mirror row for guid %q", guid)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			return enc.Encode(row)
		},
	}
}
