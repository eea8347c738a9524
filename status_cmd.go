package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/bookmarksync/internal/bookmarksync"
)

// statusReport summarizes the state of the bookmark mirror for the
// `status` command: pending-upload counts, unresolved validity counts,
// and the last-sync checkpoint.
type statusReport struct {
	LastSyncTime  int64 `json:"last_sync_time"`
	PendingUpload int   `json:"pending_upload"`
	ReuploadCount int   `json:"reupload_count"`
	ReplaceCount  int   `json:"replace_count"`
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pending-upload counts, unresolved validity counts, and the last sync time",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())
			ctx := cmd.Context()

			store, err := bookmarksync.NewStore(ctx, cc.Cfg.Store.DBPath, cc.Logger)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer store.Close()

			report, err := buildStatusReport(ctx, store)
			if err != nil {
				return err
			}

			if flagJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")

				return enc.Encode(report)
			}

			printStatusText(report)

			return nil
		},
	}
}

func buildStatusReport(ctx context.Context, store *bookmarksync.SQLiteStore) (*statusReport, error) {
	last, err := bookmarksync.LastSyncTime(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("reading last sync time: %w", err)
	}

	report := &statusReport{LastSyncTime: last}

	rows, err := store.AllMirrorRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading mirror rows: %w", err)
	}

	for _, r := range rows {
		switch r.Validity {
		case bookmarksync.Reupload:
			report.ReuploadCount++
		case bookmarksync.Replace:
			report.ReplaceCount++
		}
	}

	err = store.WithTx(ctx, func(tx bookmarksync.StoreTx) error {
		pending, err := tx.UploadRows(ctx)
		if err != nil {
			return err
		}

		report.PendingUpload = len(pending)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading pending uploads: %w", err)
	}

	return report, nil
}

func printStatusText(r *statusReport) {
	fmt.Printf("last sync time:  %d\n", r.LastSyncTime)
	fmt.Printf("pending upload:  %d\n", r.PendingUpload)
	fmt.Printf("reupload rows:   %d\n", r.ReuploadCount)
	fmt.Printf("replace rows:    %d\n", r.ReplaceCount)
}
