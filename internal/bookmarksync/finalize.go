package bookmarksync

import (
	"context"
	"fmt"
	"log/slog"
)

// metaLastSyncTime is the persisted-meta key holding the server's
// high-watermark timestamp (spec §6), advanced at two points per cycle:
// once after ingestion commits, once after finalization commits.
const metaLastSyncTime = "bookmarks_last_sync_time"

// Finalize runs after the uploader acknowledges a set of GUIDs (spec
// §4.9): each acknowledged row's pushUploadedChanges-equivalent fires
// (decrementing its syncChangeCounter by the snapshot captured at staging
// time and updating syncStatus to Normal; the mirror row is not modified),
// the new server timestamp is persisted, and the upload staging table is
// cleared.
// Must run inside a single transaction; on error the caller rolls back and
// local change counters remain set so the next sync retries (spec §7).
func Finalize(ctx context.Context, tx StoreTx, ackedGUIDs []GUID, newServerTime int64, logger *slog.Logger) error {
	acked := make(map[GUID]bool, len(ackedGUIDs))
	for _, g := range ackedGUIDs {
		acked[g] = true
	}

	staged, err := tx.UploadRows(ctx)
	if err != nil {
		return fmt.Errorf("bookmarksync: reading staged uploads for finalize: %w", err)
	}

	var markedCount int
	for _, row := range staged {
		if !acked[row.GUID] {
			continue
		}
		if err := tx.MarkUploaded(ctx, row.GUID); err != nil {
			return fmt.Errorf("bookmarksync: marking %s uploaded: %w", row.GUID, err)
		}
		markedCount++
	}

	if err := tx.SetMeta(ctx, metaLastSyncTime, fmt.Sprintf("%d", newServerTime)); err != nil {
		return fmt.Errorf("bookmarksync: persisting last-sync time: %w", err)
	}

	if err := tx.ClearUploadStaging(ctx); err != nil {
		return fmt.Errorf("bookmarksync: clearing upload staging: %w", err)
	}

	logger.Info("finalizer: complete",
		slog.Int("acked", len(ackedGUIDs)),
		slog.Int("marked", markedCount),
		slog.Int64("new_server_time", newServerTime),
	)
	return nil
}

// PersistIngestionCheckpoint advances bookmarks_last_sync_time after the
// incoming batch has committed but before merge runs (spec §5: "the
// bookmarks_last_sync_time is only advanced after ingestion commits and,
// separately, after finalization commits").
func PersistIngestionCheckpoint(ctx context.Context, store Store, serverTime int64) error {
	return store.SetMeta(ctx, metaLastSyncTime, fmt.Sprintf("%d", serverTime))
}

// LastSyncTime reads the persisted high-watermark, used to build the
// collection request's `since` parameter (spec §6).
func LastSyncTime(ctx context.Context, store Store) (int64, error) {
	val, ok, err := store.GetMeta(ctx, metaLastSyncTime)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	var t int64
	if _, err := fmt.Sscanf(val, "%d", &t); err != nil {
		return 0, fmt.Errorf("bookmarksync: parsing last-sync time %q: %w", val, err)
	}
	return t, nil
}
