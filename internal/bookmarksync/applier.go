package bookmarksync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tonimelisma/bookmarksync/internal/bookmarksync/treemerge"
)

// translateUploadReason maps the merge package's UploadReason onto this
// package's own enum by name rather than by bare numeric conversion: the two
// types are declared independently (treemerge has no dependency on
// bookmarksync) and are not guaranteed to stay numerically aligned, so a
// raw int cast would silently corrupt every value past the point the two
// enums diverge (e.g. UploadDuplicateResolution being persisted as
// UploadWeak). An unrecognized value is a programming error, not a
// recoverable per-record condition, so it's returned as an error rather
// than defaulted.
func translateUploadReason(r treemerge.UploadReason) (UploadReason, error) {
	switch r {
	case treemerge.UploadNone:
		return UploadNone, nil
	case treemerge.UploadLocalChange:
		return UploadLocalChange, nil
	case treemerge.UploadWeak:
		return UploadWeak, nil
	case treemerge.UploadDuplicateResolution:
		return UploadDuplicateResolution, nil
	default:
		return UploadNone, fmt.Errorf("bookmarksync: unrecognized merge upload reason %d", r)
	}
}

// ApplyMergeResult runs the Applier (spec §4.7) inside tx: it populates the
// merge/delete staging tables from the merger's output, fires the
// store-side trigger-equivalents that transform the local tree to match,
// and stages outgoing upload rows. Must be called within a single
// transaction; the caller commits or rolls back as a unit (spec §5).
func ApplyMergeResult(ctx context.Context, tx StoreTx, result *treemerge.Result, logger *slog.Logger) error {
	if len(result.Descendants) == 0 && len(result.Deletions) == 0 {
		logger.Debug("applier: no changes, skipping apply")
		return nil
	}

	logger.Info("applier: starting",
		slog.Int("descendants", len(result.Descendants)),
		slog.Int("deletions", len(result.Deletions)),
	)

	phases := []struct {
		name string
		run  func(context.Context) error
	}{
		{"populate_merge_table", func(c context.Context) error {
			for _, d := range result.Descendants {
				reason, err := translateUploadReason(d.UploadReason)
				if err != nil {
					return fmt.Errorf("bookmarksync: descendant %s: %w", d.MergedGUID, err)
				}
				md := &MergedDescendant{
					MergedGUID:       GUID(d.MergedGUID),
					MergedParentGUID: GUID(d.MergedParentGUID),
					Level:            d.Level,
					Position:         d.Position,
					State: MergeState{
						LocalNode:    d.LocalNode,
						RemoteNode:   d.RemoteNode,
						ShouldApply:  d.ShouldApply,
						UploadReason: reason,
					},
				}
				if err := tx.InsertMergedDescendant(c, md); err != nil {
					return err
				}
			}
			return nil
		}},
		{"populate_delete_table", func(c context.Context) error {
			for _, del := range result.Deletions {
				dd := &Deletion{
					GUID:                  GUID(del.GUID),
					LocalLevel:            del.LocalLevel,
					ShouldUploadTombstone: del.ShouldUploadTombstone,
				}
				if err := tx.InsertDeletion(c, dd); err != nil {
					return err
				}
			}
			return nil
		}},
		{"apply_merged_tree", tx.ApplyMergedTree},
		{"apply_deletions", tx.ApplyDeletions},
		{"stage_weak_uploads", tx.StageWeakUploads},
		{"stage_upload_rows", tx.StageUploadRows},
		{"stage_upload_structure", tx.StageUploadStructure},
		{"stage_tombstone_uploads", tx.StageTombstoneUploads},
	}

	for _, phase := range phases {
		if err := phase.run(ctx); err != nil {
			return fmt.Errorf("bookmarksync: applier phase %s: %w", phase.name, err)
		}
		logger.Debug("applier: phase complete", slog.String("phase", phase.name))
	}

	logger.Info("applier: complete")
	return nil
}
