package bookmarksync

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Staging tables back the Applier's intermediate state (spec §4.7):
// mergedTree and itemsToRemove hold the merger's raw output; itemsToUpload,
// structureToUpload, and idsToWeaklyUpload hold what the apply phases
// decide needs to go out over the wire. They are ordinary tables rather
// than SQLite TEMP tables so a crash mid-cycle leaves inspectable state,
// cleared explicitly by ClearUploadStaging once the finalizer commits.
//
// The "triggers" the original store fires when merged/delete rows are
// inserted are modeled here as explicit Go methods (ApplyMergedTree,
// ApplyDeletions, ...) called by the Applier in sequence, rather than as
// SQL CREATE TRIGGER bodies: the transform logic is exercised directly in
// Go, where it can be tested and stepped through, instead of living inside
// opaque trigger bodies (see DESIGN.md).

func (t *sqliteTx) InsertMergedDescendant(ctx context.Context, d *MergedDescendant) error {
	_, err := t.tx.ExecContext(ctx, `
INSERT INTO mergedTree (mergedGuid, mergedParentGuid, level, position, localNode, remoteNode, shouldApply, uploadReason)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(d.MergedGUID), string(d.MergedParentGUID), d.Level, d.Position,
		d.State.LocalNode, d.State.RemoteNode, d.State.ShouldApply, d.State.UploadReason)
	if err != nil {
		return fmt.Errorf("bookmarksync: staging merged descendant %s: %w", d.MergedGUID, err)
	}
	return nil
}

func (t *sqliteTx) InsertDeletion(ctx context.Context, d *Deletion) error {
	_, err := t.tx.ExecContext(ctx, `
INSERT INTO itemsToRemove (guid, localLevel, shouldUploadTombstone) VALUES (?, ?, ?)`,
		string(d.GUID), d.LocalLevel, d.ShouldUploadTombstone)
	if err != nil {
		return fmt.Errorf("bookmarksync: staging deletion %s: %w", d.GUID, err)
	}
	return nil
}

// ApplyMergedTree rewrites the local bookmarks table to match mergedTree:
// for every row the merger marked shouldApply, it upserts the local row's
// parent/position/kind/title/place from whichever side the merger picked.
// An existing row keeps its syncChangeCounter, so a local change staged
// for upload stays pending until the uploader acknowledges it.
func (t *sqliteTx) ApplyMergedTree(ctx context.Context) error {
	rows, err := t.tx.QueryContext(ctx, `
SELECT mt.mergedGuid, mt.mergedParentGuid, mt.level, mt.position, mt.remoteNode, mt.uploadReason
FROM mergedTree mt WHERE mt.shouldApply = 1 ORDER BY mt.level, mt.position`)
	if err != nil {
		return fmt.Errorf("bookmarksync: reading merged tree: %w", err)
	}
	defer rows.Close()

	type applyRow struct {
		guid, parent GUID
		level, pos   int
		remoteWon    bool
		reason       UploadReason
	}
	var toApply []applyRow
	for rows.Next() {
		var guid, parent string
		var ar applyRow
		if err := rows.Scan(&guid, &parent, &ar.level, &ar.pos, &ar.remoteWon, &ar.reason); err != nil {
			return fmt.Errorf("bookmarksync: scanning merged tree row: %w", err)
		}
		ar.guid, ar.parent = GUID(guid), GUID(parent)
		toApply = append(toApply, ar)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, ar := range toApply {
		var source *MirrorRow
		var local *LocalRow
		if ar.remoteWon {
			source, err = t.MirrorRowByGUID(ctx, ar.guid)
			if err != nil {
				return err
			}
		}
		local = t.localRowByGUIDTx(ctx, ar.guid)

		if source != nil {
			if err := t.upsertLocalFromMirror(ctx, ar.guid, ar.parent, ar.pos, source); err != nil {
				return err
			}
		} else if local != nil {
			if err := t.repositionLocal(ctx, ar.guid, ar.parent, ar.pos); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *sqliteTx) localRowByGUIDTx(ctx context.Context, guid GUID) *LocalRow {
	row := t.tx.QueryRowContext(ctx, `
SELECT id, guid, parentId, position, kind, title, placeId, dateAdded, lastModified, syncChangeCounter, syncStatus
FROM bookmarks WHERE guid = ?`, string(guid))
	r := &LocalRow{}
	var g string
	var title sql.NullString
	if err := row.Scan(&r.ID, &g, &r.ParentID, &r.Position, &r.Kind, &title,
		&r.PlaceID, &r.DateAdded, &r.LastModified, &r.SyncChangeCounter, &r.SyncStatus); err != nil {
		return nil
	}
	r.GUID = GUID(g)
	r.Title = title.String
	return r
}

// localParentID resolves guid to the local row id a child's parentId column
// should reference. RootGUID is the synthetic root (id 0 in the bookmarks
// table, never a real row, per BuildLocalTree): the five reserved-root
// folders (menu, toolbar, unfiled, mobile) are themselves top-level merged
// descendants parented at RootGUID, so this must special-case it rather
// than query for a row that will never exist.
func (t *sqliteTx) localParentID(ctx context.Context, guid GUID) (int64, error) {
	if guid == RootGUID {
		return 0, nil
	}
	var id int64
	err := t.tx.QueryRowContext(ctx, `SELECT id FROM bookmarks WHERE guid = ?`, string(guid)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("bookmarksync: resolving local parent %s: %w", guid, err)
	}
	return id, nil
}

func (t *sqliteTx) upsertLocalFromMirror(ctx context.Context, guid, parent GUID, position int, m *MirrorRow) error {
	parentID, err := t.localParentID(ctx, parent)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `
INSERT INTO bookmarks (guid, parentId, position, kind, title, placeId, dateAdded, lastModified, syncChangeCounter, syncStatus)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
ON CONFLICT(guid) DO UPDATE SET
  parentId = excluded.parentId, position = excluded.position, kind = excluded.kind,
  title = excluded.title, placeId = excluded.placeId, lastModified = excluded.lastModified,
  syncStatus = excluded.syncStatus`,
		string(guid), parentID, position, m.Kind, nullableString(m.Title), m.PlaceID,
		m.DateAdded, m.ServerModified, SyncStatusNormal)
	if err != nil {
		return fmt.Errorf("bookmarksync: applying merged row %s from remote: %w", guid, err)
	}
	return nil
}

func (t *sqliteTx) repositionLocal(ctx context.Context, guid, parent GUID, position int) error {
	parentID, err := t.localParentID(ctx, parent)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `UPDATE bookmarks SET parentId = ?, position = ? WHERE guid = ?`,
		parentID, position, string(guid))
	if err != nil {
		return fmt.Errorf("bookmarksync: repositioning local row %s: %w", guid, err)
	}
	return nil
}

// ApplyDeletions removes rows named in itemsToRemove from both the local
// tree and the mirror, recording a local tombstone when the merger decided
// the deletion must itself be uploaded (e.g. a local-only deletion of an
// item the remote still has).
func (t *sqliteTx) ApplyDeletions(ctx context.Context) error {
	rows, err := t.tx.QueryContext(ctx, `SELECT guid, shouldUploadTombstone FROM itemsToRemove`)
	if err != nil {
		return fmt.Errorf("bookmarksync: reading deletions: %w", err)
	}
	defer rows.Close()

	type delRow struct {
		guid    GUID
		upload  bool
	}
	var toDelete []delRow
	for rows.Next() {
		var guid string
		var d delRow
		if err := rows.Scan(&guid, &d.upload); err != nil {
			return fmt.Errorf("bookmarksync: scanning deletion row: %w", err)
		}
		d.guid = GUID(guid)
		toDelete = append(toDelete, d)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, d := range toDelete {
		if _, err := t.tx.ExecContext(ctx, `DELETE FROM bookmarks WHERE guid = ?`, string(d.guid)); err != nil {
			return fmt.Errorf("bookmarksync: deleting local row %s: %w", d.guid, err)
		}
		if _, err := t.tx.ExecContext(ctx, `DELETE FROM bookmarks_synced WHERE guid = ?`, string(d.guid)); err != nil {
			return fmt.Errorf("bookmarksync: deleting mirror row %s: %w", d.guid, err)
		}
		if _, err := t.tx.ExecContext(ctx, `DELETE FROM bookmarks_synced_structure WHERE guid = ? OR parentGuid = ?`,
			string(d.guid), string(d.guid)); err != nil {
			return fmt.Errorf("bookmarksync: deleting mirror structure for %s: %w", d.guid, err)
		}
		if d.upload {
			if _, err := t.tx.ExecContext(ctx, `INSERT INTO bookmarks_deleted (guid, dateRemoved) VALUES (?, ?)
ON CONFLICT(guid) DO UPDATE SET dateRemoved = excluded.dateRemoved`, string(d.guid), nowMillisPlaceholder()); err != nil {
				return fmt.Errorf("bookmarksync: recording local tombstone %s: %w", d.guid, err)
			}
		}
	}
	return nil
}

// nowMillisPlaceholder exists because ApplyDeletions has no clock parameter
// of its own (spec §4.7 operates purely on already-decided staging rows);
// the finalizer and tree builders take explicit local_time/remote_time
// instead of calling time.Now(), but a freshly-created local tombstone's
// dateRemoved has no merge-time equivalent to borrow, so it is the one
// place in the store that reads the wall clock directly.
func nowMillisPlaceholder() int64 {
	return time.Now().UnixMilli()
}

// StageWeakUploads stages nodes the merger flagged UploadWeak: the merger
// resolved to the remote side with no local change, dedupe or conflict, but the
// local dateAdded predates the remote's, so the remote record should be
// weakly refreshed with the older creation date on the next successful
// sync (spec §4.3, §4.7 step 5). The dateAdded comparison itself already
// happened in treemerge.Merge; this phase only stages what the merger
// already decided.
func (t *sqliteTx) StageWeakUploads(ctx context.Context) error {
	_, err := t.tx.ExecContext(ctx, `
INSERT INTO idsToWeaklyUpload (guid)
SELECT mt.mergedGuid FROM mergedTree mt
WHERE mt.uploadReason = ?
AND mt.mergedGuid NOT IN (SELECT guid FROM idsToWeaklyUpload)`,
		UploadWeak)
	if err != nil {
		return fmt.Errorf("bookmarksync: staging weak uploads: %w", err)
	}
	return nil
}

// StageUploadRows populates itemsToUpload from every node the merger
// marked as needing upload (local change, weak reupload, or duplicate
// resolution). Each row's parentTitle comes from a join on its local
// parent row; the titled CTE declared by the WITH RECURSIVE clause is not
// referenced by the query.
func (t *sqliteTx) StageUploadRows(ctx context.Context) error {
	_, err := t.tx.ExecContext(ctx, `
WITH RECURSIVE titled(id, guid, title) AS (
  SELECT id, guid, title FROM bookmarks
)
INSERT INTO itemsToUpload
  (guid, isDeleted, kind, title, url, keyword, feedUrl, siteUrl, parentGuid, dateAdded, hasDupe, parentTitle, syncChangeCounter)
SELECT
  b.guid, 0, b.kind, COALESCE(b.title, ''),
  COALESCE(p.url, ''), COALESCE(bs.keyword, ''), COALESCE(bs.feedUrl, ''), COALESCE(bs.siteUrl, ''),
  parentB.guid, b.dateAdded,
  COALESCE(bs.validity = ?, 0),
  COALESCE(parentB.title, ''),
  b.syncChangeCounter
FROM mergedTree mt
JOIN bookmarks b ON b.guid = mt.mergedGuid
LEFT JOIN bookmarks parentB ON parentB.id = b.parentId
LEFT JOIN places p ON p.id = b.placeId
LEFT JOIN bookmarks_synced bs ON bs.guid = b.guid
WHERE mt.uploadReason != ?
AND b.guid NOT IN (SELECT guid FROM itemsToUpload)`,
		Replace, UploadNone)
	if err != nil {
		return fmt.Errorf("bookmarksync: staging upload rows: %w", err)
	}
	return nil
}

// StageUploadStructure fills in each staged folder's children list, read
// from the local tree rather than the merge tree so a folder whose
// children changed mid-cycle still uploads its true current contents.
func (t *sqliteTx) StageUploadStructure(ctx context.Context) error {
	rows, err := t.tx.QueryContext(ctx, `SELECT guid FROM itemsToUpload WHERE kind = ? AND isDeleted = 0`, KindFolder)
	if err != nil {
		return fmt.Errorf("bookmarksync: listing staged folders: %w", err)
	}
	var folders []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			rows.Close()
			return err
		}
		folders = append(folders, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, folderGUID := range folders {
		childRows, err := t.tx.QueryContext(ctx, `
SELECT c.guid FROM bookmarks c JOIN bookmarks p ON p.id = c.parentId
WHERE p.guid = ? ORDER BY c.position`, folderGUID)
		if err != nil {
			return fmt.Errorf("bookmarksync: listing children of %s: %w", folderGUID, err)
		}
		var children []string
		for childRows.Next() {
			var c string
			if err := childRows.Scan(&c); err != nil {
				childRows.Close()
				return err
			}
			children = append(children, c)
		}
		childRows.Close()
		if err := childRows.Err(); err != nil {
			return err
		}
		for i, child := range children {
			if _, err := t.tx.ExecContext(ctx,
				`INSERT INTO structureToUpload (parentGuid, guid, position) VALUES (?, ?, ?)`,
				folderGUID, child, i); err != nil {
				return fmt.Errorf("bookmarksync: staging structure %s/%s: %w", folderGUID, child, err)
			}
		}
	}
	return nil
}

// StageTombstoneUploads adds an itemsToUpload row for every deletion the
// merger flagged ShouldUploadTombstone.
func (t *sqliteTx) StageTombstoneUploads(ctx context.Context) error {
	rows, err := t.tx.QueryContext(ctx, `SELECT guid FROM itemsToRemove WHERE shouldUploadTombstone = 1`)
	if err != nil {
		return fmt.Errorf("bookmarksync: reading tombstone deletions: %w", err)
	}
	var guids []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			rows.Close()
			return err
		}
		guids = append(guids, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, g := range guids {
		if _, err := t.tx.ExecContext(ctx, `
INSERT INTO itemsToUpload (guid, isDeleted, kind, title, url, keyword, feedUrl, siteUrl, parentGuid, dateAdded, hasDupe, parentTitle, syncChangeCounter)
VALUES (?, 1, 0, '', '', '', '', '', '', 0, 0, '', 0)
ON CONFLICT(guid) DO UPDATE SET isDeleted = 1`, g); err != nil {
			return fmt.Errorf("bookmarksync: staging tombstone upload %s: %w", g, err)
		}
	}
	return nil
}

func (t *sqliteTx) UploadRows(ctx context.Context) ([]*UploadRow, error) {
	rows, err := t.tx.QueryContext(ctx, `
SELECT guid, isDeleted, kind, title, url, keyword, feedUrl, siteUrl, parentGuid, dateAdded, hasDupe, parentTitle, syncChangeCounter
FROM itemsToUpload`)
	if err != nil {
		return nil, fmt.Errorf("bookmarksync: reading staged uploads: %w", err)
	}
	defer rows.Close()

	byGUID := make(map[string]*UploadRow)
	var order []string
	for rows.Next() {
		u := &UploadRow{}
		var guid, parent string
		if err := rows.Scan(&guid, &u.IsDeleted, &u.Kind, &u.Title, &u.URL, &u.Keyword, &u.FeedURL, &u.SiteURL,
			&parent, &u.DateAdded, &u.HasDupe, &u.ParentTitle, &u.SyncChangeCounter); err != nil {
			return nil, fmt.Errorf("bookmarksync: scanning staged upload row: %w", err)
		}
		u.GUID, u.ParentGUID = GUID(guid), GUID(parent)
		byGUID[guid] = u
		order = append(order, guid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	structRows, err := t.tx.QueryContext(ctx, `SELECT parentGuid, guid FROM structureToUpload ORDER BY parentGuid, position`)
	if err != nil {
		return nil, fmt.Errorf("bookmarksync: reading staged structure: %w", err)
	}
	defer structRows.Close()
	for structRows.Next() {
		var parent, child string
		if err := structRows.Scan(&parent, &child); err != nil {
			return nil, fmt.Errorf("bookmarksync: scanning staged structure row: %w", err)
		}
		if u, ok := byGUID[parent]; ok {
			u.Children = append(u.Children, GUID(child))
		}
	}
	if err := structRows.Err(); err != nil {
		return nil, err
	}

	out := make([]*UploadRow, 0, len(order))
	for _, g := range order {
		out = append(out, byGUID[g])
	}
	return out, nil
}

func (t *sqliteTx) MarkUploaded(ctx context.Context, guid GUID) error {
	if _, err := t.tx.ExecContext(ctx, `
UPDATE bookmarks SET
  syncChangeCounter = MAX(syncChangeCounter - COALESCE((SELECT u.syncChangeCounter FROM itemsToUpload u WHERE u.guid = ?), 0), 0),
  syncStatus = ?
WHERE guid = ?`, string(guid), SyncStatusNormal, string(guid)); err != nil {
		return fmt.Errorf("bookmarksync: marking %s uploaded: %w", guid, err)
	}
	return nil
}

func (t *sqliteTx) ClearUploadStaging(ctx context.Context) error {
	for _, table := range []string{"mergedTree", "itemsToRemove", "itemsToUpload", "structureToUpload", "idsToWeaklyUpload"} {
		if _, err := t.tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("bookmarksync: clearing staging table %s: %w", table, err)
		}
	}
	return nil
}
