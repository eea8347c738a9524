package bookmarksync

import (
	"context"
	"database/sql"
	"fmt"
)

// sqliteTx is the StoreTx handed to Store.WithTx callbacks. It reuses the
// store's prepared statements by rebinding them to the active transaction
// via sql.Tx.StmtContext, so every write inside WithTx participates in the
// same atomic unit (spec §5: ingestion, apply, and finalize must each be
// all-or-nothing).
type sqliteTx struct {
	store *SQLiteStore
	tx    *sql.Tx
}

func (t *sqliteTx) WithTx(ctx context.Context, fn func(tx StoreTx) error) error {
	return fmt.Errorf("bookmarksync: nested transactions are not supported")
}

func (t *sqliteTx) InternPlace(ctx context.Context, url string) (*Place, error) {
	row := t.tx.StmtContext(ctx, t.store.stmts.internPlace).QueryRowContext(ctx, NewGUID(), url, hashURL(url))
	p := &Place{}
	var guid string
	if err := row.Scan(&p.ID, &guid, &p.URL, &p.URLHash); err != nil {
		return nil, fmt.Errorf("bookmarksync: interning place: %w", err)
	}
	p.GUID = GUID(guid)
	return p, nil
}

func (t *sqliteTx) PlaceByID(ctx context.Context, id int64) (*Place, error) {
	row := t.tx.StmtContext(ctx, t.store.stmts.placeByID).QueryRowContext(ctx, id)
	p := &Place{}
	var guid string
	if err := row.Scan(&p.ID, &guid, &p.URL, &p.URLHash); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("bookmarksync: reading place %d: %w", id, err)
	}
	p.GUID = GUID(guid)
	return p, nil
}

func (t *sqliteTx) UpsertMirrorRow(ctx context.Context, row *MirrorRow) error {
	_, err := t.tx.StmtContext(ctx, t.store.stmts.upsertMirror).ExecContext(ctx,
		string(row.GUID), string(row.ParentGUID), row.ServerModified, row.Kind,
		row.DateAdded, nullableString(row.Title), row.PlaceID,
		nullableString(row.Keyword), nullableString(row.FeedURL), nullableString(row.SiteURL),
		row.Validity,
	)
	if err != nil {
		return fmt.Errorf("bookmarksync: upserting mirror row %s: %w", row.GUID, err)
	}
	return nil
}

func (t *sqliteTx) ReplaceMirrorStructure(ctx context.Context, parent GUID, children []GUID) error {
	if _, err := t.tx.StmtContext(ctx, t.store.stmts.deleteStructure).ExecContext(ctx, string(parent)); err != nil {
		return fmt.Errorf("bookmarksync: clearing structure for %s: %w", parent, err)
	}
	insert := t.tx.StmtContext(ctx, t.store.stmts.insertStructure)
	for i, child := range children {
		if _, err := insert.ExecContext(ctx, string(child), string(parent), i); err != nil {
			return fmt.Errorf("bookmarksync: inserting structure row %s/%s: %w", parent, child, err)
		}
	}
	return nil
}

func (t *sqliteTx) UpsertMirrorTombstone(ctx context.Context, guid GUID, serverModified int64) error {
	if _, err := t.tx.StmtContext(ctx, t.store.stmts.upsertTombstone).ExecContext(ctx, string(guid), serverModified); err != nil {
		return fmt.Errorf("bookmarksync: upserting tombstone %s: %w", guid, err)
	}
	return nil
}

func (t *sqliteTx) AllMirrorRows(ctx context.Context) ([]*MirrorRow, error) {
	rows, err := t.tx.QueryContext(ctx, `
SELECT guid, parentGuid, serverModified, needsMerge, isDeleted, kind, dateAdded, title, placeId, keyword, feedUrl, siteUrl, validity
FROM bookmarks_synced`)
	if err != nil {
		return nil, fmt.Errorf("bookmarksync: reading mirror rows: %w", err)
	}
	defer rows.Close()
	return scanMirrorRows(rows)
}

func (t *sqliteTx) AllMirrorStructureRows(ctx context.Context) ([]*StructureRow, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT guid, parentGuid, position FROM bookmarks_synced_structure ORDER BY parentGuid, position`)
	if err != nil {
		return nil, fmt.Errorf("bookmarksync: reading mirror structure: %w", err)
	}
	defer rows.Close()
	var out []*StructureRow
	for rows.Next() {
		r := &StructureRow{}
		var guid, parent string
		if err := rows.Scan(&guid, &parent, &r.Position); err != nil {
			return nil, fmt.Errorf("bookmarksync: scanning structure row: %w", err)
		}
		r.GUID, r.ParentGUID = GUID(guid), GUID(parent)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (t *sqliteTx) AllLocalRows(ctx context.Context) ([]*LocalRow, error) {
	rows, err := t.tx.QueryContext(ctx, `
SELECT id, guid, parentId, position, kind, title, placeId, dateAdded, lastModified, syncChangeCounter, syncStatus
FROM bookmarks ORDER BY parentId, position`)
	if err != nil {
		return nil, fmt.Errorf("bookmarksync: reading local rows: %w", err)
	}
	defer rows.Close()
	var out []*LocalRow
	for rows.Next() {
		r := &LocalRow{}
		var guid string
		var title sql.NullString
		if err := rows.Scan(&r.ID, &guid, &r.ParentID, &r.Position, &r.Kind, &title,
			&r.PlaceID, &r.DateAdded, &r.LastModified, &r.SyncChangeCounter, &r.SyncStatus); err != nil {
			return nil, fmt.Errorf("bookmarksync: scanning local row: %w", err)
		}
		r.GUID = GUID(guid)
		r.Title = title.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (t *sqliteTx) AllLocalTombstones(ctx context.Context) ([]*LocalTombstone, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT guid, dateRemoved FROM bookmarks_deleted`)
	if err != nil {
		return nil, fmt.Errorf("bookmarksync: reading local tombstones: %w", err)
	}
	defer rows.Close()
	var out []*LocalTombstone
	for rows.Next() {
		tomb := &LocalTombstone{}
		var guid string
		if err := rows.Scan(&guid, &tomb.DateRemoved); err != nil {
			return nil, fmt.Errorf("bookmarksync: scanning local tombstone: %w", err)
		}
		tomb.GUID = GUID(guid)
		out = append(out, tomb)
	}
	return out, rows.Err()
}

func (t *sqliteTx) MirrorRowByGUID(ctx context.Context, guid GUID) (*MirrorRow, error) {
	row := t.tx.StmtContext(ctx, t.store.stmts.mirrorByGUID).QueryRowContext(ctx, string(guid))
	m, err := scanMirrorRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bookmarksync: reading mirror row %s: %w", guid, err)
	}
	return m, nil
}

func (t *sqliteTx) GetMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := t.tx.StmtContext(ctx, t.store.stmts.getMeta).QueryRowContext(ctx, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("bookmarksync: reading meta %s: %w", key, err)
	}
	return value, true, nil
}

func (t *sqliteTx) SetMeta(ctx context.Context, key, value string) error {
	if _, err := t.tx.StmtContext(ctx, t.store.stmts.setMeta).ExecContext(ctx, key, value); err != nil {
		return fmt.Errorf("bookmarksync: setting meta %s: %w", key, err)
	}
	return nil
}

var _ StoreTx = (*sqliteTx)(nil)
