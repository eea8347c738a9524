package bookmarksync

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the engine's relational store (spec §6). It opens a
// modernc.org/sqlite connection (pure Go, no cgo, exactly as the teacher's
// own SQLiteStore), runs schema migrations via goose, and maintains a
// pooled set of prepared statements for the hot per-record paths used by
// ingestion. Staging/apply/finalize queries, which run once per sync
// cycle rather than once per record, are built ad hoc against the active
// transaction.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger

	stmts preparedStatements
}

type preparedStatements struct {
	internPlace     *sql.Stmt
	placeByID       *sql.Stmt
	upsertMirror    *sql.Stmt
	upsertTombstone *sql.Stmt
	deleteStructure *sql.Stmt
	insertStructure *sql.Stmt
	mirrorByGUID    *sql.Stmt
	getMeta         *sql.Stmt
	setMeta         *sql.Stmt
}

// stmtDef maps a SQL string to the prepared statement pointer it should
// populate, letting prepareAll eliminate repetitive error handling.
type stmtDef struct {
	dest **sql.Stmt
	sql  string
	name string
}

func prepareAll(ctx context.Context, db *sql.DB, defs []stmtDef) error {
	for i := range defs {
		stmt, err := db.PrepareContext(ctx, defs[i].sql)
		if err != nil {
			return fmt.Errorf("bookmarksync: prepare %s: %w", defs[i].name, err)
		}
		*defs[i].dest = stmt
	}
	return nil
}

const (
	sqlInternPlace = `
INSERT INTO places (guid, url, url_hash)
VALUES (?, ?, ?)
ON CONFLICT(url_hash, url) DO UPDATE SET url = excluded.url
RETURNING id, guid, url, url_hash`

	sqlPlaceByID = `SELECT id, guid, url, url_hash FROM places WHERE id = ?`

	sqlUpsertMirror = `
INSERT INTO bookmarks_synced
  (guid, parentGuid, serverModified, needsMerge, isDeleted, kind, dateAdded, title, placeId, keyword, feedUrl, siteUrl, validity)
VALUES (?, ?, ?, 1, 0, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(guid) DO UPDATE SET
  parentGuid = excluded.parentGuid,
  serverModified = excluded.serverModified,
  needsMerge = 1,
  isDeleted = 0,
  kind = excluded.kind,
  dateAdded = excluded.dateAdded,
  title = excluded.title,
  placeId = excluded.placeId,
  keyword = excluded.keyword,
  feedUrl = excluded.feedUrl,
  siteUrl = excluded.siteUrl,
  validity = excluded.validity`

	sqlUpsertTombstone = `
INSERT INTO bookmarks_synced (guid, serverModified, needsMerge, isDeleted, validity)
VALUES (?, ?, 1, 1, 0)
ON CONFLICT(guid) DO UPDATE SET
  serverModified = excluded.serverModified,
  needsMerge = 1,
  isDeleted = 1,
  parentGuid = NULL,
  kind = NULL,
  dateAdded = NULL,
  title = NULL,
  placeId = NULL,
  keyword = NULL,
  feedUrl = NULL,
  siteUrl = NULL`

	sqlDeleteStructure = `DELETE FROM bookmarks_synced_structure WHERE parentGuid = ?`
	sqlInsertStructure = `INSERT INTO bookmarks_synced_structure (guid, parentGuid, position) VALUES (?, ?, ?)`

	sqlMirrorByGUID = `
SELECT guid, parentGuid, serverModified, needsMerge, isDeleted, kind, dateAdded, title, placeId, keyword, feedUrl, siteUrl, validity
FROM bookmarks_synced WHERE guid = ?`

	sqlGetMeta = `SELECT value FROM meta WHERE key = ?`
	sqlSetMeta = `INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`
)

// NewStore opens dbPath (or ":memory:"), applies pragmas, runs migrations,
// and prepares the per-record statement pool.
func NewStore(ctx context.Context, dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("bookmarksync: opening %s: %w", dbPath, err)
	}

	if err := setPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.prepareStatements(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("bookmarksync: preparing statements: %w", err)
	}

	return s, nil
}

func setPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_size_limit = 67108864",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("bookmarksync: setting pragma %q: %w", p, err)
		}
	}
	return nil
}

func (s *SQLiteStore) prepareStatements(ctx context.Context) error {
	return prepareAll(ctx, s.db, []stmtDef{
		{&s.stmts.internPlace, sqlInternPlace, "internPlace"},
		{&s.stmts.placeByID, sqlPlaceByID, "placeByID"},
		{&s.stmts.upsertMirror, sqlUpsertMirror, "upsertMirror"},
		{&s.stmts.upsertTombstone, sqlUpsertTombstone, "upsertTombstone"},
		{&s.stmts.deleteStructure, sqlDeleteStructure, "deleteStructure"},
		{&s.stmts.insertStructure, sqlInsertStructure, "insertStructure"},
		{&s.stmts.mirrorByGUID, sqlMirrorByGUID, "mirrorByGUID"},
		{&s.stmts.getMeta, sqlGetMeta, "getMeta"},
		{&s.stmts.setMeta, sqlSetMeta, "setMeta"},
	})
}

// Close releases the prepared statements and the underlying connection.
func (s *SQLiteStore) Close() error {
	for _, stmt := range []*sql.Stmt{
		s.stmts.internPlace, s.stmts.placeByID, s.stmts.upsertMirror, s.stmts.upsertTombstone,
		s.stmts.deleteStructure, s.stmts.insertStructure, s.stmts.mirrorByGUID,
		s.stmts.getMeta, s.stmts.setMeta,
	} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}

// WithTx runs fn inside a single SQLite transaction, committing on success
// and rolling back on any error (including a panic, which is re-raised
// after rollback).
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(tx StoreTx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("bookmarksync: begin transaction: %w", err)
	}

	tx := &sqliteTx{store: s, tx: sqlTx}

	defer func() {
		if p := recover(); p != nil {
			sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("bookmarksync: %w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("bookmarksync: commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) InternPlace(ctx context.Context, url string) (*Place, error) {
	row := s.stmts.internPlace.QueryRowContext(ctx, NewGUID(), url, hashURL(url))
	p := &Place{}
	var guid string
	if err := row.Scan(&p.ID, &guid, &p.URL, &p.URLHash); err != nil {
		return nil, fmt.Errorf("bookmarksync: interning place: %w", err)
	}
	p.GUID = GUID(guid)
	return p, nil
}

func (s *SQLiteStore) PlaceByID(ctx context.Context, id int64) (*Place, error) {
	row := s.stmts.placeByID.QueryRowContext(ctx, id)
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

func (s *SQLiteStore) UpsertMirrorRow(ctx context.Context, row *MirrorRow) error {
	_, err := s.stmts.upsertMirror.ExecContext(ctx,
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

func (s *SQLiteStore) ReplaceMirrorStructure(ctx context.Context, parent GUID, children []GUID) error {
	if _, err := s.stmts.deleteStructure.ExecContext(ctx, string(parent)); err != nil {
		return fmt.Errorf("bookmarksync: clearing structure for %s: %w", parent, err)
	}
	for i, child := range children {
		if _, err := s.stmts.insertStructure.ExecContext(ctx, string(child), string(parent), i); err != nil {
			return fmt.Errorf("bookmarksync: inserting structure row %s/%s: %w", parent, child, err)
		}
	}
	return nil
}

func (s *SQLiteStore) UpsertMirrorTombstone(ctx context.Context, guid GUID, serverModified int64) error {
	if _, err := s.stmts.upsertTombstone.ExecContext(ctx, string(guid), serverModified); err != nil {
		return fmt.Errorf("bookmarksync: upserting tombstone %s: %w", guid, err)
	}
	return nil
}

func (s *SQLiteStore) AllMirrorRows(ctx context.Context) ([]*MirrorRow, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT guid, parentGuid, serverModified, needsMerge, isDeleted, kind, dateAdded, title, placeId, keyword, feedUrl, siteUrl, validity
FROM bookmarks_synced`)
	if err != nil {
		return nil, fmt.Errorf("bookmarksync: reading mirror rows: %w", err)
	}
	defer rows.Close()
	return scanMirrorRows(rows)
}

func (s *SQLiteStore) AllMirrorStructureRows(ctx context.Context) ([]*StructureRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT guid, parentGuid, position FROM bookmarks_synced_structure ORDER BY parentGuid, position`)
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

func (s *SQLiteStore) AllLocalRows(ctx context.Context) ([]*LocalRow, error) {
	rows, err := s.db.QueryContext(ctx, `
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

func (s *SQLiteStore) AllLocalTombstones(ctx context.Context) ([]*LocalTombstone, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT guid, dateRemoved FROM bookmarks_deleted`)
	if err != nil {
		return nil, fmt.Errorf("bookmarksync: reading local tombstones: %w", err)
	}
	defer rows.Close()
	var out []*LocalTombstone
	for rows.Next() {
		t := &LocalTombstone{}
		var guid string
		if err := rows.Scan(&guid, &t.DateRemoved); err != nil {
			return nil, fmt.Errorf("bookmarksync: scanning local tombstone: %w", err)
		}
		t.GUID = GUID(guid)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) MirrorRowByGUID(ctx context.Context, guid GUID) (*MirrorRow, error) {
	row := s.stmts.mirrorByGUID.QueryRowContext(ctx, string(guid))
	m, err := scanMirrorRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bookmarksync: reading mirror row %s: %w", guid, err)
	}
	return m, nil
}

func (s *SQLiteStore) GetMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.stmts.getMeta.QueryRowContext(ctx, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("bookmarksync: reading meta %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) SetMeta(ctx context.Context, key, value string) error {
	if _, err := s.stmts.setMeta.ExecContext(ctx, key, value); err != nil {
		return fmt.Errorf("bookmarksync: setting meta %s: %w", key, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMirrorRow(row rowScanner) (*MirrorRow, error) {
	m := &MirrorRow{}
	var guid string
	var parent, title, keyword, feedURL, siteURL sql.NullString
	var kind, dateAdded, placeID sql.NullInt64
	if err := row.Scan(&guid, &parent, &m.ServerModified, &m.NeedsMerge, &m.IsDeleted, &kind,
		&dateAdded, &title, &placeID, &keyword, &feedURL, &siteURL, &m.Validity); err != nil {
		return nil, err
	}
	m.GUID, m.ParentGUID = GUID(guid), GUID(parent.String)
	m.Kind, m.DateAdded = Kind(kind.Int64), dateAdded.Int64
	m.Title, m.Keyword, m.FeedURL, m.SiteURL = title.String, keyword.String, feedURL.String, siteURL.String
	if placeID.Valid {
		m.PlaceID = &placeID.Int64
	}
	return m, nil
}

func scanMirrorRows(rows *sql.Rows) ([]*MirrorRow, error) {
	var out []*MirrorRow
	for rows.Next() {
		m, err := scanMirrorRow(rows)
		if err != nil {
			return nil, fmt.Errorf("bookmarksync: scanning mirror row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Store = (*SQLiteStore)(nil)
