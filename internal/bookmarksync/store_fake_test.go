package bookmarksync

import (
	"context"
	"fmt"
)

// memStore is a minimal in-memory Store/StoreTx double used across this
// package's unit tests, grounded on the teacher's hand-rolled mock-store
// style (internal/sync/reconciler_test.go) rather than a real SQLite
// connection: these tests exercise one function's logic at a time, not the
// storage layer itself.
type memStore struct {
	places          []*Place
	mirrorRows      map[GUID]*MirrorRow
	mirrorStructure []*StructureRow
	localRows       []*LocalRow
	localTombstones []*LocalTombstone
	meta            map[string]string

	uploadRows        []*UploadRow
	mergedDescendants []*MergedDescendant
	deletions         []*Deletion
	markedUploaded    []GUID
	stagingCleared    bool

	phaseCalls []string
}

func newMemStore() *memStore {
	return &memStore{
		mirrorRows: make(map[GUID]*MirrorRow),
		meta:       make(map[string]string),
	}
}

func (m *memStore) WithTx(ctx context.Context, fn func(tx StoreTx) error) error {
	return fn(m)
}

func (m *memStore) InternPlace(ctx context.Context, url string) (*Place, error) {
	for _, p := range m.places {
		if p.URL == url {
			return p, nil
		}
	}
	p := &Place{ID: int64(len(m.places) + 1), URL: url, URLHash: hashURL(url)}
	m.places = append(m.places, p)
	return p, nil
}

func (m *memStore) PlaceByID(ctx context.Context, id int64) (*Place, error) {
	for _, p := range m.places {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memStore) UpsertMirrorRow(ctx context.Context, row *MirrorRow) error {
	m.mirrorRows[row.GUID] = row
	return nil
}

func (m *memStore) ReplaceMirrorStructure(ctx context.Context, parent GUID, children []GUID) error {
	filtered := m.mirrorStructure[:0]
	for _, s := range m.mirrorStructure {
		if s.ParentGUID != parent {
			filtered = append(filtered, s)
		}
	}
	m.mirrorStructure = filtered
	for i, c := range children {
		m.mirrorStructure = append(m.mirrorStructure, &StructureRow{GUID: c, ParentGUID: parent, Position: i})
	}
	return nil
}

func (m *memStore) UpsertMirrorTombstone(ctx context.Context, guid GUID, serverModified int64) error {
	m.mirrorRows[guid] = &MirrorRow{GUID: guid, IsDeleted: true, NeedsMerge: true, ServerModified: serverModified}
	return nil
}

func (m *memStore) AllMirrorRows(ctx context.Context) ([]*MirrorRow, error) {
	out := make([]*MirrorRow, 0, len(m.mirrorRows))
	for _, r := range m.mirrorRows {
		out = append(out, r)
	}
	return out, nil
}

func (m *memStore) AllMirrorStructureRows(ctx context.Context) ([]*StructureRow, error) {
	return m.mirrorStructure, nil
}

func (m *memStore) AllLocalRows(ctx context.Context) ([]*LocalRow, error) {
	return m.localRows, nil
}

func (m *memStore) AllLocalTombstones(ctx context.Context) ([]*LocalTombstone, error) {
	return m.localTombstones, nil
}

func (m *memStore) MirrorRowByGUID(ctx context.Context, guid GUID) (*MirrorRow, error) {
	return m.mirrorRows[guid], nil
}

func (m *memStore) GetMeta(ctx context.Context, key string) (string, bool, error) {
	v, ok := m.meta[key]
	return v, ok, nil
}

func (m *memStore) SetMeta(ctx context.Context, key, value string) error {
	m.meta[key] = value
	return nil
}

func (m *memStore) InsertMergedDescendant(ctx context.Context, d *MergedDescendant) error {
	m.mergedDescendants = append(m.mergedDescendants, d)
	return nil
}

func (m *memStore) InsertDeletion(ctx context.Context, d *Deletion) error {
	m.deletions = append(m.deletions, d)
	return nil
}

func (m *memStore) ApplyMergedTree(ctx context.Context) error {
	m.phaseCalls = append(m.phaseCalls, "ApplyMergedTree")
	return nil
}

func (m *memStore) ApplyDeletions(ctx context.Context) error {
	m.phaseCalls = append(m.phaseCalls, "ApplyDeletions")
	return nil
}

func (m *memStore) StageWeakUploads(ctx context.Context) error {
	m.phaseCalls = append(m.phaseCalls, "StageWeakUploads")
	return nil
}

func (m *memStore) StageUploadRows(ctx context.Context) error {
	m.phaseCalls = append(m.phaseCalls, "StageUploadRows")
	return nil
}

func (m *memStore) StageUploadStructure(ctx context.Context) error {
	m.phaseCalls = append(m.phaseCalls, "StageUploadStructure")
	return nil
}

func (m *memStore) StageTombstoneUploads(ctx context.Context) error {
	m.phaseCalls = append(m.phaseCalls, "StageTombstoneUploads")
	return nil
}

func (m *memStore) UploadRows(ctx context.Context) ([]*UploadRow, error) {
	return m.uploadRows, nil
}

func (m *memStore) MarkUploaded(ctx context.Context, guid GUID) error {
	m.markedUploaded = append(m.markedUploaded, guid)
	return nil
}

func (m *memStore) ClearUploadStaging(ctx context.Context) error {
	m.stagingCleared = true
	m.uploadRows = nil
	return nil
}

// failingStore fails whichever single Store method name is requested, to
// exercise error-wrapping paths without a real database.
type failingStore struct {
	memStore
	failMethod string
}

func (f *failingStore) AllLocalRows(ctx context.Context) ([]*LocalRow, error) {
	if f.failMethod == "AllLocalRows" {
		return nil, fmt.Errorf("boom")
	}
	return f.memStore.AllLocalRows(ctx)
}

func (f *failingStore) AllMirrorRows(ctx context.Context) ([]*MirrorRow, error) {
	if f.failMethod == "AllMirrorRows" {
		return nil, fmt.Errorf("boom")
	}
	return f.memStore.AllMirrorRows(ctx)
}
