package bookmarksync

import (
	"context"
	"fmt"
	"sort"

	"github.com/tonimelisma/bookmarksync/internal/bookmarksync/treemerge"
)

// BuildLocalTree constructs a fully rooted view of the local bookmark
// table (spec §4.4). Node ages are milliseconds since localTime, the
// sync's reference clock, taken as an explicit parameter rather than an
// ambient time.Now() call (spec §C) so tests can hold it fixed.
func BuildLocalTree(ctx context.Context, store Store, localTime int64) (*treemerge.Tree, error) {
	rows, err := store.AllLocalRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("bookmarksync: fetching local rows: %w", err)
	}
	tombstones, err := store.AllLocalTombstones(ctx)
	if err != nil {
		return nil, fmt.Errorf("bookmarksync: fetching local tombstones: %w", err)
	}

	byID := make(map[int64]*LocalRow, len(rows))
	childrenOf := make(map[int64][]*LocalRow)
	for _, r := range rows {
		byID[r.ID] = r
		childrenOf[r.ParentID] = append(childrenOf[r.ParentID], r)
	}
	for _, children := range childrenOf {
		sort.Slice(children, func(i, j int) bool { return children[i].Position < children[j].Position })
	}

	root := &treemerge.Node{GUID: treemerge.GUID(RootGUID), ParentGUID: "", Level: 0, IsSyncable: false}
	var walk func(parentID int64, parentNode *treemerge.Node, level int, syncable bool)
	walk = func(parentID int64, parentNode *treemerge.Node, level int, syncable bool) {
		for i, r := range childrenOf[parentID] {
			n := &treemerge.Node{
				GUID:       treemerge.GUID(r.GUID),
				ParentGUID: parentNode.GUID,
				Kind:       r.Kind.String(),
				Level:      level,
				Position:   i,
				Age:        localTime - r.LastModified,
				DateAdded:  r.DateAdded,
				Changed:    r.SyncChangeCounter > 0,
				IsSyncable: syncable,
			}
			parentNode.Children = append(parentNode.Children, n)
			walk(r.ID, n, level+1, syncable)
		}
	}
	// Direct children of the synthetic root (id 0) are the reserved
	// content roots; they and their descendants are syncable. The
	// synthetic root itself is not (spec §4.4).
	walk(0, root, 1, true)

	tree := treemerge.NewTree(root)
	for _, t := range tombstones {
		tree.Tombstones[treemerge.GUID(t.GUID)] = true
	}
	return tree, nil
}

// BuildRemoteTree constructs a fully rooted view of the mirror
// (bookmarks_synced + bookmarks_synced_structure), spec §4.4. Ages are
// milliseconds since remoteTime, the sync's server-time reference. Parent
// relationships come from two sources: the mirror-structure table drives
// the actual tree shape (a folder's own claim about its children), while
// each row's own parentGuid field is carried alongside as
// ClaimedParentGUID for the merger's structural disambiguation (spec §9).
func BuildRemoteTree(ctx context.Context, store Store, remoteTime int64) (*treemerge.Tree, error) {
	rows, err := store.AllMirrorRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("bookmarksync: fetching mirror rows: %w", err)
	}
	structure, err := store.AllMirrorStructureRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("bookmarksync: fetching mirror structure: %w", err)
	}

	byGUID := make(map[GUID]*MirrorRow, len(rows))
	for _, r := range rows {
		byGUID[r.GUID] = r
	}

	childrenOf := make(map[GUID][]*StructureRow)
	for _, s := range structure {
		childrenOf[s.ParentGUID] = append(childrenOf[s.ParentGUID], s)
	}
	for _, children := range childrenOf {
		sort.Slice(children, func(i, j int) bool { return children[i].Position < children[j].Position })
	}

	root := &treemerge.Node{GUID: treemerge.GUID(RootGUID), Level: 0, IsSyncable: false}
	var walk func(parent GUID, parentNode *treemerge.Node, level int, syncable bool)
	walk = func(parent GUID, parentNode *treemerge.Node, level int, syncable bool) {
		for i, s := range childrenOf[parent] {
			row, ok := byGUID[s.GUID]
			if !ok || row.IsDeleted {
				continue
			}
			n := &treemerge.Node{
				GUID:              treemerge.GUID(row.GUID),
				ParentGUID:        parentNode.GUID,
				ClaimedParentGUID: treemerge.GUID(row.ParentGUID),
				Kind:              row.Kind.String(),
				Level:             level,
				Position:          i,
				Age:               remoteTime - row.ServerModified,
				DateAdded:         row.DateAdded,
				Changed:           row.NeedsMerge,
				Validity:          row.Validity.String(),
				IsSyncable:        syncable,
			}
			parentNode.Children = append(parentNode.Children, n)
			walk(row.GUID, n, level+1, syncable)
		}
	}
	walk(RootGUID, root, 1, true)

	tree := treemerge.NewTree(root)
	for _, r := range rows {
		if r.IsDeleted && r.NeedsMerge {
			tree.Tombstones[treemerge.GUID(r.GUID)] = true
		}
	}
	return tree, nil
}
