package bookmarksync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/bookmarksync/internal/bookmarksync/treemerge"
)

func TestFetchNewLocalContents_SkipsNormalAndMirrored(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	place, err := store.InternPlace(ctx, "https://example.com/")
	require.NoError(t, err)

	store.localRows = []*LocalRow{
		{ID: 1, GUID: "normal______", Kind: KindBookmark, SyncStatus: SyncStatusNormal, PlaceID: &place.ID},
		{ID: 2, GUID: "mirrored____", Kind: KindBookmark, SyncStatus: SyncStatusNew, PlaceID: &place.ID},
		{ID: 3, GUID: "newfolder___", Kind: KindFolder, Title: "Work", SyncStatus: SyncStatusNew},
	}
	store.mirrorRows["mirrored____"] = &MirrorRow{GUID: "mirrored____"}

	out, err := FetchNewLocalContents(ctx, store)
	require.NoError(t, err)

	require.Contains(t, out, treemerge.GUID("newfolder___"))
	assert.Equal(t, treemerge.Content{Kind: "folder", Title: "Work"}, out["newfolder___"])
	assert.NotContains(t, out, treemerge.GUID("normal______"))
	assert.NotContains(t, out, treemerge.GUID("mirrored____"))
}

func TestFetchNewLocalContents_BookmarkResolvesURL(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	place, err := store.InternPlace(ctx, "https://example.com/")
	require.NoError(t, err)

	store.localRows = []*LocalRow{
		{ID: 1, GUID: "newbookmark_", Kind: KindBookmark, Title: "Example", SyncStatus: SyncStatusNew, PlaceID: &place.ID},
	}

	out, err := FetchNewLocalContents(ctx, store)
	require.NoError(t, err)
	require.Contains(t, out, treemerge.GUID("newbookmark_"))
	assert.Equal(t, treemerge.Content{Kind: "bookmark", Title: "Example", URL: "https://example.com/"}, out["newbookmark_"])
}

func TestFetchNewLocalContents_SeparatorUsesPosition(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.localRows = []*LocalRow{
		{ID: 1, GUID: "newsep______", Kind: KindSeparator, Position: 4, SyncStatus: SyncStatusNew},
	}

	out, err := FetchNewLocalContents(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, treemerge.Content{Kind: "separator", Position: 4}, out["newsep______"])
}

func TestFetchNewRemoteContents_SkipsNeedsMergeFalseDeletedAndLivemark(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.mirrorRows = map[GUID]*MirrorRow{
		"notneeded___": {GUID: "notneeded___", NeedsMerge: false, Kind: KindBookmark},
		"deleted_____": {GUID: "deleted_____", NeedsMerge: true, IsDeleted: true, Kind: KindBookmark},
		"livemark____": {GUID: "livemark____", NeedsMerge: true, Kind: KindLivemark},
		"newfolder___": {GUID: "newfolder___", NeedsMerge: true, Kind: KindFolder, Title: "Inbox"},
	}

	out, err := FetchNewRemoteContents(ctx, store)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, treemerge.Content{Kind: "folder", Title: "Inbox"}, out["newfolder___"])
}

func TestFetchNewRemoteContents_SkipsWhenLocalGUIDExists(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.mirrorRows = map[GUID]*MirrorRow{
		"hasLocal____": {GUID: "hasLocal____", NeedsMerge: true, Kind: KindBookmark},
	}
	store.localRows = []*LocalRow{{ID: 1, GUID: "hasLocal____", Kind: KindBookmark}}

	out, err := FetchNewRemoteContents(ctx, store)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestFetchNewLocalContents_PropagatesStoreError(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{memStore: *newMemStore(), failMethod: "AllLocalRows"}

	_, err := FetchNewLocalContents(ctx, store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching local rows")
}

func TestFetchNewRemoteContents_PropagatesStoreError(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{memStore: *newMemStore(), failMethod: "AllMirrorRows"}

	_, err := FetchNewRemoteContents(ctx, store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching mirror rows")
}

func TestFetchNewRemoteContents_SeparatorUsesStructurePosition(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.mirrorRows = map[GUID]*MirrorRow{
		"newsep______": {GUID: "newsep______", NeedsMerge: true, Kind: KindSeparator},
	}
	store.mirrorStructure = []*StructureRow{
		{GUID: "newsep______", ParentGUID: ToolbarGUID, Position: 3},
	}

	out, err := FetchNewRemoteContents(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, treemerge.Content{Kind: "separator", Position: 3}, out["newsep______"])
}

func TestFetchNewRemoteContents_QuerySharesBookmarkShape(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	place, err := store.InternPlace(ctx, "place:sort=14")
	require.NoError(t, err)
	store.mirrorRows = map[GUID]*MirrorRow{
		"query_______": {GUID: "query_______", NeedsMerge: true, Kind: KindQuery, Title: "Recent", PlaceID: &place.ID},
	}

	out, err := FetchNewRemoteContents(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, treemerge.Content{Kind: "bookmark", Title: "Recent", URL: "place:sort=14"}, out["query_______"])
}
