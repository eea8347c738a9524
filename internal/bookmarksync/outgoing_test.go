package bookmarksync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOutgoing_SkipsLiveLivemarks(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.uploadRows = []*UploadRow{
		{GUID: "livemark____", Kind: KindLivemark, IsDeleted: false},
	}

	payloads, err := BuildOutgoing(ctx, store)
	require.NoError(t, err)
	assert.Empty(t, payloads)
}

func TestBuildOutgoing_DeletedLivemarkStillUploadsTombstone(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.uploadRows = []*UploadRow{
		{GUID: "livemark____", Kind: KindLivemark, IsDeleted: true},
	}

	payloads, err := BuildOutgoing(ctx, store)
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.True(t, payloads[0].Deleted)
	assert.Equal(t, "livemark____", payloads[0].ID)
}

func TestBuildOutgoing_Tombstone(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.uploadRows = []*UploadRow{{GUID: "deletedguid1", IsDeleted: true}}

	payloads, err := BuildOutgoing(ctx, store)
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.Equal(t, "deletedguid1", payloads[0].ID)
	assert.True(t, payloads[0].Deleted)
	assert.Nil(t, payloads[0].Title)
}

func TestBuildOutgoing_Bookmark(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.uploadRows = []*UploadRow{
		{
			GUID: "bookmark1234", Kind: KindBookmark, Title: "Example",
			URL: "https://example.com", Keyword: "ex", ParentGUID: ToolbarGUID,
			ParentTitle: "Bookmarks Toolbar", DateAdded: 1000,
		},
	}

	payloads, err := BuildOutgoing(ctx, store)
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	p := payloads[0]
	assert.Equal(t, "bookmark1234", p.ID)
	assert.Equal(t, "bookmark", p.Type)
	assert.Equal(t, "https://example.com", p.BmkURI)
	assert.Equal(t, "ex", p.Keyword)
	assert.Equal(t, "toolbar", p.ParentID)
	require.NotNil(t, p.Title)
	assert.Equal(t, "Example", *p.Title)
	require.NotNil(t, p.DateAdded)
	assert.Equal(t, int64(1000), *p.DateAdded)
}

func TestBuildOutgoing_QueryUsesBookmarkURIField(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.uploadRows = []*UploadRow{
		{GUID: "query_______", Kind: KindQuery, URL: "place:tag=work", Title: "Work items"},
	}

	payloads, err := BuildOutgoing(ctx, store)
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.Equal(t, "query", payloads[0].Type)
	assert.Equal(t, "place:tag=work", payloads[0].BmkURI)
}

func TestBuildOutgoing_FolderTranslatesChildrenFromStagedStructure(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.uploadRows = []*UploadRow{
		{GUID: "folder123456", Kind: KindFolder, Title: "Work", Children: []GUID{ToolbarGUID, "child1abcdef"}},
	}

	payloads, err := BuildOutgoing(ctx, store)
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	require.Len(t, payloads[0].Children, 2)
	assert.Equal(t, "toolbar", payloads[0].Children[0])
}

func TestBuildOutgoing_Separator(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.uploadRows = []*UploadRow{{GUID: "separator123", Kind: KindSeparator}}

	payloads, err := BuildOutgoing(ctx, store)
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.Equal(t, "separator", payloads[0].Type)
}

func TestBuildOutgoing_HasDupeCarried(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.uploadRows = []*UploadRow{
		{GUID: "bookmark1234", Kind: KindBookmark, HasDupe: true},
	}

	payloads, err := BuildOutgoing(ctx, store)
	require.NoError(t, err)
	assert.True(t, payloads[0].HasDupe)
}
