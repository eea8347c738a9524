package bookmarksync

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func i64Ptr(i int64) *int64   { return &i }

func TestDecodeRecord_MissingID(t *testing.T) {
	_, err := DecodeRecord(&WirePayload{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedPayload))
}

func TestDecodeRecord_Tombstone(t *testing.T) {
	rec, err := DecodeRecord(&WirePayload{ID: "abc123456789", Deleted: true})
	require.NoError(t, err)
	assert.True(t, rec.IsTombstone)
	assert.Equal(t, GUID("abc123456789"), rec.GUID)
}

func TestDecodeRecord_ReservedRootAlias(t *testing.T) {
	rec, err := DecodeRecord(&WirePayload{
		ID: "menu", Type: "folder", ParentID: "places",
	})
	require.NoError(t, err)
	assert.Equal(t, MenuGUID, rec.GUID)
	assert.Equal(t, RootGUID, rec.ParentGUID)
}

func TestDecodeRecord_Bookmark(t *testing.T) {
	rec, err := DecodeRecord(&WirePayload{
		ID: "bookmark1234", Type: "bookmark", ParentID: "toolbar",
		BmkURI: "https://example.com", Keyword: "ex", Tags: []string{"a", "b"},
		Title: strPtr("Example"), DateAdded: i64Ptr(1000),
	})
	require.NoError(t, err)
	assert.Equal(t, KindBookmark, rec.Kind)
	assert.Equal(t, "https://example.com", rec.BmkURI)
	assert.Equal(t, "ex", rec.Keyword)
	assert.Equal(t, []string{"a", "b"}, rec.Tags)
	assert.Equal(t, "Example", rec.Title)
	assert.Equal(t, int64(1000), rec.DateAdded)
}

func TestDecodeRecord_Folder_TranslatesChildren(t *testing.T) {
	rec, err := DecodeRecord(&WirePayload{
		ID: "folder123456", Type: "folder", Children: []string{"toolbar", "childguid1234"},
	})
	require.NoError(t, err)
	require.Len(t, rec.Children, 2)
	assert.Equal(t, ToolbarGUID, rec.Children[0])
	assert.Equal(t, GUID("childguid1234"), rec.Children[1])
}

func TestDecodeRecord_UnsupportedKind(t *testing.T) {
	_, err := DecodeRecord(&WirePayload{ID: "abc123456789", Type: "unknown-type"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedKind))
}

func TestDecodeRecord_Livemark(t *testing.T) {
	rec, err := DecodeRecord(&WirePayload{
		ID: "livemark1234", Type: "livemark",
		FeedURI: "https://example.com/feed", SiteURI: "https://example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, KindLivemark, rec.Kind)
	assert.Equal(t, "https://example.com/feed", rec.FeedURI)
}

func TestDecodeRecord_Separator(t *testing.T) {
	pos := 3
	rec, err := DecodeRecord(&WirePayload{ID: "sep123456789", Type: "separator", Pos: &pos})
	require.NoError(t, err)
	assert.Equal(t, KindSeparator, rec.Kind)
	require.NotNil(t, rec.Pos)
	assert.Equal(t, 3, *rec.Pos)
}

func TestEncodeRecord_Tombstone(t *testing.T) {
	p, err := EncodeRecord(&Record{GUID: "abc123456789", IsTombstone: true})
	require.NoError(t, err)
	assert.True(t, p.Deleted)
	assert.Equal(t, "abc123456789", p.ID)
}

func TestEncodeRecord_ReservedRootAlias(t *testing.T) {
	p, err := EncodeRecord(&Record{GUID: MenuGUID, Kind: KindFolder, ParentGUID: RootGUID})
	require.NoError(t, err)
	assert.Equal(t, "menu", p.ID)
	assert.Equal(t, "places", p.ParentID)
}

func TestEncodeRecord_Bookmark(t *testing.T) {
	p, err := EncodeRecord(&Record{
		GUID: "bookmark1234", Kind: KindBookmark, BmkURI: "https://example.com",
		Keyword: "ex", Tags: []string{"a"}, Title: "Example",
	})
	require.NoError(t, err)
	assert.Equal(t, "bookmark", p.Type)
	assert.Equal(t, "https://example.com", p.BmkURI)
	require.NotNil(t, p.Title)
	assert.Equal(t, "Example", *p.Title)
}

func TestEncodeRecord_Folder_TranslatesChildren(t *testing.T) {
	p, err := EncodeRecord(&Record{
		GUID: "folder123456", Kind: KindFolder, Children: []GUID{ToolbarGUID, "childguid1234"},
	})
	require.NoError(t, err)
	require.Len(t, p.Children, 2)
	assert.Equal(t, "toolbar", p.Children[0])
	assert.Equal(t, "childguid1234", p.Children[1])
}

func TestEncodeRecord_UnsupportedKind(t *testing.T) {
	_, err := EncodeRecord(&Record{GUID: "abc123456789", Kind: Kind(99)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedKind))
}

func TestDecodeEncode_RoundTrip_Bookmark(t *testing.T) {
	original := &WirePayload{
		ID: "bookmark1234", Type: "bookmark", ParentID: "toolbar",
		BmkURI: "https://example.com/", Keyword: "ex",
		Title: strPtr("Example"), DateAdded: i64Ptr(42),
	}

	rec, err := DecodeRecord(original)
	require.NoError(t, err)

	p, err := EncodeRecord(rec)
	require.NoError(t, err)

	assert.Equal(t, original.ID, p.ID)
	assert.Equal(t, original.ParentID, p.ParentID)
	assert.Equal(t, original.BmkURI, p.BmkURI)
	assert.Equal(t, *original.Title, *p.Title)
}
