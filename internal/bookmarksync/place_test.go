package bookmarksync

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashURL_SameInputSameHash(t *testing.T) {
	assert.Equal(t, hashURL("https://example.com/"), hashURL("https://example.com/"))
	assert.NotEqual(t, hashURL("https://example.com/"), hashURL("https://example.org/"))
}

func TestInternURL_RejectsEmpty(t *testing.T) {
	_, err := internURL("", DefaultLimits())
	assert.ErrorIs(t, err, ErrNoURL)
}

func TestInternURL_RejectsTooLong(t *testing.T) {
	limits := DefaultLimits()
	limits.URLLengthMax = 10
	_, err := internURL("https://example.com/much-too-long", limits)
	assert.ErrorIs(t, err, ErrURLTooLong)
}

func TestInternURL_RejectsMissingScheme(t *testing.T) {
	_, err := internURL("example.com/foo", DefaultLimits())
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestInternURL_RejectsUnparseable(t *testing.T) {
	_, err := internURL("https://example.com/\n", DefaultLimits())
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestInternURL_NormalizesBareAuthorityToRootPath(t *testing.T) {
	got, err := internURL("https://example.com", DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/", got)
}

func TestInternURL_PreservesExistingPath(t *testing.T) {
	got, err := internURL("https://example.com/a/b?c=1", DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a/b?c=1", got)
}

func TestInternURL_OpaqueURLUntouched(t *testing.T) {
	got, err := internURL("mailto:someone@example.com", DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, "mailto:someone@example.com", got)
}

func TestInternPlace_CanonicalizesBeforeInterning(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	place, err := InternPlace(ctx, store, "https://example.com", DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/", place.URL)

	again, err := InternPlace(ctx, store, "https://example.com/", DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, place.ID, again.ID, "interning the canonicalized form again should return the same place")
}

func TestInternPlace_PropagatesURLError(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	_, err := InternPlace(ctx, store, "", DefaultLimits())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoURL))
}

func TestDefaultLimits_MatchesOriginalConstants(t *testing.T) {
	limits := DefaultLimits()
	assert.Equal(t, 65536, limits.URLLengthMax)
	assert.Equal(t, 100, limits.TagLengthMax)
	assert.Equal(t, 4096, limits.TitleLengthMax)
}

func TestInternURL_TooLongMessageMentionsLimit(t *testing.T) {
	limits := DefaultLimits()
	limits.URLLengthMax = 5
	_, err := internURL("https://x", limits)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "url too long"))
}
