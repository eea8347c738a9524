package bookmarksync

import (
	"context"
	"fmt"

	"github.com/tonimelisma/bookmarksync/internal/bookmarksync/treemerge"
)

// FetchNewLocalContents returns a content fingerprint for every local item
// that has no matching mirror row and whose syncStatus is not Normal
// (spec §4.5): these are candidates the merger may dedupe against a
// same-shaped new remote item.
func FetchNewLocalContents(ctx context.Context, store Store) (map[treemerge.GUID]treemerge.Content, error) {
	rows, err := store.AllLocalRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("bookmarksync: fetching local rows: %w", err)
	}

	out := make(map[treemerge.GUID]treemerge.Content)
	for _, r := range rows {
		if r.SyncStatus == SyncStatusNormal {
			continue
		}
		mirror, err := store.MirrorRowByGUID(ctx, r.GUID)
		if err != nil {
			return nil, fmt.Errorf("bookmarksync: checking mirror row for %s: %w", r.GUID, err)
		}
		if mirror != nil {
			continue
		}
		fp, err := localFingerprint(ctx, store, r)
		if err != nil {
			return nil, err
		}
		out[treemerge.GUID(r.GUID)] = fp
	}
	return out, nil
}

func localFingerprint(ctx context.Context, store Store, r *LocalRow) (treemerge.Content, error) {
	switch r.Kind {
	case KindFolder:
		return treemerge.Content{Kind: "folder", Title: r.Title}, nil
	case KindSeparator:
		return treemerge.Content{Kind: "separator", Position: r.Position}, nil
	default:
		url, err := resolvePlaceURL(ctx, store, r.PlaceID)
		if err != nil {
			return treemerge.Content{}, err
		}
		return treemerge.Content{Kind: "bookmark", Title: r.Title, URL: url}, nil
	}
}

func resolvePlaceURL(ctx context.Context, store Store, placeID *int64) (string, error) {
	if placeID == nil {
		return "", nil
	}
	place, err := store.PlaceByID(ctx, *placeID)
	if err != nil {
		return "", fmt.Errorf("bookmarksync: resolving place %d: %w", *placeID, err)
	}
	if place == nil {
		return "", nil
	}
	return place.URL, nil
}

// FetchNewRemoteContents is the symmetric fetch over the mirror: rows with
// NeedsMerge && !IsDeleted that have no local counterpart (spec §4.5).
// Query and Bookmark share the bookmark shape; Livemarks are excluded.
func FetchNewRemoteContents(ctx context.Context, store Store) (map[treemerge.GUID]treemerge.Content, error) {
	rows, err := store.AllMirrorRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("bookmarksync: fetching mirror rows: %w", err)
	}
	localRows, err := store.AllLocalRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("bookmarksync: fetching local rows: %w", err)
	}
	structure, err := store.AllMirrorStructureRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("bookmarksync: fetching mirror structure: %w", err)
	}
	localGUIDs := make(map[GUID]bool, len(localRows))
	for _, r := range localRows {
		localGUIDs[r.GUID] = true
	}
	position := make(map[GUID]int, len(structure))
	for _, s := range structure {
		position[s.GUID] = s.Position
	}

	out := make(map[treemerge.GUID]treemerge.Content)
	for _, r := range rows {
		if !r.NeedsMerge || r.IsDeleted || r.Kind == KindLivemark {
			continue
		}
		if localGUIDs[r.GUID] {
			continue
		}
		fp, err := remoteFingerprint(ctx, store, r, position[r.GUID])
		if err != nil {
			return nil, err
		}
		out[treemerge.GUID(r.GUID)] = fp
	}
	return out, nil
}

func remoteFingerprint(ctx context.Context, store Store, r *MirrorRow, position int) (treemerge.Content, error) {
	switch r.Kind {
	case KindFolder:
		return treemerge.Content{Kind: "folder", Title: r.Title}, nil
	case KindSeparator:
		return treemerge.Content{Kind: "separator", Position: position}, nil
	default: // Bookmark, Query share the bookmark shape.
		url, err := resolvePlaceURL(ctx, store, r.PlaceID)
		if err != nil {
			return treemerge.Content{}, err
		}
		return treemerge.Content{Kind: "bookmark", Title: r.Title, URL: url}, nil
	}
}
