package bookmarksync

import (
	"context"
	"fmt"
)

// BuildOutgoing reads the staged upload rows and produces wire payloads
// (spec §4.8). Livemarks are never uploaded. Tombstones emit {id,
// deleted:true}. Folder child lists come from the staged structure, which
// UploadRow.Children already carries (populated by StageUploadStructure),
// not from the live bookmarks table, so partial mid-sync edits don't leak
// into the upload.
func BuildOutgoing(ctx context.Context, tx StoreTx) ([]*WirePayload, error) {
	rows, err := tx.UploadRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("bookmarksync: reading staged upload rows: %w", err)
	}

	payloads := make([]*WirePayload, 0, len(rows))
	for _, row := range rows {
		if row.Kind == KindLivemark && !row.IsDeleted {
			continue
		}

		if row.IsDeleted {
			payloads = append(payloads, &WirePayload{ID: translateOutgoingGUID(row.GUID), Deleted: true})
			continue
		}

		p := &WirePayload{
			ID:         translateOutgoingGUID(row.GUID),
			ParentID:   translateOutgoingGUID(row.ParentGUID),
			ParentName: row.ParentTitle,
			HasDupe:    row.HasDupe,
		}
		dateAdded := row.DateAdded
		p.DateAdded = &dateAdded
		title := row.Title
		p.Title = &title

		switch row.Kind {
		case KindBookmark:
			p.Type = "bookmark"
			p.BmkURI = row.URL
			p.Keyword = row.Keyword
		case KindQuery:
			p.Type = "query"
			p.BmkURI = row.URL
		case KindFolder:
			p.Type = "folder"
			p.Children = make([]string, 0, len(row.Children))
			for _, c := range row.Children {
				p.Children = append(p.Children, translateOutgoingGUID(c))
			}
		case KindSeparator:
			p.Type = "separator"
		default:
			return nil, fmt.Errorf("%w: staged upload row %s has kind %v", ErrUnsupportedKind, row.GUID, row.Kind)
		}

		payloads = append(payloads, p)
	}

	return payloads, nil
}
