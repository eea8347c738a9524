package bookmarksync

import "fmt"

// WirePayload is the JSON-over-the-wire shape consumed and produced by the
// Record Model (spec §6). Fields are pointers where "absent" and "present
// but zero" must be distinguished.
type WirePayload struct {
	ID         string  `json:"id"`
	Type       string  `json:"type,omitempty"`
	Deleted    bool    `json:"deleted,omitempty"`
	ParentID   string  `json:"parentid,omitempty"`
	ParentName string  `json:"parentName,omitempty"`
	DateAdded  *int64  `json:"dateAdded,omitempty"`
	Title      *string `json:"title,omitempty"`
	HasDupe    bool    `json:"hasDupe,omitempty"`

	// bookmark / query
	BmkURI string `json:"bmkUri,omitempty"`

	// bookmark only
	Keyword string   `json:"keyword,omitempty"`
	Tags    []string `json:"tags,omitempty"`

	// query only
	FolderName string `json:"folderName,omitempty"`

	// folder only
	Children []string `json:"children,omitempty"`

	// livemark only
	FeedURI string `json:"feedUri,omitempty"`
	SiteURI string `json:"siteUri,omitempty"`

	// separator only
	Pos *int `json:"pos,omitempty"`
}

// Record is the decoded, tagged-union form of one incoming item. It is a
// single flat struct holding the common fields and every per-kind field,
// avoiding a virtual-dispatch hierarchy; Kind plus the IsTombstone flag
// select which of the per-kind fields are meaningful.
type Record struct {
	GUID        GUID
	IsTombstone bool

	// Common fields, meaningless when IsTombstone is true.
	Kind        Kind
	ParentGUID  GUID
	ParentTitle string
	HasDupe     bool
	DateAdded   int64
	Title       string

	// Bookmark / Query.
	BmkURI  string
	Keyword string
	Tags    []string

	// Query only.
	FolderName string

	// Folder only.
	Children []GUID

	// Livemark only.
	FeedURI string
	SiteURI string

	// Separator only.
	Pos *int
}

// DecodeRecord parses a WirePayload into a Record, translating reserved-root
// GUID aliases. Returns a *ContentError wrapping ErrUnsupportedKind for an
// unrecognized type, or ErrMalformedPayload if the id is empty.
func DecodeRecord(p *WirePayload) (*Record, error) {
	if p.ID == "" {
		return nil, newContentError("", "id", ErrMalformedPayload, "missing id")
	}

	guid := translateIncomingGUID(p.ID)

	if p.Deleted {
		return &Record{GUID: guid, IsTombstone: true}, nil
	}

	r := &Record{
		GUID:        guid,
		ParentGUID:  translateIncomingGUID(p.ParentID),
		ParentTitle: p.ParentName,
		HasDupe:     p.HasDupe,
	}
	if p.DateAdded != nil {
		r.DateAdded = *p.DateAdded
	}
	if p.Title != nil {
		r.Title = *p.Title
	}

	switch p.Type {
	case "bookmark":
		r.Kind = KindBookmark
		r.BmkURI = p.BmkURI
		r.Keyword = p.Keyword
		r.Tags = p.Tags
	case "query":
		r.Kind = KindQuery
		r.BmkURI = p.BmkURI
		r.FolderName = p.FolderName
	case "folder":
		r.Kind = KindFolder
		r.Children = make([]GUID, 0, len(p.Children))
		for _, c := range p.Children {
			r.Children = append(r.Children, translateIncomingGUID(c))
		}
	case "livemark":
		r.Kind = KindLivemark
		r.FeedURI = p.FeedURI
		r.SiteURI = p.SiteURI
	case "separator":
		r.Kind = KindSeparator
		r.Pos = p.Pos
	default:
		return nil, newContentError(guid, "type", ErrUnsupportedKind, p.Type)
	}

	return r, nil
}

// EncodeRecord serializes a Record back to its wire payload, translating
// internal GUIDs back to their reserved-root aliases. Kind-inapplicable
// fields are simply left zero; the Outgoing Builder decides which kinds are
// actually emitted (spec §4.8).
func EncodeRecord(r *Record) (*WirePayload, error) {
	p := &WirePayload{ID: translateOutgoingGUID(r.GUID)}

	if r.IsTombstone {
		p.Deleted = true
		return p, nil
	}

	p.ParentID = translateOutgoingGUID(r.ParentGUID)
	p.ParentName = r.ParentTitle
	p.HasDupe = r.HasDupe
	dateAdded := r.DateAdded
	p.DateAdded = &dateAdded
	title := r.Title
	p.Title = &title

	switch r.Kind {
	case KindBookmark:
		p.Type = "bookmark"
		p.BmkURI = r.BmkURI
		p.Keyword = r.Keyword
		p.Tags = r.Tags
	case KindQuery:
		p.Type = "query"
		p.BmkURI = r.BmkURI
		p.FolderName = r.FolderName
	case KindFolder:
		p.Type = "folder"
		p.Children = make([]string, 0, len(r.Children))
		for _, c := range r.Children {
			p.Children = append(p.Children, translateOutgoingGUID(c))
		}
	case KindLivemark:
		p.Type = "livemark"
		p.FeedURI = r.FeedURI
		p.SiteURI = r.SiteURI
	case KindSeparator:
		p.Type = "separator"
		p.Pos = r.Pos
	default:
		return nil, fmt.Errorf("bookmarksync: encode: %w: kind %v", ErrUnsupportedKind, r.Kind)
	}

	return p, nil
}
