// Package bookmarksync implements the core of a two-way bookmark
// synchronization engine: ingestion of remote records into a mirror,
// three-way tree merge against the local bookmark tree, and staging of
// outgoing records.
package bookmarksync

import "context"

// GUID is an opaque 12-character bookmark item identifier.
type GUID string

// Reserved root GUIDs and their wire aliases. The remote service refers to
// these by short names; the local store always uses the 12-character form.
const (
	RootGUID    GUID = "root________"
	MenuGUID    GUID = "menu________"
	ToolbarGUID GUID = "toolbar_____"
	UnfiledGUID GUID = "unfiled_____"
	MobileGUID  GUID = "mobile______"
)

// Kind is a bookmark item kind. Tombstones are a distinct payload-layer
// variant (see Record) and never appear as a Kind on a live mirror row.
type Kind int

const (
	KindBookmark Kind = iota
	KindQuery
	KindFolder
	KindLivemark
	KindSeparator
)

func (k Kind) String() string {
	switch k {
	case KindBookmark:
		return "bookmark"
	case KindQuery:
		return "query"
	case KindFolder:
		return "folder"
	case KindLivemark:
		return "livemark"
	case KindSeparator:
		return "separator"
	default:
		return "unknown"
	}
}

// Validity is the disposition recorded against every ingested mirror row.
type Validity int

const (
	// Valid means the row is accepted as-is.
	Valid Validity = iota
	// Reupload means the row is accepted locally but the next upload must
	// carry a corrected version.
	Reupload
	// Replace means the record is unusable; the GUID is kept as a
	// placeholder but its content is treated as absent.
	Replace
)

func (v Validity) String() string {
	switch v {
	case Valid:
		return "valid"
	case Reupload:
		return "reupload"
	case Replace:
		return "replace"
	default:
		return "unknown"
	}
}

// SyncStatus mirrors the local bookmark row's syncStatus column.
type SyncStatus int

const (
	SyncStatusUnknown SyncStatus = iota
	SyncStatusNew
	SyncStatusNormal
)

// Place is a row of the places table: an interned URL.
type Place struct {
	ID      int64
	GUID    GUID
	URL     string
	URLHash uint64
}

// MirrorRow is a row of bookmarks_synced.
type MirrorRow struct {
	GUID           GUID
	ParentGUID     GUID
	ServerModified int64 // millis
	NeedsMerge     bool
	IsDeleted      bool
	Kind           Kind
	DateAdded      int64
	Title          string // empty means NULL
	PlaceID        *int64
	Keyword        string
	FeedURL        string
	SiteURL        string
	Validity       Validity
}

// HasTitle reports whether Title should be treated as present (NULL and ""
// collapse to the same thing in storage, per spec).
func (m *MirrorRow) HasTitle() bool { return m.Title != "" }

// StructureRow is a row of bookmarks_synced_structure: one per folder child.
type StructureRow struct {
	GUID       GUID // the child
	ParentGUID GUID
	Position   int
}

// LocalRow is a row of the local bookmarks table.
type LocalRow struct {
	ID                int64
	GUID              GUID
	ParentID          int64
	Position          int
	Kind              Kind
	Title             string
	PlaceID           *int64
	DateAdded         int64
	LastModified      int64
	SyncChangeCounter int
	SyncStatus        SyncStatus
}

// LocalTombstone is a row of bookmarks_deleted.
type LocalTombstone struct {
	GUID        GUID
	DateRemoved int64
}

// ContentFingerprint is what the content extractors return for
// dedupe-candidate new items. Exactly one of URL/Position is meaningful,
// depending on Kind.
type ContentFingerprint struct {
	Kind     Kind
	Title    string
	URL      string
	Position int
}

// Store is the relational-store contract required by the engine (spec §6):
// prepared statements with positional parameters, hash/generate_guid as
// Go-side helpers rather than SQL UDFs (see DESIGN.md), triggers modeled as
// Go methods invoked explicitly by the Applier, and recursive-CTE-shaped
// reads. Transactions do not nest: WithTx called on a StoreTx returns an
// error.
type Store interface {
	// Transactional boundary. fn runs inside one transaction; any error
	// returned rolls it back.
	WithTx(ctx context.Context, fn func(tx StoreTx) error) error

	// Place Store Adapter.
	InternPlace(ctx context.Context, url string) (*Place, error)
	PlaceByID(ctx context.Context, id int64) (*Place, error)

	// Incoming Applicator writes.
	UpsertMirrorRow(ctx context.Context, row *MirrorRow) error
	ReplaceMirrorStructure(ctx context.Context, parent GUID, children []GUID) error
	UpsertMirrorTombstone(ctx context.Context, guid GUID, serverModified int64) error

	// Tree Builder reads.
	AllMirrorRows(ctx context.Context) ([]*MirrorRow, error)
	AllMirrorStructureRows(ctx context.Context) ([]*StructureRow, error)
	AllLocalRows(ctx context.Context) ([]*LocalRow, error)
	AllLocalTombstones(ctx context.Context) ([]*LocalTombstone, error)
	MirrorRowByGUID(ctx context.Context, guid GUID) (*MirrorRow, error)

	// Meta.
	GetMeta(ctx context.Context, key string) (string, bool, error)
	SetMeta(ctx context.Context, key, value string) error
}

// StoreTx is the subset of Store operations valid inside a transaction,
// plus the Applier's staging-table operations.
type StoreTx interface {
	Store

	// Applier staging (spec §4.7). These correspond to the ordinary
	// (non-TEMP) staging tables mergedTree, itemsToRemove, itemsToUpload,
	// structureToUpload and idsToWeaklyUpload.
	InsertMergedDescendant(ctx context.Context, d *MergedDescendant) error
	InsertDeletion(ctx context.Context, d *Deletion) error
	ApplyMergedTree(ctx context.Context) error
	ApplyDeletions(ctx context.Context) error
	StageWeakUploads(ctx context.Context) error
	StageUploadRows(ctx context.Context) error
	StageUploadStructure(ctx context.Context) error
	StageTombstoneUploads(ctx context.Context) error

	// Finalizer.
	UploadRows(ctx context.Context) ([]*UploadRow, error)
	MarkUploaded(ctx context.Context, guid GUID) error
	ClearUploadStaging(ctx context.Context) error
}

// MergeState encodes, per merged descendant, which side(s) contributed and
// whether/why the node needs to be uploaded.
type MergeState struct {
	LocalNode    bool
	RemoteNode   bool
	ShouldApply  bool
	UploadReason UploadReason
}

// UploadReason explains why a merged node is staged for upload.
type UploadReason int

const (
	UploadNone UploadReason = iota
	UploadLocalChange
	UploadWeak
	UploadDuplicateResolution
)

// MergedDescendant is one row of the merger's output tree (spec §4.6).
type MergedDescendant struct {
	MergedGUID       GUID
	MergedParentGUID GUID
	Level            int
	Position         int
	State            MergeState
}

// Deletion is one row of the merger's deletion output (spec §4.6).
type Deletion struct {
	GUID                  GUID
	LocalLevel            int
	ShouldUploadTombstone bool
}

// UploadRow is a staged outgoing record, read back by the Outgoing Builder.
type UploadRow struct {
	GUID              GUID
	IsDeleted         bool
	Kind              Kind
	Title             string
	URL               string
	Keyword           string
	FeedURL           string
	SiteURL           string
	ParentGUID        GUID
	DateAdded         int64
	HasDupe           bool
	ParentTitle       string
	Children          []GUID
	SyncChangeCounter int // snapshot captured at staging time
}
