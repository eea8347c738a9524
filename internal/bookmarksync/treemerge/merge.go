// Package treemerge implements the three-way bookmark tree merger that
// spec §4.6 treats as an external collaborator: a library consuming a
// Driver's four fetch callbacks and a GUID generator, and producing a flat
// list of merged descendants plus a list of deletions. No off-the-shelf Go
// equivalent of the original's "dogear" crate exists, so this package is
// the reference implementation of that documented contract rather than a
// copy of anything in the example pack; its shape (a Driver interface, a
// Merge entry point, Node/Tree/Content value types) is grounded on the
// dogear::Driver/dogear::Store trait usage in the original source's
// store.rs, and its decision style is grounded on the teacher's
// reconciler.go classification functions.
package treemerge

import "context"

// GUID is an opaque item identifier, deliberately untyped relative to the
// consuming engine's own GUID type: this package knows nothing about
// bookmarks specifically, only trees.
type GUID string

// Node is one item in a Tree as seen by the merger.
type Node struct {
	GUID GUID
	// ParentGUID is the structural parent used to build Children: for the
	// remote tree this comes from the mirror-structure table; for the
	// local tree it's the live parent id translated to a GUID.
	ParentGUID GUID
	// ClaimedParentGUID is the second, possibly-disagreeing source of
	// parentage (spec §9 "cyclic shape"): the mirror row's own
	// parentGuid field. Zero value means "agrees with ParentGUID" or
	// "not applicable" (local side).
	ClaimedParentGUID GUID
	Kind              string
	Level             int
	Position          int
	// Age is milliseconds since the tree's reference clock.
	Age int64
	// DateAdded is the item's creation timestamp in millis, used only to
	// decide weak-reupload eligibility (spec §4.3/§4.7 step 5): it is
	// independent of Age, which tracks last-modified/server-modified, not
	// creation time.
	DateAdded int64
	// Changed reports whether this node has unmerged/unsynced changes:
	// needsMerge for the remote tree, syncChangeCounter > 0 for local.
	Changed    bool
	Validity   string // remote only: "valid", "reupload", "replace"
	IsSyncable bool
	Children   []*Node
}

// Tree is a fully rooted tree plus the set of tombstoned GUIDs on that
// side, as built by the Driver's fetch callbacks.
type Tree struct {
	Root       *Node
	ByGUID     map[GUID]*Node
	Tombstones map[GUID]bool
}

func NewTree(root *Node) *Tree {
	t := &Tree{Root: root, ByGUID: make(map[GUID]*Node), Tombstones: make(map[GUID]bool)}
	t.index(root)
	return t
}

func (t *Tree) index(n *Node) {
	if n == nil {
		return
	}
	t.ByGUID[n.GUID] = n
	for _, c := range n.Children {
		t.index(c)
	}
}

// Content is a fingerprint used to dedupe a new item on one side against a
// same-shaped new item on the other side (spec §4.5).
type Content struct {
	Kind     string
	Title    string
	URL      string
	Position int
}

func contentKey(c Content) string {
	switch c.Kind {
	case "separator":
		return "separator\x00" + itoa(c.Position)
	case "folder":
		return "folder\x00" + c.Title
	default:
		return c.Kind + "\x00" + c.Title + "\x00" + c.URL
	}
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// Driver supplies the merger with both trees, both content-fingerprint
// maps, and GUID generation, per spec §4.6.
type Driver interface {
	FetchLocalTree(ctx context.Context) (*Tree, error)
	FetchRemoteTree(ctx context.Context) (*Tree, error)
	FetchNewLocalContents(ctx context.Context) (map[GUID]Content, error)
	FetchNewRemoteContents(ctx context.Context) (map[GUID]Content, error)
	GenerateNewGUID(ctx context.Context, invalid GUID) (GUID, error)
	// Log receives merge-progress messages at a silent/debug level; the
	// driver decides whether to surface them (spec §4.6: "supplies a
	// silent logger").
	Log(msg string)
}

// UploadReason mirrors bookmarksync.UploadReason without importing it,
// keeping this package free of a dependency on its consumer.
type UploadReason int

const (
	UploadNone UploadReason = iota
	UploadLocalChange
	// UploadWeak marks a node the merger resolved to the remote side
	// without any local change (no dedupe, no conflict),
	// but whose local dateAdded predates the remote's: the remote record
	// should be weakly refreshed with the older creation date (spec §4.3,
	// §4.7 step 5). Weak is never a hard retry: losing it to an
	// interrupted sync is acceptable.
	UploadWeak
	UploadDuplicateResolution
)

// MergedDescendant is one row of the merge result (spec §4.6).
type MergedDescendant struct {
	MergedGUID       GUID
	MergedParentGUID GUID
	Level            int
	Position         int
	LocalNode        bool
	RemoteNode       bool
	ShouldApply      bool
	UploadReason     UploadReason
}

// Deletion is one row of the merge result's deletion list (spec §4.6).
type Deletion struct {
	GUID                  GUID
	LocalLevel            int
	ShouldUploadTombstone bool
}

// Result is the full output of one Merge call.
type Result struct {
	Descendants []MergedDescendant
	Deletions   []Deletion
}

// Merge runs the three-way tree merge. It visits every non-root GUID of
// both trees once, in no particular order, deduping new local items against new remote
// items with matching content fingerprints (spec §4.5) so that a bookmark
// created independently on both sides collapses onto one GUID instead of
// producing a duplicate.
func Merge(ctx context.Context, d Driver) (*Result, error) {
	localTree, err := d.FetchLocalTree(ctx)
	if err != nil {
		return nil, err
	}
	remoteTree, err := d.FetchRemoteTree(ctx)
	if err != nil {
		return nil, err
	}
	newLocal, err := d.FetchNewLocalContents(ctx)
	if err != nil {
		return nil, err
	}
	newRemote, err := d.FetchNewRemoteContents(ctx)
	if err != nil {
		return nil, err
	}

	m := &merger{
		d:           d,
		localTree:   localTree,
		remoteTree:  remoteTree,
		dedupe:      make(map[GUID]GUID), // localGUID -> remoteGUID it was folded onto
		dedupedOnto: make(map[GUID]bool), // set of remote GUIDs that absorbed a local dupe
		visited:     make(map[GUID]bool),
		result:      &Result{},
	}
	m.buildDedupeMap(newLocal, newRemote)

	canonical := make(map[GUID]bool)
	for guid := range remoteTree.ByGUID {
		if guid != remoteTree.Root.GUID {
			canonical[m.resolvedGUID(guid)] = true
		}
	}
	for guid := range localTree.ByGUID {
		if guid != localTree.Root.GUID {
			canonical[m.resolvedGUID(guid)] = true
		}
	}

	for guid := range canonical {
		m.visit(guid)
	}

	return m.result, nil
}

type merger struct {
	d           Driver
	localTree   *Tree
	remoteTree  *Tree
	dedupe      map[GUID]GUID
	dedupedOnto map[GUID]bool
	visited     map[GUID]bool
	result      *Result
}

func (m *merger) buildDedupeMap(newLocal, newRemote map[GUID]Content) {
	remoteByKey := make(map[string]GUID, len(newRemote))
	for guid, c := range newRemote {
		remoteByKey[contentKey(c)] = guid
	}
	for localGUID, c := range newLocal {
		if remoteGUID, ok := remoteByKey[contentKey(c)]; ok {
			m.dedupe[localGUID] = remoteGUID
			m.dedupedOnto[remoteGUID] = true
		}
	}
}

// resolvedGUID returns the GUID a tree-side node should be merged under:
// a deduped local-only item resolves onto its matched remote GUID.
func (m *merger) resolvedGUID(guid GUID) GUID {
	if remoteGUID, ok := m.dedupe[guid]; ok {
		return remoteGUID
	}
	return guid
}

func (m *merger) visit(merged GUID) {
	if m.visited[merged] {
		return
	}
	m.visited[merged] = true

	localNode := m.localNodeFor(merged)
	remoteNode := m.remoteTree.ByGUID[merged]

	remoteTombstoned := m.remoteTree.Tombstones[merged]
	localTombstoned := m.localTree.Tombstones[merged] || (localNode != nil && m.localTree.Tombstones[localNode.GUID])

	switch {
	case remoteTombstoned && !(localNode != nil && localNode.Changed):
		level := 0
		if localNode != nil {
			level = localNode.Level
		}
		m.result.Deletions = append(m.result.Deletions, Deletion{GUID: merged, LocalLevel: level, ShouldUploadTombstone: false})
		return

	case localTombstoned && !remoteTombstoned:
		level := 0
		if localNode != nil {
			level = localNode.Level
		}
		m.result.Deletions = append(m.result.Deletions, Deletion{GUID: merged, LocalLevel: level, ShouldUploadTombstone: true})
		return
	}

	if localNode == nil && remoteNode == nil {
		return
	}

	winner, remoteWins, conflict := pickWinner(localNode, remoteNode)

	d := MergedDescendant{
		MergedGUID:       merged,
		MergedParentGUID: winner.ParentGUID,
		Level:            winner.Level,
		Position:         winner.Position,
		LocalNode:        localNode != nil,
		RemoteNode:       remoteNode != nil,
		ShouldApply:      remoteNode != nil,
	}

	switch {
	case m.dedupedOnto[merged]:
		d.UploadReason = UploadDuplicateResolution
	case localNode != nil && localNode.Changed:
		d.UploadReason = UploadLocalChange
	case conflict:
		d.UploadReason = UploadLocalChange
	case remoteWins && localNode != nil && remoteNode != nil && localNode.DateAdded < remoteNode.DateAdded:
		d.UploadReason = UploadWeak
	}

	m.result.Descendants = append(m.result.Descendants, d)
}

// localNodeFor looks up merged's local-side node, accounting for dedupe:
// merged may be a remote GUID that a local node was folded onto.
func (m *merger) localNodeFor(merged GUID) *Node {
	if n, ok := m.localTree.ByGUID[merged]; ok {
		return n
	}
	for localGUID, remoteGUID := range m.dedupe {
		if remoteGUID == merged {
			return m.localTree.ByGUID[localGUID]
		}
	}
	return nil
}

// pickWinner decides which side's shape (parent/level/position) the
// merged node takes. Remote wins whenever it has unmerged changes; local
// wins when only it changed; ties (both changed, a genuine conflict) fall
// back to remote structurally while still flagging the node for
// reupload so the local edit isn't silently lost.
func pickWinner(local, remote *Node) (winner *Node, remoteWins, conflict bool) {
	switch {
	case remote != nil && local != nil && remote.Changed && local.Changed:
		return remote, true, true
	case remote != nil && (local == nil || remote.Changed):
		return remote, true, false
	case local != nil:
		return local, false, false
	default:
		return remote, true, false
	}
}
