package bookmarksync

import "context"

// IncomingBatch is what the Uploader collaborator hands the engine at the
// start of a sync cycle: a set of already-decrypted wire payloads plus the
// server timestamp they were fetched as-of (spec §2, §6).
type IncomingBatch struct {
	Payloads   []*WirePayload
	ServerTime int64
	HasMore    bool // true if the uploader paginated and more remain

	// AckedIDs lists the wire ids (WirePayload.ID, as handed to the
	// preceding ApplyIncoming call) the uploader has durably confirmed
	// stored remotely this cycle. nil (the zero value) means "all of them":
	// a simple Uploader that can't distinguish partial failure doesn't need
	// to set this. A non-nil slice is authoritative and may be a strict
	// subset of what was sent — including empty — letting an uploader
	// report that only some (or none) of the outgoing payloads actually
	// made it, instead of the engine assuming full success on every call
	// (spec §4.9 partial-failure handling, property P7).
	AckedIDs []string
}

// CollectionRequest is what Uploader.CollectionRequest returns: enough for
// the caller to fetch the next page of remote changes since the engine's
// last successful sync.
type CollectionRequest struct {
	Since int64
}

// Uploader is the external collaborator that owns the wire protocol (spec
// §1 Non-goals, §6): envelope encryption, HTTP framing, batching, and
// tokens are all its concern, not the engine's. The engine only ever sees
// already-decrypted payloads in and payloads out.
type Uploader interface {
	// ApplyIncoming hands the uploader this cycle's outgoing payloads and
	// receives back its own incoming batch for the next leg, mirroring the
	// original collaborator's combined apply_incoming/fetch shape.
	ApplyIncoming(ctx context.Context, outgoing []*WirePayload) (*IncomingBatch, error)

	// SyncFinished reports the new high-watermark timestamp and the set of
	// GUIDs the uploader has acknowledged as durably stored remotely.
	SyncFinished(ctx context.Context, newTimestamp int64, ackedGUIDs []GUID) error

	// CollectionRequest builds a request with since = last sync time.
	CollectionRequest(ctx context.Context, since int64) (*CollectionRequest, error)

	// Reset and Wipe are declared but out of core scope (spec §6, §9
	// Open Question 3); implementations may return an error indicating
	// they are unsupported by this engine.
	Reset(ctx context.Context) error
	Wipe(ctx context.Context) error
}
