package bookmarksync

import (
	"errors"
	"fmt"
)

// Sentinel content errors (spec §7). These are recovered per-record: the
// Incoming Applicator writes the mirror row anyway, with an appropriate
// Validity, and logs a warning. Use errors.Is(err, bookmarksync.ErrNoURL)
// to check.
var (
	ErrInvalidURL       = errors.New("bookmarksync: invalid url")
	ErrURLTooLong       = errors.New("bookmarksync: url too long")
	ErrNoURL            = errors.New("bookmarksync: no url")
	ErrInvalidTag       = errors.New("bookmarksync: invalid tag")
	ErrUnsupportedKind  = errors.New("bookmarksync: unsupported kind")
	ErrMalformedPayload = errors.New("bookmarksync: malformed payload")
)

// Fatal-tier sentinels (store/merge/uploader errors, spec §7). These abort
// the enclosing transaction/cycle rather than being recovered per-record.
var (
	ErrMergeInvariant = errors.New("bookmarksync: merge invariant violated")
	ErrStagingEmpty   = errors.New("bookmarksync: staging tables not empty at sync start")
)

// ContentError wraps a content-error sentinel with the record it occurred
// on, for logging and for callers that want the offending GUID/field.
type ContentError struct {
	GUID   GUID
	Field  string
	Detail string
	Err    error // sentinel, for errors.Is()
}

func (e *ContentError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("bookmarksync: record %s: %s: %s", e.GUID, e.Field, e.Err)
	}

	return fmt.Sprintf("bookmarksync: record %s: %s", e.GUID, e.Err)
}

func (e *ContentError) Unwrap() error {
	return e.Err
}

func newContentError(guid GUID, field string, sentinel error, detail string) *ContentError {
	return &ContentError{GUID: guid, Field: field, Detail: detail, Err: sentinel}
}
