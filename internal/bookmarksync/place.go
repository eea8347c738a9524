package bookmarksync

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/url"
)

// hashURL computes the url_hash column value. The original store relies on
// a SQL-side hash() scalar function; modernc.org/sqlite (chosen, like the
// teacher's driver choice, for cgo-free portability) does not expose that
// registration surface the same way, so the hash is computed in Go before
// binding it as a parameter (see DESIGN.md Open Question 2). FNV-1a is
// used for the same reason the teacher doesn't reach for a cryptographic
// hash to key an interning table: speed and a stable-width unsigned result.
func hashURL(rawURL string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(rawURL))
	return h.Sum64()
}

// internURL validates a URL against the length limit and parses it,
// returning the canonical URL string to store. It does not touch the
// store; callers combine it with Store.InternPlace. A scheme is required
// (a bare "foo" is not a usable bookmark target); URLs with an authority
// but no path are normalized to have a "/" path, matching the canonical
// form the original store's URL parser produces.
func internURL(rawURL string, limits Limits) (string, error) {
	if rawURL == "" {
		return "", ErrNoURL
	}
	if len(rawURL) > limits.URLLengthMax {
		return "", ErrURLTooLong
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme == "" {
		return "", fmt.Errorf("%w: missing scheme", ErrInvalidURL)
	}
	if u.Opaque == "" && u.Host != "" && u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// InternPlace upserts a places row for url, generating a fresh GUID when
// the URL has not been seen before. Idempotent across concurrent callers
// within the containing transaction because the upsert is keyed on
// (url_hash, url), a candidate key (spec P4).
func InternPlace(ctx context.Context, tx StoreTx, rawURL string, limits Limits) (*Place, error) {
	canonical, err := internURL(rawURL, limits)
	if err != nil {
		return nil, err
	}
	return tx.InternPlace(ctx, canonical)
}

// Limits holds the policy constants referenced throughout ingestion
// (spec §6). Defaults match the original implementation's constants.
type Limits struct {
	URLLengthMax   int
	TagLengthMax   int
	TitleLengthMax int
}

// DefaultLimits returns the original implementation's policy constants.
func DefaultLimits() Limits {
	return Limits{
		URLLengthMax:   65536,
		TagLengthMax:   100,
		TitleLengthMax: 4096,
	}
}
