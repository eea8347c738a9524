package bookmarksync

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"
)

// decision is the result of validating and (for queries) rewriting one
// record, independent of any store I/O. Computing it is pure, so a batch
// of decisions can be produced concurrently ahead of the necessarily
// serial store writes (spec §5: "per-record effect is independent and
// order-insensitive").
type decision struct {
	record   *Record
	validity Validity
	url      string // resolved/rewritten URL to intern; "" means NULL
	title    string
	feedURL  string
	siteURL  string
	warning  error // recovered content error, logged but not fatal
}

// decideRecord applies the per-kind policy of spec §4.3 to one non-
// tombstone record and returns the resulting mirror disposition.
func decideRecord(r *Record, limits Limits) *decision {
	d := &decision{record: r, title: truncateTitle(r.Title, limits.TitleLengthMax)}

	switch r.Kind {
	case KindBookmark:
		decideBookmark(r, limits, d)
	case KindQuery:
		decideQuery(r, limits, d)
	case KindFolder:
		d.validity = Valid
	case KindLivemark:
		decideLivemark(r, limits, d)
	case KindSeparator:
		d.validity = Valid
	default:
		d.validity = Replace
		d.warning = newContentError(r.GUID, "kind", ErrUnsupportedKind, r.Kind.String())
	}

	return d
}

func decideBookmark(r *Record, limits Limits, d *decision) {
	canonical, err := internURL(r.BmkURI, limits)
	if err != nil {
		d.validity = Replace
		d.warning = newContentError(r.GUID, "bmkUri", err, r.BmkURI)
		return
	}
	d.validity = Valid
	d.url = canonical
}

// decideQuery implements spec §4.3's three-step query URL policy. The
// "parameters" of a place: URL live in the URL's opaque part (path),
// because place:foo=bar parses with scheme "place" and opaque "foo=bar",
// not as a hierarchical URL with a query string.
func decideQuery(r *Record, limits Limits, d *decision) {
	u, err := url.Parse(r.BmkURI)
	if err != nil {
		d.validity = Replace
		d.warning = newContentError(r.GUID, "bmkUri", ErrInvalidURL, r.BmkURI)
		return
	}

	opaque := u.Opaque
	if opaque == "" {
		opaque = strings.TrimPrefix(u.Path, "/")
	}

	values, err := url.ParseQuery(opaque)
	if err != nil {
		d.validity = Replace
		d.warning = newContentError(r.GUID, "bmkUri", ErrInvalidURL, r.BmkURI)
		return
	}

	var rewritten string

	switch {
	case values.Get("type") == "7":
		tag := strings.TrimSpace(r.FolderName)
		if tag != "" && len(tag) <= limits.TagLengthMax {
			rewritten = "place:tag=" + tag
			d.validity = Reupload
		} else {
			d.validity = Replace
			d.warning = newContentError(r.GUID, "folderName", ErrInvalidTag, r.FolderName)
			return
		}
	case values.Has("folder"):
		if values.Get("excludeItems") == "1" {
			rewritten = r.BmkURI
			d.validity = Valid
		} else {
			// Append rather than re-sort: the existing pairs are kept in
			// their original order and excludeItems=1 is tacked on, per
			// the literal scenario in spec §8 (S5).
			rewritten = r.BmkURI + "&excludeItems=1"
			d.validity = Reupload
		}
	default:
		rewritten = r.BmkURI
		d.validity = Valid
	}

	canonical, err := internURL(rewritten, limits)
	if err != nil {
		d.validity = Replace
		d.warning = newContentError(r.GUID, "bmkUri", err, rewritten)
		return
	}
	d.url = canonical
}

func decideLivemark(r *Record, limits Limits, d *decision) {
	if feed, err := internURL(r.FeedURI, limits); err == nil {
		d.feedURL = feed
		d.validity = Valid
	} else {
		d.validity = Replace
		d.warning = newContentError(r.GUID, "feedUri", err, r.FeedURI)
	}

	if site, err := internURL(r.SiteURI, limits); err == nil {
		d.siteURL = site
	}
	// An invalid siteUri is dropped silently (spec §4.3); it never
	// downgrades validity on its own.
}

// truncateTitle normalizes title to NFC and truncates it to max runes,
// so truncation never splits a combining character sequence (spec §C:
// supplemented from the original, which could rely on Rust &str already
// being validated UTF-8).
func truncateTitle(title string, max int) string {
	if title == "" {
		return ""
	}
	normalized := norm.NFC.String(title)
	runes := []rune(normalized)
	if len(runes) > max {
		runes = runes[:max]
	}
	return string(runes)
}

// ApplyIncomingBatch runs the Incoming Applicator over a batch of already-
// decoded records (spec §4.3): it classifies and writes one mirror row per
// record plus, for folders, structure rows. Tombstones are inserted
// directly. Must run inside an existing transaction; the caller is
// responsible for chunked commits (spec §5).
func ApplyIncomingBatch(ctx context.Context, tx StoreTx, records []*Record, serverModified int64, limits Limits, logger *slog.Logger) error {
	decisions := make([]*decision, len(records))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, r := range records {
		if r.IsTombstone {
			continue
		}
		i, r := i, r
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
			}
			decisions[i] = decideRecord(r, limits)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("bookmarksync: classifying incoming batch: %w", err)
	}

	for i, r := range records {
		if r.IsTombstone {
			if err := tx.UpsertMirrorTombstone(ctx, r.GUID, serverModified); err != nil {
				return fmt.Errorf("bookmarksync: upserting tombstone %s: %w", r.GUID, err)
			}
			continue
		}

		d := decisions[i]
		if d.warning != nil {
			logger.Warn("recovered content error ingesting record",
				slog.String("guid", string(r.GUID)),
				slog.String("kind", r.Kind.String()),
				slog.String("error", d.warning.Error()),
			)
		}

		row := &MirrorRow{
			GUID:           r.GUID,
			ParentGUID:     r.ParentGUID,
			ServerModified: serverModified,
			NeedsMerge:     true,
			Kind:           r.Kind,
			DateAdded:      r.DateAdded,
			Title:          d.title,
			Keyword:        r.Keyword,
			FeedURL:        d.feedURL,
			SiteURL:        d.siteURL,
			Validity:       d.validity,
		}

		if d.url != "" && (r.Kind == KindBookmark || r.Kind == KindQuery) {
			place, err := tx.InternPlace(ctx, d.url)
			if err != nil {
				return fmt.Errorf("bookmarksync: interning url for %s: %w", r.GUID, err)
			}
			row.PlaceID = &place.ID
		}

		if err := tx.UpsertMirrorRow(ctx, row); err != nil {
			return fmt.Errorf("bookmarksync: upserting mirror row %s: %w", r.GUID, err)
		}

		if r.Kind == KindFolder {
			if err := tx.ReplaceMirrorStructure(ctx, r.GUID, r.Children); err != nil {
				return fmt.Errorf("bookmarksync: replacing structure for %s: %w", r.GUID, err)
			}
		}
	}

	return nil
}
