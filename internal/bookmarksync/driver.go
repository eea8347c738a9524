package bookmarksync

import (
	"context"
	"log/slog"

	"github.com/tonimelisma/bookmarksync/internal/bookmarksync/treemerge"
)

// storeDriver adapts a Store plus a pair of reference clocks into a
// treemerge.Driver (spec §4.6). It supplies a silent logger (messages are
// forwarded at debug level only) and a GUID generator that returns fresh
// random GUIDs.
type storeDriver struct {
	store      Store
	localTime  int64
	remoteTime int64
	logger     *slog.Logger
}

// NewMergeDriver builds the Merge Driver adapter for one sync cycle.
func NewMergeDriver(store Store, localTime, remoteTime int64, logger *slog.Logger) treemerge.Driver {
	return &storeDriver{store: store, localTime: localTime, remoteTime: remoteTime, logger: logger}
}

func (d *storeDriver) FetchLocalTree(ctx context.Context) (*treemerge.Tree, error) {
	return BuildLocalTree(ctx, d.store, d.localTime)
}

func (d *storeDriver) FetchRemoteTree(ctx context.Context) (*treemerge.Tree, error) {
	return BuildRemoteTree(ctx, d.store, d.remoteTime)
}

func (d *storeDriver) FetchNewLocalContents(ctx context.Context) (map[treemerge.GUID]treemerge.Content, error) {
	return FetchNewLocalContents(ctx, d.store)
}

func (d *storeDriver) FetchNewRemoteContents(ctx context.Context) (map[treemerge.GUID]treemerge.Content, error) {
	return FetchNewRemoteContents(ctx, d.store)
}

func (d *storeDriver) GenerateNewGUID(ctx context.Context, invalid treemerge.GUID) (treemerge.GUID, error) {
	fresh := NewGUID()
	d.logger.Debug("merge driver generated replacement guid", slog.String("invalid", string(invalid)), slog.String("fresh", string(fresh)))
	return treemerge.GUID(fresh), nil
}

func (d *storeDriver) Log(msg string) {
	d.logger.Debug("merge", slog.String("msg", msg))
}
