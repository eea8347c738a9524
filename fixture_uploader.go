package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tonimelisma/bookmarksync/internal/bookmarksync"
)

// fixtureUploader is a standalone-demo Uploader (spec §6 collaborator):
// it serves a JSON fixture of incoming wire payloads on the engine's first
// ApplyIncoming call, then logs and acknowledges whatever the engine stages
// as outgoing on the second. It has no real wire protocol, encryption, or
// retry behavior — see SPEC_FULL.md §A.5.
type fixtureUploader struct {
	payloads []*bookmarksync.WirePayload
	calls    int
	logger   *slog.Logger
}

func newFixtureUploader(path string, logger *slog.Logger) (*fixtureUploader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture file: %w", err)
	}

	var payloads []*bookmarksync.WirePayload
	if err := json.Unmarshal(data, &payloads); err != nil {
		return nil, fmt.Errorf("parsing fixture JSON: %w", err)
	}

	return &fixtureUploader{payloads: payloads, logger: logger}, nil
}

func (f *fixtureUploader) ApplyIncoming(_ context.Context, outgoing []*bookmarksync.WirePayload) (*bookmarksync.IncomingBatch, error) {
	f.calls++

	if f.calls == 1 {
		f.logger.Info("fixture uploader serving incoming records", slog.Int("count", len(f.payloads)))
		return &bookmarksync.IncomingBatch{Payloads: f.payloads, ServerTime: time.Now().UnixMilli()}, nil
	}

	f.logger.Info("fixture uploader received outgoing payloads", slog.Int("count", len(outgoing)))

	for _, p := range outgoing {
		f.logger.Debug("outgoing payload", slog.String("id", p.ID), slog.Bool("deleted", p.Deleted))
	}

	return &bookmarksync.IncomingBatch{ServerTime: time.Now().UnixMilli()}, nil
}

func (f *fixtureUploader) SyncFinished(_ context.Context, newTimestamp int64, ackedGUIDs []bookmarksync.GUID) error {
	f.logger.Debug("fixture sync finished", slog.Int64("timestamp", newTimestamp), slog.Int("acked", len(ackedGUIDs)))
	return nil
}

func (f *fixtureUploader) CollectionRequest(_ context.Context, since int64) (*bookmarksync.CollectionRequest, error) {
	return &bookmarksync.CollectionRequest{Since: since}, nil
}

func (f *fixtureUploader) Reset(_ context.Context) error {
	return errors.New("fixture uploader: reset not supported")
}

func (f *fixtureUploader) Wipe(_ context.Context) error {
	return errors.New("fixture uploader: wipe not supported")
}

var _ bookmarksync.Uploader = (*fixtureUploader)(nil)
