package bookmarksync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tonimelisma/bookmarksync/internal/bookmarksync/treemerge"
)

// EngineConfig holds the options for NewEngine.
type EngineConfig struct {
	DBPath   string   // path to the SQLite state database, or ":memory:"
	Uploader Uploader // satisfied by the caller's wire-protocol client
	Limits   Limits
	Logger   *slog.Logger
}

// CycleReport summarizes the result of a single sync cycle.
type CycleReport struct {
	Duration        time.Duration
	Incoming        int
	MergedNodes     int
	Deletions       int
	Outgoing        int
	Acked           int
	ServerTimestamp int64
}

// Engine orchestrates a complete sync cycle: ingest → persist checkpoint →
// merge → apply → build outgoing → upload → finalize.
type Engine struct {
	store    *SQLiteStore
	uploader Uploader
	limits   Limits
	logger   *slog.Logger
}

// NewEngine creates an Engine, opening the store and running migrations.
func NewEngine(ctx context.Context, cfg *EngineConfig) (*Engine, error) {
	store, err := NewStore(ctx, cfg.DBPath, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("bookmarksync: creating engine: %w", err)
	}

	limits := cfg.Limits
	if limits == (Limits{}) {
		limits = DefaultLimits()
	}

	return &Engine{
		store:    store,
		uploader: cfg.Uploader,
		limits:   limits,
		logger:   cfg.Logger,
	}, nil
}

// Close releases resources held by the engine (the database connection).
func (e *Engine) Close() error {
	return e.store.Close()
}

// resolveAckedGUIDs determines which outgoing GUIDs this cycle may mark
// uploaded and finalize. A nil ackedIDs (IncomingBatch.AckedIDs left unset)
// means the uploader can't distinguish partial failure and every outgoing
// payload is assumed acknowledged, preserving the historical all-or-nothing
// behavior. A non-nil ackedIDs is authoritative: only the named wire ids are
// translated and finalized, so a partial upload failure doesn't cause
// Finalize to clear syncChangeCounter on rows that never actually landed
// remotely (spec §4.9, property P7).
func resolveAckedGUIDs(outgoing []*WirePayload, ackedIDs []string) []GUID {
	if ackedIDs == nil {
		out := make([]GUID, 0, len(outgoing))
		for _, p := range outgoing {
			out = append(out, translateIncomingGUID(p.ID))
		}
		return out
	}
	out := make([]GUID, 0, len(ackedIDs))
	for _, id := range ackedIDs {
		out = append(out, translateIncomingGUID(id))
	}
	return out
}

// RunOnce executes a single sync cycle (spec §2):
//  1. Ask the uploader for a collection request since the last checkpoint.
//  2. Ingest the returned batch into the mirror; persist the checkpoint.
//  3. Build local and remote trees, merge them.
//  4. Apply the merge result (local tree rewrite + upload staging).
//  5. Build outgoing wire payloads and hand them to the uploader.
//  6. Finalize: mark acknowledged rows uploaded, advance the checkpoint.
func (e *Engine) RunOnce(ctx context.Context, localTime, remoteTime int64) (*CycleReport, error) {
	start := time.Now()
	e.logger.Info("sync cycle starting")

	since, err := LastSyncTime(ctx, e.store)
	if err != nil {
		return nil, fmt.Errorf("bookmarksync: reading last sync time: %w", err)
	}

	collReq, err := e.uploader.CollectionRequest(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("bookmarksync: building collection request: %w", err)
	}

	batch, err := e.uploader.ApplyIncoming(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("bookmarksync: fetching incoming batch since %d: %w", collReq.Since, err)
	}

	report := &CycleReport{Incoming: len(batch.Payloads)}

	if err := e.store.WithTx(ctx, func(tx StoreTx) error {
		records := make([]*Record, 0, len(batch.Payloads))
		for _, payload := range batch.Payloads {
			rec, err := DecodeRecord(payload)
			if err != nil {
				e.logger.Warn("dropping malformed incoming record", slog.Any("error", err))
				continue
			}
			records = append(records, rec)
		}
		return ApplyIncomingBatch(ctx, tx, records, batch.ServerTime, e.limits, e.logger)
	}); err != nil {
		return report, fmt.Errorf("bookmarksync: ingesting incoming batch: %w", err)
	}

	if err := PersistIngestionCheckpoint(ctx, e.store, batch.ServerTime); err != nil {
		return report, err
	}

	var result *treemerge.Result
	var outgoing []*WirePayload

	if err := e.store.WithTx(ctx, func(tx StoreTx) error {
		driver := NewMergeDriver(tx, localTime, remoteTime, e.logger)

		var err error
		result, err = treemerge.Merge(ctx, driver)
		if err != nil {
			return fmt.Errorf("merging trees: %w", err)
		}

		if err := ApplyMergeResult(ctx, tx, result, e.logger); err != nil {
			return err
		}

		outgoing, err = BuildOutgoing(ctx, tx)
		if err != nil {
			return fmt.Errorf("building outgoing payloads: %w", err)
		}
		return nil
	}); err != nil {
		return report, err
	}

	report.MergedNodes = len(result.Descendants)
	report.Deletions = len(result.Deletions)
	report.Outgoing = len(outgoing)

	nextBatch, err := e.uploader.ApplyIncoming(ctx, outgoing)
	if err != nil {
		return report, fmt.Errorf("bookmarksync: uploading outgoing payloads: %w", err)
	}

	ackedGUIDs := resolveAckedGUIDs(outgoing, nextBatch.AckedIDs)

	if err := e.store.WithTx(ctx, func(tx StoreTx) error {
		return Finalize(ctx, tx, ackedGUIDs, nextBatch.ServerTime, e.logger)
	}); err != nil {
		return report, fmt.Errorf("bookmarksync: finalizing cycle: %w", err)
	}

	if err := e.uploader.SyncFinished(ctx, nextBatch.ServerTime, ackedGUIDs); err != nil {
		return report, fmt.Errorf("bookmarksync: reporting sync finished: %w", err)
	}

	report.Acked = len(ackedGUIDs)
	report.ServerTimestamp = nextBatch.ServerTime
	report.Duration = time.Since(start)

	e.logger.Info("sync cycle complete",
		slog.Duration("duration", report.Duration),
		slog.Int("incoming", report.Incoming),
		slog.Int("merged_nodes", report.MergedNodes),
		slog.Int("outgoing", report.Outgoing),
		slog.Int("acked", report.Acked),
	)

	return report, nil
}
