package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/bookmarksync/internal/bookmarksync"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run sync cycles against the bookmark mirror",
	}

	cmd.AddCommand(newSyncRunCmd())

	return cmd
}

func newSyncRunCmd() *cobra.Command {
	var fixturePath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one full sync cycle",
		Long: `Runs ingest -> merge -> apply -> stage outgoing -> finalize exactly once.

This standalone CLI has no live wire-protocol collaborator of its own
(spec §1 Non-goals); --fixture loads a JSON array of incoming wire payloads
and drives the cycle against those instead of a real Uploader.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if fixturePath == "" {
				return fmt.Errorf("sync run: --fixture is required (no live Uploader wired into this CLI)")
			}

			cc := mustCLIContext(cmd.Context())
			ctx := cmd.Context()

			uploader, err := newFixtureUploader(fixturePath, cc.Logger)
			if err != nil {
				return err
			}

			engine, err := bookmarksync.NewEngine(ctx, &bookmarksync.EngineConfig{
				DBPath:   cc.Cfg.Store.DBPath,
				Uploader: uploader,
				Limits: bookmarksync.Limits{
					URLLengthMax:   cc.Cfg.Limits.URLLengthMax,
					TagLengthMax:   cc.Cfg.Limits.TagLengthMax,
					TitleLengthMax: cc.Cfg.Limits.TitleLengthMax,
				},
				Logger: cc.Logger,
			})
			if err != nil {
				return fmt.Errorf("opening engine: %w", err)
			}
			defer engine.Close()

			now := time.Now().UnixMilli()

			report, err := engine.RunOnce(ctx, now, now)
			if err != nil {
				return fmt.Errorf("running sync cycle: %w", err)
			}

			if flagJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")

				return enc.Encode(report)
			}

			printCycleReport(report)

			return nil
		},
	}

	cmd.Flags().StringVar(&fixturePath, "fixture", "", "path to a JSON file of incoming wire payloads")

	return cmd
}

func printCycleReport(r *bookmarksync.CycleReport) {
	fmt.Printf("sync cycle complete in %s\n", r.Duration)
	fmt.Printf("  incoming:     %d\n", r.Incoming)
	fmt.Printf("  merged nodes: %d\n", r.MergedNodes)
	fmt.Printf("  deletions:    %d\n", r.Deletions)
	fmt.Printf("  outgoing:     %d\n", r.Outgoing)
	fmt.Printf("  acked:        %d\n", r.Acked)
	fmt.Printf("  server time:  %d\n", r.ServerTimestamp)
}
