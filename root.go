package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/bookmarksync/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagDBPath     string
	flagJSON       bool
	flagVerbose    bool
)

// skipConfigAnnotation marks commands that handle config loading themselves.
const skipConfigAnnotation = "skipConfig"

// CLIContext bundles resolved config and logger. Created once in
// PersistentPreRunE; eliminates redundant buildLogger calls in RunE handlers.
type CLIContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
}

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// cliContextFrom extracts the CLIContext from the command's context.
func cliContextFrom(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		return nil
	}

	return cc
}

// mustCLIContext extracts the CLIContext or panics with an actionable
// message. The command tree guarantees PersistentPreRunE runs first.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc := cliContextFrom(ctx)
	if cc == nil {
		panic("BUG: CLIContext not found in context — ensure the command " +
			"does not skip config loading (no skipConfigAnnotation)")
	}

	return cc
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bookmarksync",
		Short:   "Bookmark sync engine CLI",
		Long:    "A two-way bookmark sync engine core: record ingestion, tree merge, and upload staging, driven from the command line.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipConfigAnnotation] == "true" {
				return nil
			}

			return loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "path to the SQLite state database (overrides config)")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newMirrorCmd())
	cmd.AddCommand(newTreeCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// loadConfig loads the effective configuration and stores it, along with a
// configured logger, in the command's context for use by subcommands.
func loadConfig(cmd *cobra.Command) error {
	logger := buildLogger(nil)

	cfg, err := config.LoadOrDefault(flagConfigPath, logger)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if flagDBPath != "" {
		cfg.Store.DBPath = flagDBPath
	}

	finalLogger := buildLogger(cfg)
	cc := &CLIContext{Cfg: cfg, Logger: finalLogger}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cc))

	return nil
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Pass nil for pre-config bootstrap (no config-file log level).
// Config-file level is the baseline; --verbose always wins.
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelWarn
	format := "text"

	if cfg != nil {
		switch cfg.Logging.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}

		if cfg.Logging.LogFormat == "json" {
			format = "json"
		}
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr

	if cfg != nil && cfg.Logging.LogFile != "" {
		f, err := os.OpenFile(cfg.Logging.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err == nil {
			w = f
		}
	}

	opts := &slog.HandlerOptions{Level: level}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
