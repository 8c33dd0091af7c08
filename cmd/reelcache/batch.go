package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"reelcache/internal/logging"
	"reelcache/internal/media"
	"reelcache/internal/preflight"
	"reelcache/internal/services"
	"reelcache/internal/watchlist"
)

type batchOptions struct {
	source      string
	concurrency int
	json        bool
	details     bool
}

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	var opts batchOptions

	cmd := &cobra.Command{
		Use:   "enrich <Watched.csv>",
		Short: "Resolve and fetch every title in a Letterboxd export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			list, err := watchlist.ReadFile(path)
			if err != nil {
				return err
			}
			if list.Duplicates > 0 && !opts.json {
				fmt.Fprintf(cmd.OutOrStdout(), "Skipped %d duplicate rows\n", list.Duplicates)
			}
			opts.source = filepath.Base(path)
			return runBatch(cmd, ctx, list.Queries(), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "j", 0, "Maximum concurrent lookups (default from config)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output as JSON")
	return cmd
}

func newLookupCommand(ctx *commandContext) *cobra.Command {
	var (
		year int
		opts batchOptions
	)

	cmd := &cobra.Command{
		Use:   "lookup <title>",
		Short: "Resolve and fetch a single title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if year < 0 {
				return services.Wrap(services.ErrValidation, "cli", "lookup", "year must be positive", nil)
			}
			opts.source = "lookup"
			opts.details = true
			return runBatch(cmd, ctx, []media.Query{{Title: args[0], Year: year}}, opts)
		},
	}

	cmd.Flags().IntVarP(&year, "year", "y", 0, "Release year used to break ties between candidates")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output as JSON")
	return cmd
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	var opts batchOptions

	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Re-run the failed queries of the most recent run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()

			l, err := ctx.runLedger()
			if err != nil {
				return err
			}
			run, queries, ok, err := l.LastFailed(cmd.Context())
			if err != nil {
				return err
			}
			if !ok || len(queries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No failed queries to retry")
				return nil
			}
			if !opts.json {
				fmt.Fprintf(cmd.OutOrStdout(), "Retrying %d failed queries from run %s\n", len(queries), shortID(run.ID))
			}
			opts.source = "retry:" + run.ID
			return runBatch(cmd, ctx, queries, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "j", 0, "Maximum concurrent lookups (default from config)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output as JSON")
	return cmd
}

// runBatch holds the cache lock for the whole batch, records the outcome in
// the run ledger, and renders it. A search cache save failure is returned
// after the result has been printed.
func runBatch(cmd *cobra.Command, ctx *commandContext, queries []media.Query, opts batchOptions) error {
	defer ctx.close()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if check := preflight.CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir); !check.Passed {
		return services.Wrap(services.ErrConfiguration, "cli", "preflight", check.Detail, nil)
	}
	enricher, err := ctx.enricher()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	store, err := ctx.cache()
	if err != nil {
		return err
	}

	unlock, err := store.Lock(cmd.Context(), cfg.LockTimeout())
	if err != nil {
		return err
	}
	defer unlock()

	concurrency := opts.concurrency
	if concurrency <= 0 {
		concurrency = cfg.Fetch.Concurrency
	}
	result, batchErr := enricher.ResolveAndFetchAll(cmd.Context(), queries, concurrency)

	if l, err := ctx.runLedger(); err != nil {
		logging.WarnWithContext(logger, "run ledger unavailable", "run_ledger_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the cache directory"),
			logging.String(logging.FieldImpact, "this run cannot be retried with 'reelcache retry'"))
	} else if err := l.Record(cmd.Context(), opts.source, result); err != nil {
		logging.WarnWithContext(logger, "run not recorded", "run_ledger_write_failed",
			logging.String("run_id", result.RunID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect runs.db in the cache directory"),
			logging.String(logging.FieldImpact, "this run cannot be retried with 'reelcache retry'"))
	}

	if opts.json {
		if err := writeJSON(cmd, result); err != nil {
			return err
		}
	} else {
		printResult(cmd.OutOrStdout(), result, opts.details)
	}
	return batchErr
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatYear(year int) string {
	if year <= 0 {
		return "-"
	}
	return strconv.Itoa(year)
}
