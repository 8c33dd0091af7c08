package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reelcache/internal/media"
	"reelcache/internal/mediacache"
	"reelcache/internal/services"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the search and record caches",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	cacheCmd.AddCommand(newCacheShowCommand(ctx))
	cacheCmd.AddCommand(newCacheListCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()

			store, err := ctx.cache()
			if err != nil {
				return err
			}
			stats, err := store.Stats()
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, stats)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cache:    %s (%s records)\n", stats.Dir, stats.Backend)
			fmt.Fprintf(out, "Searches: %d (%d no-match) %s\n", stats.SearchEntries, stats.NoMatchEntries, humanBytes(stats.SearchBytes))
			fmt.Fprintf(out, "Records:  %d (%d movies, %d series) %s\n", stats.Records, stats.MovieRecords, stats.SeriesRecords, humanBytes(stats.RecordBytes))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var searchOnly, recordsOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached searches and/or records",
		Long: "Remove cached searches and/or records. With neither flag both namespaces are cleared.\n" +
			"Clearing searches also forgets cached no-match results so those titles are searched again.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()

			cfg, err := ctx.ensureConfig()
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

			scope, label := mediacache.ScopeAll, "search and record caches"
			switch {
			case searchOnly && !recordsOnly:
				scope, label = mediacache.ScopeSearch, "search cache"
			case recordsOnly && !searchOnly:
				scope, label = mediacache.ScopeRecords, "record cache"
			}
			if err := store.Clear(scope); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s in %s\n", label, store.Dir())
			return nil
		},
	}

	cmd.Flags().BoolVar(&searchOnly, "search", false, "Clear only the search cache")
	cmd.Flags().BoolVar(&recordsOnly, "records", false, "Clear only the record cache")
	return cmd
}

func newCacheShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <movie|tv> <id>",
		Short: "Show a cached record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()

			key, err := parseRecordArgs(args[0], args[1])
			if err != nil {
				return err
			}
			store, err := ctx.cache()
			if err != nil {
				return err
			}
			record, ok := store.LoadRecord(key)
			if !ok {
				return services.Wrap(services.ErrNotFound, "cli", "cache show", fmt.Sprintf("no cached record for %s", key), nil)
			}
			if asJSON {
				return writeJSON(cmd, record)
			}
			printSummary(cmd.OutOrStdout(), record.Summarize())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the full cached payload as JSON")
	return cmd
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()

			store, err := ctx.cache()
			if err != nil {
				return err
			}
			keys, err := store.ListRecords()
			if err != nil {
				return err
			}
			summaries := make([]media.Summary, 0, len(keys))
			for _, key := range keys {
				record, ok := store.LoadRecord(key)
				if !ok {
					continue
				}
				summaries = append(summaries, record.Summarize())
			}
			if asJSON {
				return writeJSON(cmd, summaries)
			}

			out := cmd.OutOrStdout()
			if len(summaries) == 0 {
				fmt.Fprintln(out, "No cached records")
				return nil
			}
			fmt.Fprintln(out, summaryTable(summaries))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func parseRecordArgs(typeArg, idArg string) (media.RecordKey, error) {
	mediaType, err := media.ParseType(typeArg)
	if err != nil {
		return media.RecordKey{}, err
	}
	id, err := strconv.ParseInt(strings.TrimSpace(idArg), 10, 64)
	if err != nil || id <= 0 {
		return media.RecordKey{}, services.Wrap(services.ErrValidation, "cli", "cache show", fmt.Sprintf("invalid id %q", idArg), nil)
	}
	return media.RecordKey{MediaType: mediaType, ID: id}, nil
}
