package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reelcache/internal/ledger"
	"reelcache/internal/media"
	"reelcache/internal/services"
)

// runLookupWindow bounds how many recent runs an id prefix is matched against.
const runLookupWindow = 200

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded enrichment runs",
	}
	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()

			l, err := ctx.runLedger()
			if err != nil {
				return err
			}
			runs, err := l.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, runs)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			const stampLayout = "2006-01-02 15:04"
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					shortID(run.ID),
					run.StartedAt.Local().Format(stampLayout),
					run.Duration().Round(time.Millisecond).String(),
					strconv.Itoa(run.Total),
					strconv.Itoa(run.Matched),
					strconv.Itoa(run.Unmatched),
					strconv.Itoa(run.Failed),
					run.Source,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Duration", "Total", "Matched", "Unmatched", "Failed", "Source"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show the unmatched and failed queries of a run (latest by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()

			l, err := ctx.runLedger()
			if err != nil {
				return err
			}
			prefix := ""
			if len(args) == 1 {
				prefix = strings.TrimSpace(args[0])
			}
			run, err := findRun(cmd.Context(), l, prefix)
			if err != nil {
				return err
			}
			failures, err := l.Failures(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			unmatched, err := l.Unmatched(cmd.Context(), run.ID)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, struct {
					Run       ledger.Run           `json:"run"`
					Unmatched []media.Query        `json:"unmatched"`
					Failed    []ledger.FailedQuery `json:"failed"`
				}{run, unmatched, failures})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s (%s)\n", run.ID, run.Source)
			fmt.Fprintf(out, "Started %s, took %s\n", run.StartedAt.Local().Format(time.DateTime), run.Duration().Round(time.Millisecond))
			fmt.Fprintf(out, "%d matched, %d unmatched, %d failed of %d\n", run.Matched, run.Unmatched, run.Failed, run.Total)
			if len(unmatched) > 0 {
				printSection(out, "unmatched", len(unmatched))
				rows := make([][]string, 0, len(unmatched))
				for _, q := range unmatched {
					rows = append(rows, []string{q.Title, formatYear(q.Year)})
				}
				fmt.Fprintln(out, renderTable([]string{"Title", "Year"}, rows, []columnAlignment{alignLeft, alignRight}))
			}
			if len(failures) > 0 {
				printSection(out, "failed", len(failures))
				rows := make([][]string, 0, len(failures))
				for _, f := range failures {
					rows = append(rows, []string{f.Query.Title, formatYear(f.Query.Year), titleCaser.String(f.Stage), f.Error})
				}
				fmt.Fprintln(out, renderTable([]string{"Title", "Year", "Stage", "Error"}, rows, nil))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

// findRun returns the latest run when prefix is empty, otherwise the most
// recent run whose id starts with prefix.
func findRun(ctx context.Context, l *ledger.Ledger, prefix string) (ledger.Run, error) {
	if prefix == "" {
		run, ok, err := l.Latest(ctx)
		if err != nil {
			return ledger.Run{}, err
		}
		if !ok {
			return ledger.Run{}, services.Wrap(services.ErrNotFound, "cli", "runs show", "no runs recorded", nil)
		}
		return run, nil
	}
	runs, err := l.Recent(ctx, runLookupWindow)
	if err != nil {
		return ledger.Run{}, err
	}
	for _, run := range runs {
		if strings.HasPrefix(run.ID, prefix) {
			return run, nil
		}
	}
	return ledger.Run{}, services.Wrap(services.ErrNotFound, "cli", "runs show", fmt.Sprintf("no run matches %q", prefix), nil)
}
