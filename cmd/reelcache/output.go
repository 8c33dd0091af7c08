package main

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"reelcache/internal/enrichment"
	"reelcache/internal/media"
	"reelcache/internal/services"
)

var titleCaser = cases.Title(language.English)

func printResult(out io.Writer, result enrichment.Result, details bool) {
	fmt.Fprintf(out, "Run %s: %d queries in %s\n", shortID(result.RunID), result.Total(),
		result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))

	if len(result.Matched) > 0 {
		summaries := make([]media.Summary, 0, len(result.Matched))
		for _, record := range result.Matched {
			summaries = append(summaries, record.Summarize())
		}
		slices.SortFunc(summaries, func(a, b media.Summary) int {
			return cmp.Or(strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)), cmp.Compare(a.ID, b.ID))
		})
		printSection(out, "matched", len(summaries))
		fmt.Fprintln(out, summaryTable(summaries))
		if details {
			for _, s := range summaries {
				printSummary(out, s)
			}
		}
	}

	if len(result.Unmatched) > 0 {
		unmatched := slices.Clone(result.Unmatched)
		slices.SortFunc(unmatched, func(a, b media.Query) int {
			return cmp.Or(strings.Compare(a.Title, b.Title), cmp.Compare(a.Year, b.Year))
		})
		printSection(out, "unmatched", len(unmatched))
		rows := make([][]string, 0, len(unmatched))
		for _, q := range unmatched {
			rows = append(rows, []string{q.Title, formatYear(q.Year)})
		}
		fmt.Fprintln(out, renderTable([]string{"Title", "Year"}, rows, []columnAlignment{alignLeft, alignRight}))
	}

	if len(result.Failed) > 0 {
		failed := slices.Clone(result.Failed)
		slices.SortFunc(failed, func(a, b enrichment.Failure) int {
			return strings.Compare(a.Query.Title, b.Query.Title)
		})
		printSection(out, "failed", len(failed))
		rows := make([][]string, 0, len(failed))
		for _, f := range failed {
			rows = append(rows, []string{f.Query.Title, formatYear(f.Query.Year), titleCaser.String(string(f.Stage)), f.Error()})
		}
		fmt.Fprintln(out, renderTable([]string{"Title", "Year", "Stage", "Error"}, rows, nil))
		if retryable := countRetryable(failed); retryable > 0 {
			fmt.Fprintf(out, "Run 'reelcache retry' to try %d failed queries again.\n", retryable)
		}
	}

	fmt.Fprintf(out, "Search calls: %d, search cache hits: %d\n", result.SearchCalls, result.SearchCacheHits)
}

func summaryTable(summaries []media.Summary) string {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			typeLabel(s.MediaType),
			strconv.FormatInt(s.ID, 10),
			s.Title,
			formatYear(s.Year),
			formatRuntime(s.Runtime),
		})
	}
	return renderTable(
		[]string{"Type", "ID", "Title", "Year", "Runtime"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignRight},
	)
}

func countRetryable(failed []enrichment.Failure) int {
	n := 0
	for _, f := range failed {
		if services.Retryable(f.Err) {
			n++
		}
	}
	return n
}

func printSection(out io.Writer, outcome string, count int) {
	fmt.Fprintf(out, "\n%s (%d)\n", titleCaser.String(outcome), count)
}

func printSummary(out io.Writer, s media.Summary) {
	fmt.Fprintf(out, "\n%s (%s) [%s %d]\n", s.Title, formatYear(s.Year), typeLabel(s.MediaType), s.ID)
	printList(out, directorLabel(s.MediaType), s.Directors)
	printList(out, "Cast", s.Cast)
	printList(out, "Genres", s.Genres)
	printList(out, "Keywords", s.Keywords)
	printList(out, "Languages", s.Languages)
	printList(out, "Countries", s.Countries)
	fmt.Fprintf(out, "  %-10s %s\n", "Runtime:", formatRuntime(s.Runtime))
}

func printList(out io.Writer, label string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(out, "  %-10s %s\n", label+":", strings.Join(values, ", "))
}

func typeLabel(t media.Type) string {
	switch t {
	case media.TypeMovie:
		return "Movie"
	case media.TypeSeries:
		return "Series"
	default:
		return titleCaser.String(t.String())
	}
}

func directorLabel(t media.Type) string {
	if t == media.TypeSeries {
		return "Creators"
	}
	return "Directors"
}

func formatRuntime(minutes int) string {
	if minutes <= 0 {
		return "-"
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh%02dm", minutes/60, minutes%60)
}

func humanBytes(v int64) string {
	const unit = 1024
	if v < unit {
		return fmt.Sprintf("%d B", v)
	}
	div := int64(unit)
	exp := 0
	for n := v / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	value := float64(v) / float64(div)
	return fmt.Sprintf("%.1f %ciB", value, "KMGTPEZY"[exp])
}
