package ledger_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"reelcache/internal/enrichment"
	"reelcache/internal/ledger"
	"reelcache/internal/media"
	"reelcache/internal/services"
)

func openLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Open(ledger.Path(t.TempDir()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func sampleResult(id string, started time.Time) enrichment.Result {
	rec, _ := media.NewRecord(media.TypeMovie, []byte(`{"id":603}`))
	return enrichment.Result{
		RunID:      id,
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		Matched:    []media.Record{rec},
		Unmatched:  []media.Query{{Title: "Obscure Short", Year: 1921}},
		Failed: []enrichment.Failure{
			{
				Query: media.Query{Title: "Heat", Year: 1995},
				Stage: enrichment.StageFetch,
				Err:   services.Wrap(services.ErrTransport, "catalog", "fetch record", "movie_949", errors.New("503")),
			},
			{
				Query: media.Query{Title: "Alien"},
				Stage: enrichment.StageSearch,
				Err:   errors.New("timeout"),
			},
		},
		SearchCalls:     3,
		SearchCacheHits: 1,
	}
}

func TestRecordAndLastFailed(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := l.Record(ctx, "old.csv", sampleResult("run-old", base)); err != nil {
		t.Fatalf("Record old: %v", err)
	}
	latest := enrichment.Result{
		RunID:      "run-new",
		StartedAt:  base.Add(time.Hour),
		FinishedAt: base.Add(time.Hour + time.Second),
		Failed: []enrichment.Failure{
			{Query: media.Query{Title: "Solaris", Year: 1972}, Stage: enrichment.StageSearch, Err: errors.New("boom")},
		},
	}
	if err := l.Record(ctx, "", latest); err != nil {
		t.Fatalf("Record new: %v", err)
	}

	run, queries, ok, err := l.LastFailed(ctx)
	if err != nil || !ok {
		t.Fatalf("LastFailed: ok=%v err=%v", ok, err)
	}
	if run.ID != "run-new" {
		t.Fatalf("expected newest run, got %q", run.ID)
	}
	if len(queries) != 1 || queries[0] != (media.Query{Title: "Solaris", Year: 1972}) {
		t.Fatalf("unexpected failed queries %v", queries)
	}

	runs, err := l.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-new" || runs[1].ID != "run-old" {
		t.Fatalf("unexpected run order %+v", runs)
	}
	old := runs[1]
	if old.Source != "old.csv" || old.Total != 4 || old.Matched != 1 || old.Unmatched != 1 || old.Failed != 2 || old.SearchCalls != 3 {
		t.Fatalf("unexpected run summary %+v", old)
	}
	if old.Duration() != 1500*time.Millisecond {
		t.Fatalf("duration = %v", old.Duration())
	}

	failures, err := l.Failures(ctx, "run-old")
	if err != nil {
		t.Fatalf("Failures: %v", err)
	}
	if len(failures) != 2 || failures[0].Stage != "fetch" || failures[1].Query.Year != 0 {
		t.Fatalf("unexpected failures %+v", failures)
	}
	unmatched, err := l.Unmatched(ctx, "run-old")
	if err != nil {
		t.Fatalf("Unmatched: %v", err)
	}
	if len(unmatched) != 1 || unmatched[0].Year != 1921 {
		t.Fatalf("unexpected unmatched %+v", unmatched)
	}
}

func TestLastFailedEmptyLedger(t *testing.T) {
	l := openLedger(t)
	_, queries, ok, err := l.LastFailed(context.Background())
	if err != nil {
		t.Fatalf("LastFailed: %v", err)
	}
	if ok || len(queries) != 0 {
		t.Fatalf("expected no runs, got ok=%v queries=%v", ok, queries)
	}
}

func TestRecordRequiresRunID(t *testing.T) {
	l := openLedger(t)
	if err := l.Record(context.Background(), "", enrichment.Result{}); err == nil {
		t.Fatal("expected error for empty run id")
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	l, err := ledger.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Record(context.Background(), "x.csv", sampleResult("run-1", time.Now().UTC())); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	runs, err := reopened.Recent(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected persisted run, got %d", len(runs))
	}
}
