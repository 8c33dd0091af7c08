package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"reelcache/internal/logging"
	"reelcache/internal/media"
	"reelcache/internal/mediacache"
	"reelcache/internal/resolve"
	"reelcache/internal/services"
)

// DefaultConcurrency is the worker count used when none is given.
const DefaultConcurrency = 12

// Catalog is the remote side of enrichment.
type Catalog interface {
	Search(ctx context.Context, title string) ([]media.Candidate, error)
	FetchFullRecord(ctx context.Context, key media.RecordKey) (media.Record, error)
}

// SearchStore loads and persists the search namespace.
type SearchStore interface {
	LoadSearchCache() *mediacache.SearchCache
	SaveSearchCache(cache *mediacache.SearchCache) error
}

// Enricher runs enrichment batches against a catalog and a cache directory.
type Enricher struct {
	catalog Catalog
	store   SearchStore
	logger  *slog.Logger
}

// New builds an Enricher.
func New(catalog Catalog, store SearchStore, logger *slog.Logger) *Enricher {
	return &Enricher{
		catalog: catalog,
		store:   store,
		logger:  logging.NewComponentLogger(logger, "enrichment"),
	}
}

// batch is the per-call state shared by workers.
type batch struct {
	cache    *mediacache.SearchCache
	group    singleflight.Group
	searches atomic.Int64
	hits     atomic.Int64
}

type outcomeKind int

const (
	outcomeMatched outcomeKind = iota
	outcomeUnmatched
	outcomeFailed
)

type outcome struct {
	kind    outcomeKind
	record  media.Record
	query   media.Query
	failure Failure
}

// ResolveAndFetchAll resolves and fetches every query using at most
// concurrency workers (DefaultConcurrency when concurrency <= 0). Per-query
// failures land in Result.Failed and never abort the batch. The returned
// error is non-nil only when the search cache could not be saved; the Result
// is complete in that case too.
func (e *Enricher) ResolveAndFetchAll(ctx context.Context, queries []media.Query, concurrency int) (Result, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, e.logger)
	start := time.Now()

	b := &batch{cache: e.store.LoadSearchCache()}
	result := Result{RunID: runID, StartedAt: start.UTC()}

	workers := min(concurrency, len(queries))
	logger.Info("enrichment batch started",
		logging.Int("queries", len(queries)),
		logging.Int("workers", workers),
		logging.Int("cached_searches", b.cache.Len()))

	work := make(chan media.Query)
	outcomes := make(chan outcome, workers)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for q := range work {
				outcomes <- e.process(ctx, b, q)
			}
		}()
	}
	go func() {
		for _, q := range queries {
			work <- q
		}
		close(work)
	}()
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	for o := range outcomes {
		switch o.kind {
		case outcomeMatched:
			result.Matched = append(result.Matched, o.record)
		case outcomeUnmatched:
			result.Unmatched = append(result.Unmatched, o.query)
		case outcomeFailed:
			result.Failed = append(result.Failed, o.failure)
		}
	}

	result.SearchCalls = int(b.searches.Load())
	result.SearchCacheHits = int(b.hits.Load())
	result.FinishedAt = time.Now().UTC()

	// A fully warm batch leaves the file untouched.
	var saveErr error
	if !b.cache.Dirty() {
		logger.Debug("search cache unchanged, skipping save")
	} else if err := e.store.SaveSearchCache(b.cache); err != nil {
		saveErr = fmt.Errorf("persist search cache: %w", err)
		logging.WarnWithContext(logger, "search cache not saved", "search_cache_save_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check free space and permissions on the cache directory"),
			logging.String(logging.FieldImpact, "titles resolved in this batch will be searched again"))
	}

	logger.Info("enrichment batch complete",
		logging.Int("matched", len(result.Matched)),
		logging.Int("unmatched", len(result.Unmatched)),
		logging.Int("failed", len(result.Failed)),
		logging.Int("search_calls", result.SearchCalls),
		logging.Int("search_cache_hits", result.SearchCacheHits),
		logging.Duration("elapsed", time.Since(start)))
	return result, saveErr
}

func (e *Enricher) process(ctx context.Context, b *batch, q media.Query) outcome {
	ctx = services.WithQuery(ctx, q.String())
	logger := logging.WithContext(ctx, e.logger)

	if strings.TrimSpace(q.Title) == "" {
		logger.Debug("skipping query with empty title")
		return outcome{kind: outcomeUnmatched, query: q}
	}

	key := q.Key()
	entry, ok := b.cache.Lookup(key)
	if ok {
		b.hits.Add(1)
	} else {
		v, err, _ := b.group.Do(string(key), func() (any, error) {
			return e.resolve(ctx, b, key, q)
		})
		if err != nil {
			logger.Debug("search failed", logging.Error(err))
			return outcome{kind: outcomeFailed, failure: Failure{Query: q, Stage: StageSearch, Err: err}}
		}
		entry = v.(media.SearchEntry)
	}

	if entry.IsNoMatch() {
		return outcome{kind: outcomeUnmatched, query: q}
	}

	record, err := e.catalog.FetchFullRecord(ctx, entry.RecordKey())
	if err != nil {
		logger.Debug("record fetch failed",
			logging.String("record", entry.RecordKey().String()),
			logging.Error(err))
		return outcome{kind: outcomeFailed, failure: Failure{Query: q, Stage: StageFetch, Key: entry.RecordKey(), Err: err}}
	}
	return outcome{kind: outcomeMatched, record: record, query: q}
}

// resolve runs inside the singleflight for key. It re-checks the cache so a
// flight that starts after an earlier one stored the key does not search again.
func (e *Enricher) resolve(ctx context.Context, b *batch, key media.SearchKey, q media.Query) (media.SearchEntry, error) {
	if entry, ok := b.cache.Lookup(key); ok {
		b.hits.Add(1)
		return entry, nil
	}
	b.searches.Add(1)
	candidates, err := e.catalog.Search(ctx, q.Title)
	if err != nil {
		return media.SearchEntry{}, err
	}

	entry := media.NoMatch()
	if picked, ok := resolve.PickBest(candidates, q.Year); ok {
		entry = media.SearchEntry{MediaType: picked.MediaType, ID: picked.ID}
	}
	if !b.cache.Store(key, entry) {
		return media.SearchEntry{}, services.Wrap(services.ErrValidation, "enrichment", "resolve",
			fmt.Sprintf("catalog returned unusable identifier %s", entry.RecordKey()), nil)
	}

	attrs := append(logging.DecisionAttrs("search_resolution", entry.MediaType.String(), resolve.Decision(candidates, q.Year)),
		logging.Int64("tmdb_id", entry.ID),
		logging.Int("candidates", len(candidates)))
	logging.WithContext(ctx, e.logger).Debug("title resolved", logging.Args(attrs...)...)
	return entry, nil
}
