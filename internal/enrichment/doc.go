// Package enrichment resolves batches of titles to full TMDB records.
//
// ResolveAndFetchAll loads the search cache once, fans the queries out over a
// fixed pool of workers, and saves the search cache once after every worker
// has finished. Each query consults the search cache under its mutex; misses
// are deduplicated per key with singleflight so concurrent workers asking for
// the same title issue exactly one remote search. Resolved identifiers are
// fetched through the catalog, which applies the record cache.
//
// Outcomes are partitioned into matched records, confirmed no-matches, and
// failures (transport errors). Order within each partition follows
// completion order, not input order.
package enrichment
