// Package mediacache persists the two cache namespaces under one directory.
//
// The search namespace (search_cache.json) maps normalized title+year keys to
// catalog identifiers or a no-match sentinel. It is loaded once per batch into
// a mutex-guarded SearchCache and written back once, atomically.
//
// The record namespace maps (media type, id) to full records. The default
// backend keeps one JSON file per record under titles/; the bolt backend keeps
// the same keys in titles.db. Both replace a record atomically.
//
// Unreadable cache data is never an error for callers: it is logged as a
// warning and treated as a miss so the next fetch heals it.
package mediacache
