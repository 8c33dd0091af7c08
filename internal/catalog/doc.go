// Package catalog is the record-cache-aware face of TMDB.
//
// Search filters multi-search results down to movie and series candidates.
// FetchFullRecord consults the record cache first and only calls TMDB on a
// miss; fresh payloads gain their derived fields and are persisted before
// being returned.
package catalog
