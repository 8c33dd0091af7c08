// Package media defines the shared vocabulary of the enrichment pipeline.
//
// A Query (title plus optional year) normalizes to a SearchKey. The search
// cache maps keys to SearchEntry values, which either name a catalog
// identifier (RecordKey) or record a confirmed no-match. A Record keeps the
// verbatim TMDB payload alongside the derived media type and normalized
// runtime, and Summary exposes a typed view of it for presentation.
package media
