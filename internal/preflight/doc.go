// Package preflight provides readiness checks for the TMDB credentials and
// the filesystem paths reelcache depends on.
//
// The CLI "reelcache doctor" command runs RunAll and renders the results. The
// enrich command runs CheckDirectoryAccess on the cache directory before
// taking the cache lock so a permissions problem is reported before any
// network traffic.
package preflight
