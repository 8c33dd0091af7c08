// Package logging assembles structured slog loggers and formatting helpers used
// across reelcache.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so enrichment code can tag log lines with
// batch run IDs and query titles. The package also provides a no-op logger for
// tests and wiring code that cannot fail.
package logging
