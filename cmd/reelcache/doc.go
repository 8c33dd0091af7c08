// Package main hosts the reelcache CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into enrichment batches
// (enrich, lookup, retry), cache maintenance, run history listings, and
// configuration scaffolding. It centralizes configuration resolution, logger
// construction, and cache/ledger opening in commandContext so subcommands can
// focus on presentation.
//
// Keep this package lean: add functionality to the internal packages first,
// then surface it through dedicated commands or flags here.
package main
