// Package ledger records enrichment batches in a SQLite database.
//
// Each batch becomes a runs row with its outcome counts, and every unmatched
// or failed query becomes a run_queries row. The ledger lets the CLI list
// recent runs and retry only the failures of the most recent one. The schema
// is versioned; a mismatch asks the operator to delete runs.db, which holds
// history only and never cached data.
package ledger
